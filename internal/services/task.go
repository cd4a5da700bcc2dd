package services

import (
	"context"
	"fmt"
	"time"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/schedule"
	"github.com/planwheel/planwheel/internal/store"
)

// TaskService orchestrates task CRUD. Every write that touches scheduling
// fields goes through the resolver, so a task is persisted either with a
// consistent (instant, cached locals) pair or as an unresolved draft, never
// in between.
type TaskService struct {
	store store.Store
}

func NewTaskService(s store.Store) *TaskService { return &TaskService{store: s} }

// SchedulePatch carries a partial edit of a task's scheduling fields.
// Nil means "unchanged". Clear wins over everything else and resets the
// schedule entirely.
type SchedulePatch struct {
	LocalDate         *string
	LocalTime         *string
	TimeZone          *string
	InstantUTC        *time.Time
	DurationMinutes   *int
	NotifyLeadMinutes *int
	Clear             bool
}

func (s *TaskService) CreateTask(ctx context.Context, t *model.Task) (*model.Task, error) {
	// A create carrying an instant but no complete wall clock is an
	// instant-authored write (imports, programmatic clients); derive the
	// cached locals from it instead of letting the locals-first path clear it.
	changed := schedule.FieldLocalDate
	if t.Schedule.InstantUTC != nil && (t.Schedule.LocalDate == "" || t.Schedule.LocalTime == "") {
		changed = schedule.FieldInstant
	}
	rec, err := schedule.Reconcile(t.Schedule, changed)
	if err != nil {
		return nil, err
	}
	t.Schedule = rec
	return s.store.Tasks().Create(ctx, t)
}

func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return s.store.Tasks().Get(ctx, userID, taskID)
}

func (s *TaskService) ListTasks(ctx context.Context, req model.ListTasksRequest) ([]*model.Task, error) {
	return s.store.Tasks().List(ctx, req)
}

// UpdateTask updates title, notes and status. Scheduling edits go through
// UpdateSchedule so a partial field write can never break the cache invariant.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, title, notes *string, status *string) (*model.Task, error) {
	t, err := s.store.Tasks().Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if title != nil {
		t.Title = *title
	}
	if notes != nil {
		t.Notes = notes
	}
	if status != nil {
		if *status != model.TaskStatusPending && *status != model.TaskStatusDone {
			return nil, fmt.Errorf("%w: status %q", model.ErrValidation, *status)
		}
		t.Status = *status
	}
	return s.store.Tasks().Update(ctx, t)
}

// UpdateSchedule applies a schedule patch and reconciles the result before
// persisting, so instant and cached local fields change in the same write.
func (s *TaskService) UpdateSchedule(ctx context.Context, userID, taskID string, p SchedulePatch) (*model.Task, error) {
	t, err := s.store.Tasks().Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if p.Clear {
		t.Schedule = model.ScheduledMoment{NotifyLeadMinutes: model.NoNotification}
		return s.store.Tasks().Update(ctx, t)
	}

	m := t.Schedule
	changed := schedule.FieldLocalDate
	if p.LocalDate != nil {
		m.LocalDate = *p.LocalDate
		changed = schedule.FieldLocalDate
	}
	if p.LocalTime != nil {
		m.LocalTime = *p.LocalTime
		changed = schedule.FieldLocalTime
	}
	if p.TimeZone != nil {
		m.TimeZone = *p.TimeZone
		changed = schedule.FieldTimeZone
	}
	if p.InstantUTC != nil {
		inst := p.InstantUTC.UTC()
		m.InstantUTC = &inst
		changed = schedule.FieldInstant
	}
	if p.DurationMinutes != nil {
		if *p.DurationMinutes < 0 {
			return nil, fmt.Errorf("%w: durationMinutes must be non-negative", model.ErrValidation)
		}
		m.DurationMinutes = *p.DurationMinutes
	}
	if p.NotifyLeadMinutes != nil {
		if *p.NotifyLeadMinutes < 0 && *p.NotifyLeadMinutes != model.NoNotification {
			return nil, fmt.Errorf("%w: notifyLeadMinutes must be non-negative or %d", model.ErrValidation, model.NoNotification)
		}
		m.NotifyLeadMinutes = *p.NotifyLeadMinutes
	}

	rec, err := schedule.Reconcile(m, changed)
	if err != nil {
		return nil, err
	}
	t.Schedule = rec
	return s.store.Tasks().Update(ctx, t)
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	return s.store.Tasks().Delete(ctx, userID, taskID)
}
