package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/recurrence"
	"github.com/planwheel/planwheel/internal/schedule"
	"github.com/planwheel/planwheel/internal/store"
)

// TemplateService manages recurring task templates and their materialization
// into concrete task instances.
type TemplateService struct {
	store store.Store
	log   zerolog.Logger
}

func NewTemplateService(s store.Store, log zerolog.Logger) *TemplateService {
	return &TemplateService{store: s, log: log}
}

func (s *TemplateService) CreateTemplate(ctx context.Context, t *model.TaskTemplate) (*model.TaskTemplate, error) {
	if err := recurrence.Validate(t.RRule); err != nil {
		return nil, err
	}
	if !schedule.ValidTimeZone(t.TimeZone) {
		return nil, fmt.Errorf("%w: %q", schedule.ErrInvalidTimeZone, t.TimeZone)
	}
	if _, err := time.Parse("15:04", t.LocalTime); err != nil {
		return nil, fmt.Errorf("%w: localTime %q", model.ErrValidation, t.LocalTime)
	}
	if t.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: durationMinutes must be non-negative", model.ErrValidation)
	}
	if t.NotifyLeadMinutes < 0 && t.NotifyLeadMinutes != model.NoNotification {
		return nil, fmt.Errorf("%w: notifyLeadMinutes must be non-negative or %d", model.ErrValidation, model.NoNotification)
	}
	return s.store.Templates().Create(ctx, t)
}

func (s *TemplateService) GetTemplate(ctx context.Context, userID, templateID string) (*model.TaskTemplate, error) {
	return s.store.Templates().Get(ctx, userID, templateID)
}

func (s *TemplateService) ListTemplates(ctx context.Context, userID string) ([]*model.TaskTemplate, error) {
	return s.store.Templates().List(ctx, userID)
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	return s.store.Templates().Delete(ctx, userID, templateID)
}

// MaterializeResult summarizes one materialization run.
type MaterializeResult struct {
	Created   []*model.Task `json:"created"`
	Skipped   int           `json:"skipped"` // occurrences that already had a task
	Truncated bool          `json:"truncated"`
}

// Materialize expands the template's recurrence inside [fromDate, toDate] and
// creates one task per occurrence. Each instance inherits the template's
// time-of-day and timezone but binds to its own occurrence date, resolved to
// a concrete instant. Occurrences that already have a task (unique on
// template+date) are skipped, so re-running a window is idempotent.
func (s *TemplateService) Materialize(ctx context.Context, userID, templateID, fromDate, toDate string) (*MaterializeResult, error) {
	tpl, err := s.store.Templates().Get(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}

	exp, err := recurrence.Expand(tpl.RRule, tpl.TimeZone, fromDate, toDate, 0)
	if err != nil {
		return nil, err
	}

	res := &MaterializeResult{Truncated: exp.Truncated}
	for _, date := range exp.Dates {
		occ := date
		m := model.ScheduledMoment{
			TimeZone:          tpl.TimeZone,
			LocalDate:         occ,
			LocalTime:         tpl.LocalTime,
			DurationMinutes:   tpl.DurationMinutes,
			NotifyLeadMinutes: tpl.NotifyLeadMinutes,
		}
		rec, err := schedule.Reconcile(m, schedule.FieldLocalDate)
		if err != nil {
			return nil, fmt.Errorf("occurrence %s: %w", occ, err)
		}
		task := &model.Task{
			UserID:         userID,
			Title:          tpl.Title,
			TemplateID:     &tpl.TemplateID,
			OccurrenceDate: &occ,
			Schedule:       rec,
		}
		created, err := s.store.Tasks().Create(ctx, task)
		if err != nil {
			if errors.Is(err, model.ErrConflict) {
				res.Skipped++
				continue
			}
			return nil, err
		}
		res.Created = append(res.Created, created)
	}

	s.log.Info().
		Str("template_id", tpl.TemplateID).
		Int("created", len(res.Created)).
		Int("skipped", res.Skipped).
		Bool("truncated", res.Truncated).
		Msg("template materialized")
	return res, nil
}
