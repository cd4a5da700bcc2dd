package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/store"
)

// dueStore serves a fixed task list through ListDueBetween, filtered the way
// a real store filters on the derived notify column.
type dueStore struct {
	tasks []*model.Task
}

func (s *dueStore) Users() store.Users         { return nil }
func (s *dueStore) Templates() store.Templates { return nil }
func (s *dueStore) Tasks() store.Tasks         { return &dueTasks{s} }

type dueTasks struct{ p *dueStore }

func (r *dueTasks) Create(context.Context, *model.Task) (*model.Task, error) { return nil, nil }
func (r *dueTasks) Get(context.Context, string, string) (*model.Task, error) { return nil, nil }
func (r *dueTasks) List(context.Context, model.ListTasksRequest) ([]*model.Task, error) {
	return nil, nil
}
func (r *dueTasks) Update(context.Context, *model.Task) (*model.Task, error)  { return nil, nil }
func (r *dueTasks) Delete(context.Context, string, string) error              { return nil }
func (r *dueTasks) ListUnresolved(context.Context, string, int) ([]*model.Task, error) {
	return nil, nil
}
func (r *dueTasks) UpdateSchedules(context.Context, []*model.Task) error { return nil }

func (r *dueTasks) ListDueBetween(_ context.Context, fromUTC, toUTC time.Time) ([]*model.Task, error) {
	var res []*model.Task
	for _, t := range r.p.tasks {
		m := t.Schedule
		if m.InstantUTC == nil || m.NotifyLeadMinutes < 0 {
			continue
		}
		at := m.InstantUTC.Add(-time.Duration(m.NotifyLeadMinutes) * time.Minute).Truncate(time.Minute)
		if !at.Before(fromUTC) && at.Before(toUTC) {
			res = append(res, t)
		}
	}
	return res, nil
}

type recordingSink struct {
	mu    sync.Mutex
	got   []Notification
	fail  bool
}

func (s *recordingSink) Deliver(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func scheduledTask(id string, instant time.Time, lead int) *model.Task {
	inst := instant
	return &model.Task{
		TaskID: id,
		UserID: "u1",
		Title:  "t " + id,
		Schedule: model.ScheduledMoment{
			InstantUTC:        &inst,
			TimeZone:          "UTC",
			NotifyLeadMinutes: lead,
		},
	}
}

func TestWorker_FiresAtLeadMinute(t *testing.T) {
	now := time.Date(2025, 10, 3, 18, 15, 30, 0, time.UTC)
	// Instant 18:30, lead 15 -> notify minute 18:15, which contains now.
	st := &dueStore{tasks: []*model.Task{
		scheduledTask("hit", time.Date(2025, 10, 3, 18, 30, 0, 0, time.UTC), 15),
		scheduledTask("later", time.Date(2025, 10, 3, 19, 0, 0, 0, time.UTC), 15),
	}}
	sink := &recordingSink{}
	w := NewWorker(st, sink, Config{}, zerolog.Nop())

	if err := w.scanOnce(context.Background(), now); err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", sink.count())
	}
	n := sink.got[0]
	if n.TaskID != "hit" || !n.NotifyAtUTC.Equal(time.Date(2025, 10, 3, 18, 15, 0, 0, time.UTC)) {
		t.Fatalf("wrong delivery: %+v", n)
	}
}

func TestWorker_DoesNotDoubleFire(t *testing.T) {
	now := time.Date(2025, 10, 3, 18, 15, 10, 0, time.UTC)
	st := &dueStore{tasks: []*model.Task{
		scheduledTask("hit", time.Date(2025, 10, 3, 18, 30, 0, 0, time.UTC), 15),
	}}
	sink := &recordingSink{}
	w := NewWorker(st, sink, Config{}, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := w.scanOnce(ctx, now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("scanOnce: %v", err)
		}
	}
	if sink.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", sink.count())
	}
}

func TestWorker_LookbackCatchesMissedMinute(t *testing.T) {
	// Notify minute was 18:14 but the 18:14 tick never ran.
	now := time.Date(2025, 10, 3, 18, 15, 5, 0, time.UTC)
	st := &dueStore{tasks: []*model.Task{
		scheduledTask("missed", time.Date(2025, 10, 3, 18, 29, 0, 0, time.UTC), 15),
	}}
	sink := &recordingSink{}

	// Without lookback the reminder is dropped.
	w := NewWorker(st, sink, Config{}, zerolog.Nop())
	if err := w.scanOnce(context.Background(), now); err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if sink.count() != 0 {
		t.Fatalf("deliveries = %d, want 0 without lookback", sink.count())
	}

	// With a 2-minute window the next scan picks it up.
	w = NewWorker(st, sink, Config{WindowLead: 2}, zerolog.Nop())
	if err := w.scanOnce(context.Background(), now); err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("deliveries = %d, want 1 with lookback", sink.count())
	}
}

func TestWorker_SinkFailureIsSwallowed(t *testing.T) {
	now := time.Date(2025, 10, 3, 18, 15, 0, 0, time.UTC)
	st := &dueStore{tasks: []*model.Task{
		scheduledTask("hit", time.Date(2025, 10, 3, 18, 30, 0, 0, time.UTC), 15),
	}}
	sink := &recordingSink{fail: true}
	w := NewWorker(st, sink, Config{}, zerolog.Nop())

	// Fire-and-forget: delivery errors never bubble up as scan errors.
	if err := w.scanOnce(context.Background(), now); err != nil {
		t.Fatalf("scanOnce: %v", err)
	}
}
