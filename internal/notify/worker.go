package notify

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/planwheel/planwheel/internal/schedule"
	"github.com/planwheel/planwheel/internal/store"
)

// Config controls the poller's lookback window.
type Config struct {
	// WindowLead is how many extra minutes of lookback each scan covers.
	// A tick that lands late or is skipped entirely is absorbed by the next
	// scan instead of dropping the reminder.
	WindowLead int
}

// Worker polls storage once a minute and hands due notifications to the
// configured sink. Every candidate's firing time is recomputed from its
// schedule before delivery; the stored notify column only narrows the query.
type Worker struct {
	store store.Store
	sink  Sink
	log   zerolog.Logger
	cfg   Config

	mu    sync.Mutex
	fired map[string]time.Time // taskID -> notify minute already delivered
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(st store.Store, sink Sink, cfg Config, log zerolog.Logger) *Worker {
	if cfg.WindowLead < 0 {
		cfg.WindowLead = 0
	}
	return &Worker{
		store: st,
		sink:  sink,
		log:   log,
		cfg:   cfg,
		fired: make(map[string]time.Time),
	}
}

// Run starts the minute-cadence scan loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("window_lead", w.cfg.WindowLead).Msg("notify worker starting")

	c := cron.New()
	if _, err := c.AddFunc("* * * * *", func() {
		if err := w.scanOnce(ctx, time.Now()); err != nil {
			w.log.Error().Err(err).Msg("notify scan")
		}
	}); err != nil {
		return err
	}
	c.Start()

	<-ctx.Done()
	w.log.Info().Msg("notify worker stopping")
	<-c.Stop().Done()
	return ctx.Err()
}

// scanOnce processes the minute containing now plus the lookback window.
func (w *Worker) scanOnce(ctx context.Context, now time.Time) error {
	minute := now.UTC().Truncate(time.Minute)
	from := minute.Add(-time.Duration(w.cfg.WindowLead) * time.Minute)
	to := minute.Add(time.Minute)

	tasks, err := w.store.Tasks().ListDueBetween(ctx, from, to)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		// Recompute from the schedule itself. A row whose derived column is
		// stale (schedule edited between poller queries) drops out here.
		target := schedule.NotifyAt(t.Schedule)
		if target == nil || target.Before(from) || !target.Before(to) {
			continue
		}
		if !w.markFired(t.TaskID, *target) {
			continue
		}
		n := Notification{
			TaskID:      t.TaskID,
			UserID:      t.UserID,
			Title:       t.Title,
			InstantUTC:  t.Schedule.InstantUTC.UTC(),
			NotifyAtUTC: *target,
			LeadMinutes: t.Schedule.NotifyLeadMinutes,
		}
		if err := w.sink.Deliver(ctx, n); err != nil {
			// Fire-and-forget: log and move on, do not retry next minute.
			w.log.Error().Err(err).Str("task_id", t.TaskID).Msg("notification delivery failed")
		}
	}

	w.prune(from)
	return nil
}

// markFired records a (task, minute) delivery. Returns false when that
// delivery already happened, which keeps overlapping scan windows from
// double-firing.
func (w *Worker) markFired(taskID string, minute time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.fired[taskID]; ok && prev.Equal(minute) {
		return false
	}
	w.fired[taskID] = minute
	return true
}

// prune drops dedup entries that have aged out of the scan window.
func (w *Worker) prune(before time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, minute := range w.fired {
		if minute.Before(before) {
			delete(w.fired, id)
		}
	}
}
