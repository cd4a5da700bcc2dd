// Package backfill resolves legacy task records that carry wall-clock
// schedule fields but no UTC instant. It is a one-shot batch job, run from
// the CLI, and safe to re-run: already-resolved records never come back from
// the unresolved query, and reconciling is idempotent.
package backfill

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/schedule"
	"github.com/planwheel/planwheel/internal/store"
)

// Config controls batching and the timezone policy for zoneless records.
type Config struct {
	// DefaultTimeZone is assumed for legacy records that never stored a
	// zone. Records resolved this way are counted separately in the report
	// so operators can audit the assumption.
	DefaultTimeZone string

	// BatchSize is how many records are leased and written back per page.
	BatchSize int
}

// Failure records one task the runner could not resolve.
type Failure struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason"`
}

// Report summarizes one backfill run.
type Report struct {
	Scanned   int       `json:"scanned"`
	Resolved  int       `json:"resolved"`
	Defaulted int       `json:"defaulted"` // resolved using DefaultTimeZone
	Failed    []Failure `json:"failed,omitempty"`
}

// Runner pages through unresolved tasks and writes reconciled schedules back.
type Runner struct {
	store store.Store
	log   zerolog.Logger
	cfg   Config
}

func NewRunner(st store.Store, cfg Config, log zerolog.Logger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Runner{store: st, log: log, cfg: cfg}
}

// Run processes every unresolved task once. Individual failures are recorded
// and skipped rather than aborting the run; a record with garbage in its
// local fields should not block the rest of the table.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	after := ""

	for {
		page, err := r.store.Tasks().ListUnresolved(ctx, after, r.cfg.BatchSize)
		if err != nil {
			return rep, err
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].TaskID

		var resolved []*model.Task
		for _, t := range page {
			rep.Scanned++
			defaulted := false
			m := t.Schedule
			if m.TimeZone == "" {
				m.TimeZone = r.cfg.DefaultTimeZone
				defaulted = true
			}
			rec, err := schedule.Reconcile(m, schedule.FieldLocalDate)
			if err != nil {
				rep.Failed = append(rep.Failed, Failure{TaskID: t.TaskID, Reason: err.Error()})
				r.log.Warn().Str("task_id", t.TaskID).Err(err).Msg("backfill skip")
				continue
			}
			t.Schedule = rec
			resolved = append(resolved, t)
			rep.Resolved++
			if defaulted {
				rep.Defaulted++
			}
		}

		if len(resolved) > 0 {
			if err := r.store.Tasks().UpdateSchedules(ctx, resolved); err != nil {
				return rep, err
			}
		}
	}

	r.log.Info().
		Int("scanned", rep.Scanned).
		Int("resolved", rep.Resolved).
		Int("defaulted", rep.Defaulted).
		Int("failed", len(rep.Failed)).
		Msg("backfill complete")
	return rep, nil
}
