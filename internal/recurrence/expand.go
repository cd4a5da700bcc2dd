// Package recurrence expands task-template recurrence rules (RFC 5545 RRULE)
// into concrete occurrence dates. Dates only: binding an occurrence to an
// instant is the resolver's job, so DST handling stays in one place.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/planwheel/planwheel/internal/model"
	"github.com/planwheel/planwheel/internal/schedule"
)

// defaultMaxOccurrences caps a single expansion so an unbounded rule cannot
// materialize an arbitrary number of tasks in one request.
const defaultMaxOccurrences = 1000

// Validate reports whether s parses as an RRULE, wrapping failures as
// validation errors for the CRUD boundary.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("%w: rrule is required", model.ErrValidation)
	}
	if _, err := rrule.StrToRRule(s); err != nil {
		return fmt.Errorf("%w: rrule %q: %v", model.ErrValidation, s, err)
	}
	return nil
}

// Result wraps expanded occurrence dates and whether the cap was hit.
type Result struct {
	Dates     []string // YYYY-MM-DD in the template's timezone
	Truncated bool
}

// Expand returns the occurrence dates of the rule inside [fromDate, toDate]
// (inclusive calendar-date bounds, interpreted in tz). Max caps the result;
// zero means defaultMaxOccurrences.
func Expand(rruleStr, tz, fromDate, toDate string, max int) (Result, error) {
	var res Result

	loc, err := schedule.LoadLocation(tz)
	if err != nil {
		return res, err
	}
	from, err := time.ParseInLocation("2006-01-02", fromDate, loc)
	if err != nil {
		return res, fmt.Errorf("%w: from date %q", model.ErrValidation, fromDate)
	}
	to, err := time.ParseInLocation("2006-01-02", toDate, loc)
	if err != nil {
		return res, fmt.Errorf("%w: to date %q", model.ErrValidation, toDate)
	}
	if to.Before(from) {
		return res, fmt.Errorf("%w: to date before from date", model.ErrValidation)
	}
	if max <= 0 {
		max = defaultMaxOccurrences
	}

	r, err := rrule.StrToRRule(rruleStr)
	if err != nil {
		return res, fmt.Errorf("%w: rrule %q: %v", model.ErrValidation, rruleStr, err)
	}
	// Anchor the rule at the window start unless the rule carries its own
	// DTSTART; Between() walks from there.
	if r.OrigOptions.Dtstart.IsZero() {
		r.DTStart(from)
	}

	// Inclusive end of the last day in the window.
	end := to.Add(24*time.Hour - time.Second)
	times := r.Between(from, end, true)
	if len(times) > max {
		times = times[:max]
		res.Truncated = true
	}

	res.Dates = make([]string, 0, len(times))
	for _, occ := range times {
		res.Dates = append(res.Dates, occ.In(loc).Format("2006-01-02"))
	}
	return res, nil
}
