// Package schedule is the single authority for converting between the
// wall-clock and absolute-instant representations of a ScheduledMoment.
//
// All conversions go through the IANA timezone database via the standard
// library's time package; binaries embed the database with a time/tzdata
// import so behavior does not depend on the host zoneinfo files.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/planwheel/planwheel/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	// ErrInvalidTimeZone means the identifier is not in the timezone database.
	// Callers reject the write; the zone is never silently substituted.
	ErrInvalidTimeZone = errors.New("invalid time zone")

	// ErrIncompleteInput means exactly one of localDate/localTime was supplied.
	// A lone date or lone time is an unresolved draft, not a schedulable moment.
	ErrIncompleteInput = errors.New("incomplete local date/time")

	// ErrMalformedInput means a localDate or localTime string does not parse.
	ErrMalformedInput = errors.New("malformed local date/time")
)

// Field identifies which ScheduledMoment field an edit changed.
type Field string

const (
	FieldLocalDate Field = "localDate"
	FieldLocalTime Field = "localTime"
	FieldTimeZone  Field = "timeZone"
	FieldInstant   Field = "instantUtc"
)

// LoadLocation resolves an IANA identifier, mapping unknown zones to
// ErrInvalidTimeZone. The empty string is invalid; defaulting is a policy
// decision that belongs to callers (see backfill).
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrInvalidTimeZone)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, tz)
	}
	return loc, nil
}

// ValidTimeZone reports whether tz names a zone in the timezone database.
func ValidTimeZone(tz string) bool {
	_, err := LoadLocation(tz)
	return err == nil
}

// ResolveForward interprets the wall-clock pair as occurring in tz and
// returns the corresponding UTC instant.
//
// DST policy (civil-time convention, not a law of physics):
//   - Spring-forward gap (wall time that does not exist): the result is
//     shifted forward by the gap size, as if the gap were not there.
//   - Fall-back overlap (wall time that occurs twice): the FIRST occurrence
//     wins, i.e. the one with the UTC offset in effect before the
//     transition. Product has not confirmed user intent here; keep the
//     choice deterministic until they do.
func ResolveForward(localDate, localTime, tz string) (time.Time, error) {
	if localDate == "" || localTime == "" {
		return time.Time{}, fmt.Errorf("%w: date=%q time=%q", ErrIncompleteInput, localDate, localTime)
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(dateLayout, localDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: localDate %q", ErrMalformedInput, localDate)
	}
	tod, err := time.Parse(timeLayout, localTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: localTime %q", ErrMalformedInput, localTime)
	}

	year, month, day := d.Date()
	hour, min := tod.Hour(), tod.Minute()

	// Treat the wall clock as if it were UTC, then test every UTC offset in
	// effect around that day. Each offset yields a candidate instant; a
	// candidate is real when projecting it back into the zone reproduces the
	// requested wall clock.
	naive := time.Date(year, month, day, hour, min, 0, 0, time.UTC)
	var candidates []time.Time
	seen := make(map[int]bool)
	probes := []time.Time{naive.Add(-24 * time.Hour), naive, naive.Add(24 * time.Hour)}
	for _, p := range probes {
		_, off := p.In(loc).Zone()
		if seen[off] {
			continue
		}
		seen[off] = true
		inst := naive.Add(-time.Duration(off) * time.Second)
		l := inst.In(loc)
		if l.Year() == year && l.Month() == month && l.Day() == day &&
			l.Hour() == hour && l.Minute() == min {
			candidates = append(candidates, inst)
		}
	}

	switch len(candidates) {
	case 0:
		// Gap: no offset reproduces the wall clock. Interpret it with the
		// pre-transition offset, which lands the instant past the transition
		// and shifts the rendered time forward by the gap size.
		var offBefore int
		_, offBefore = naive.Add(-24 * time.Hour).In(loc).Zone()
		return naive.Add(-time.Duration(offBefore) * time.Second), nil
	case 1:
		return candidates[0], nil
	default:
		// Overlap: earliest instant is the pre-transition occurrence.
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
		return candidates[0], nil
	}
}

// ResolveBackward projects an absolute instant into the zone's civil
// calendar and clock. Total except for an unknown zone identifier.
func ResolveBackward(instant time.Time, tz string) (localDate, localTime string, err error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return "", "", err
	}
	l := instant.In(loc)
	return l.Format(dateLayout), l.Format(timeLayout), nil
}

// Reconcile recomputes a ScheduledMoment after one field was edited so that
// the cached local fields and the UTC instant agree.
//
// Editing a local field or the zone re-resolves the instant from the wall
// clock; editing the instant (programmatic backfill) re-derives the wall
// clock from it. If the edit leaves the wall clock incomplete the instant is
// cleared and the remaining local fields stay behind as a draft.
//
// The returned moment always satisfies: instant present implies local fields
// equal its projection into TimeZone. Reconcile is idempotent; re-running it
// on a consistent moment is a no-op, so concurrent backfill and live edits
// can safely race under last-write-wins storage.
func Reconcile(m model.ScheduledMoment, changed Field) (model.ScheduledMoment, error) {
	out := m

	if changed == FieldInstant {
		if out.InstantUTC == nil {
			// Instant cleared programmatically; local fields remain a draft.
			return out, nil
		}
		d, t, err := ResolveBackward(*out.InstantUTC, out.TimeZone)
		if err != nil {
			return m, err
		}
		inst := out.InstantUTC.UTC()
		out.InstantUTC = &inst
		out.LocalDate, out.LocalTime = d, t
		return out, nil
	}

	if out.LocalDate == "" || out.LocalTime == "" {
		out.InstantUTC = nil
		return out, nil
	}

	inst, err := ResolveForward(out.LocalDate, out.LocalTime, out.TimeZone)
	if err != nil {
		return m, err
	}
	// Project back so cached fields reflect the instant even when the input
	// fell into a DST gap and was shifted.
	d, t, err := ResolveBackward(inst, out.TimeZone)
	if err != nil {
		return m, err
	}
	out.InstantUTC = &inst
	out.LocalDate, out.LocalTime = d, t
	return out, nil
}

// ShouldFireNotification reports whether now falls in the same
// minute-granularity bucket as the moment's notification target
// (instant minus lead). Both sides are compared purely in UTC; comparing a
// local-time string against a UTC clock is exactly the defect this model
// replaces. Unscheduled moments and the NoNotification sentinel never fire.
func ShouldFireNotification(m model.ScheduledMoment, nowUTC time.Time) bool {
	if m.InstantUTC == nil || m.NotifyLeadMinutes < 0 {
		return false
	}
	target := m.InstantUTC.Add(-time.Duration(m.NotifyLeadMinutes) * time.Minute).Truncate(time.Minute)
	return nowUTC.UTC().Truncate(time.Minute).Equal(target)
}

// NotifyAt returns the UTC minute at which a notification for the moment
// should fire, or nil when it never fires. Storage layers may persist this
// as a derived column to make the poller's candidate query cheap.
func NotifyAt(m model.ScheduledMoment) *time.Time {
	if m.InstantUTC == nil || m.NotifyLeadMinutes < 0 {
		return nil
	}
	t := m.InstantUTC.Add(-time.Duration(m.NotifyLeadMinutes) * time.Minute).Truncate(time.Minute)
	return &t
}
