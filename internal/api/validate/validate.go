package validate

import (
	"fmt"
	"regexp"

	"github.com/planwheel/planwheel/internal/schedule"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserID must be lowercase letters, digits, underscore, 1-20 chars
var userIdRx = regexp.MustCompile(`^[a-z0-9_]{1,20}$`)

var (
	localDateRx = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	localTimeRx = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Title validates a task or template title: required, at most 200 bytes.
func Title(v string) error {
	if v == "" {
		return fmt.Errorf("title is required")
	}
	if len(v) > 200 {
		return fmt.Errorf("title exceeds 200 characters")
	}
	return nil
}

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// LocalDate checks the YYYY-MM-DD shape. Calendar validity (leap days,
// month lengths) is the resolver's concern.
func LocalDate(v string) error {
	if v != "" && !localDateRx.MatchString(v) {
		return fmt.Errorf("localDate must be YYYY-MM-DD")
	}
	return nil
}

// LocalTime checks the HH:MM 24h shape.
func LocalTime(v string) error {
	if v != "" && !localTimeRx.MatchString(v) {
		return fmt.Errorf("localTime must be HH:MM (24h)")
	}
	return nil
}

// TimeZone rejects identifiers the timezone database does not know. An
// unknown zone blocks the write; it is never defaulted here.
func TimeZone(v string) error {
	if v == "" {
		return nil
	}
	if !schedule.ValidTimeZone(v) {
		return fmt.Errorf("unknown IANA time zone %q", v)
	}
	return nil
}

// -------- Request specific helpers ----------

// CreateUser validates input for creating a new user. UserID is mandatory,
// and the home timezone must be resolvable since task defaults derive from it.
func CreateUser(userId, email, timeZone string, displayName *string) error {
	if userId == "" {
		return fmt.Errorf("userId is required")
	}
	if !userIdRx.MatchString(userId) {
		return fmt.Errorf("userId must match %s", userIdRx.String())
	}
	if err := Email(email); err != nil {
		return err
	}
	if err := NonEmpty("timeZone", timeZone); err != nil {
		return err
	}
	if err := TimeZone(timeZone); err != nil {
		return err
	}
	return MaxLen("displayName", displayName, 100)
}

// CreateTask validates the non-schedule fields of a new task; schedule
// fields get shape checks here and semantic checks in the resolver.
func CreateTask(title string, notes *string, localDate, localTime, timeZone string) error {
	if err := Title(title); err != nil {
		return err
	}
	if err := MaxLen("notes", notes, 2000); err != nil {
		return err
	}
	if err := LocalDate(localDate); err != nil {
		return err
	}
	if err := LocalTime(localTime); err != nil {
		return err
	}
	return TimeZone(timeZone)
}
