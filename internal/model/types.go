package model

import "time"

// Task status values.
const (
	TaskStatusPending = "PENDING"
	TaskStatusDone    = "DONE"
)

// NoNotification is the NotifyLeadMinutes sentinel meaning "never notify".
const NoNotification = -1

// ScheduledMoment holds the scheduling state embedded in tasks and templates.
//
// InstantUTC is the source of truth: the exact moment the event occurs.
// LocalDate/LocalTime are cached projections of InstantUTC into TimeZone and
// must never drift from it. When InstantUTC is nil the local fields may hold
// an unresolved draft the user has not finished entering; such a draft is
// never authoritative for notification firing.
type ScheduledMoment struct {
	InstantUTC        *time.Time `json:"instantUtc,omitempty"`
	TimeZone          string     `json:"timeZone,omitempty"`
	LocalDate         string     `json:"localDate,omitempty"` // YYYY-MM-DD in TimeZone
	LocalTime         string     `json:"localTime,omitempty"` // HH:MM (24h) in TimeZone
	DurationMinutes   int        `json:"durationMinutes"`
	NotifyLeadMinutes int        `json:"notifyLeadMinutes"`
}

// IsScheduled reports whether the moment resolves to a concrete instant.
func (m ScheduledMoment) IsScheduled() bool { return m.InstantUTC != nil }

// User represents an account in the system.
type User struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"displayName,omitempty"`
	TimeZone     string    `json:"timeZone"`
	Status       string    `json:"status"`
	CreationTime time.Time `json:"creationTime"`
}

// Task is a single to-do item, optionally scheduled.
// Tasks materialized from a recurring template carry TemplateID and the
// occurrence date that bound them to a concrete day.
type Task struct {
	TaskID         string          `json:"taskId"`
	UserID         string          `json:"userId"`
	Title          string          `json:"title"`
	Notes          *string         `json:"notes,omitempty"`
	Status         string          `json:"status"`
	TemplateID     *string         `json:"templateId,omitempty"`
	OccurrenceDate *string         `json:"occurrenceDate,omitempty"`
	Schedule       ScheduledMoment `json:"schedule"`
	CreationTime   time.Time       `json:"creationTime"`
	UpdateTime     time.Time       `json:"updateTime"`
}

// TaskTemplate describes a recurring task. Materialization expands the
// recurrence rule into occurrence dates and binds each one to the template's
// time-of-day and timezone.
type TaskTemplate struct {
	TemplateID        string    `json:"templateId"`
	UserID            string    `json:"userId"`
	Title             string    `json:"title"`
	RRule             string    `json:"rrule"`
	LocalTime         string    `json:"localTime"` // HH:MM time-of-day for each occurrence
	TimeZone          string    `json:"timeZone"`
	DurationMinutes   int       `json:"durationMinutes"`
	NotifyLeadMinutes int       `json:"notifyLeadMinutes"`
	CreationTime      time.Time `json:"creationTime"`
}

// ListTasksRequest captures filters used when listing tasks.
type ListTasksRequest struct {
	UserID    string
	Status    string
	DateFrom  string // inclusive local-date bound (YYYY-MM-DD), empty = unbounded
	DateTo    string // inclusive local-date bound (YYYY-MM-DD), empty = unbounded
	Limit     int
	AfterTask string // keyset cursor: return tasks with TaskID > AfterTask
}
