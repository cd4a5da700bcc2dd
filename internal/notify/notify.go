// Package notify delivers task reminders. A minute-cadence poller selects
// candidate tasks from storage and re-derives each firing time from the
// task's schedule, so the derived notify column can go stale without causing
// wrong or duplicate deliveries.
package notify

import (
	"context"
	"time"
)

// Notification is the payload handed to a Sink when a reminder fires.
type Notification struct {
	TaskID      string    `json:"taskId"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	InstantUTC  time.Time `json:"instantUtc"`
	NotifyAtUTC time.Time `json:"notifyAtUtc"`
	LeadMinutes int       `json:"leadMinutes"`
}

// Sink is the delivery capability injected into the worker. Delivery is
// fire-and-forget; a failed Deliver is logged, not retried.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}
