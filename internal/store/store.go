package store

import (
	"context"
	"time"

	"github.com/planwheel/planwheel/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Users() Users
	Tasks() Tasks
	Templates() Templates
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	Delete(ctx context.Context, userID string) error
}

type Tasks interface {
	Create(ctx context.Context, t *model.Task) (*model.Task, error)
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	List(ctx context.Context, req model.ListTasksRequest) ([]*model.Task, error)
	Update(ctx context.Context, t *model.Task) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error

	// ListDueBetween returns tasks whose notification minute falls in
	// [fromUTC, toUTC). Candidates only; the resolver stays the authority on
	// whether a notification actually fires.
	ListDueBetween(ctx context.Context, fromUTC, toUTC time.Time) ([]*model.Task, error)

	// ListUnresolved pages through legacy records that carry local schedule
	// fields but no UTC instant. Keyset pagination on task ID.
	ListUnresolved(ctx context.Context, afterTaskID string, limit int) ([]*model.Task, error)

	// UpdateSchedules writes reconciled schedules back in one batch.
	UpdateSchedules(ctx context.Context, tasks []*model.Task) error
}

type Templates interface {
	Create(ctx context.Context, t *model.TaskTemplate) (*model.TaskTemplate, error)
	Get(ctx context.Context, userID, templateID string) (*model.TaskTemplate, error)
	List(ctx context.Context, userID string) ([]*model.TaskTemplate, error)
	Delete(ctx context.Context, userID, templateID string) error
}
