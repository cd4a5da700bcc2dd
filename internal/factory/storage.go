package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/planwheel/planwheel/internal/config"
	storepkg "github.com/planwheel/planwheel/internal/store"
	storepg "github.com/planwheel/planwheel/internal/store/postgres"
	storesq "github.com/planwheel/planwheel/internal/store/sqlite"
)

// NewStore returns a store.Store for the configured driver and ensures the
// schema exists before handing it out. Both the HTTP service and the notify
// worker go through here, so the two always agree on the driver choice.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := storepg.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Debug().Str("driver", cfg.DBDriver).Msg("store ready")
		return storepg.NewWithDB(db), nil

	case "sqlite":
		db, err := storesq.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := storesq.Bootstrap(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Debug().Str("driver", cfg.DBDriver).Str("path", cfg.SQLitePath).Msg("store ready")
		return storesq.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
