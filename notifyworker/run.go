// Package notifyworker is the composition root for the reminder poller binary.
package notifyworker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/planwheel/planwheel/internal/config"
	"github.com/planwheel/planwheel/internal/factory"
	"github.com/planwheel/planwheel/internal/logger"
	"github.com/planwheel/planwheel/internal/notify"
)

// Run starts the notify worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("notify-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("store unavailable")
		return err
	}

	var sink notify.Sink
	if cfg.NotifyWebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.NotifyWebhookURL)
		log.Info().Str("webhook", cfg.NotifyWebhookURL).Msg("delivering via webhook")
	} else {
		sink = notify.LogSink{Log: log}
		log.Info().Msg("no webhook configured, delivering to log")
	}

	w := notify.NewWorker(st, sink, notify.Config{WindowLead: cfg.NotifyWindowLead}, log)

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("notify worker exit")
		return err
	}
	return nil
}
