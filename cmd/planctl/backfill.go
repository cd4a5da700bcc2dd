package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwheel/planwheel/internal/backfill"
	"github.com/planwheel/planwheel/internal/config"
	"github.com/planwheel/planwheel/internal/factory"
	"github.com/planwheel/planwheel/internal/logger"
)

func init() {
	var defaultTZ string
	var batchSize int

	// backfill talks to the database directly rather than the HTTP API: it is
	// an operator's migration tool and runs with the service's own config.
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Resolve legacy tasks that have local schedule fields but no UTC instant",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New("planctl-backfill")

			cfg, err := config.New()
			if err != nil {
				return err
			}
			if defaultTZ != "" {
				cfg.BackfillDefaultTimeZone = defaultTZ
			}
			if batchSize > 0 {
				cfg.BackfillBatchSize = batchSize
			}

			ctx := context.Background()
			st, err := factory.NewStore(ctx, cfg, log)
			if err != nil {
				return err
			}

			r := backfill.NewRunner(st, backfill.Config{
				DefaultTimeZone: cfg.BackfillDefaultTimeZone,
				BatchSize:       cfg.BackfillBatchSize,
			}, log)

			rep, err := r.Run(ctx)
			if err != nil {
				return fmt.Errorf("backfill: %w", err)
			}
			out, _ := json.MarshalIndent(rep, "", "  ")
			_, _ = fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
	backfillCmd.Flags().StringVar(&defaultTZ, "default-tz", "", "Zone assumed for records without one (overrides config)")
	backfillCmd.Flags().IntVar(&batchSize, "batch", 0, "Records per page (overrides config)")

	rootCmd.AddCommand(backfillCmd)
}
