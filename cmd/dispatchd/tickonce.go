package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freightrelay/dispatchd/internal/config"
	"github.com/freightrelay/dispatchd/internal/dlog"
	"github.com/freightrelay/dispatchd/internal/managers"
	"github.com/freightrelay/dispatchd/internal/store"
)

// newTickOnceCmd runs a single TimeoutWorker sweep and exits; useful for
// driving the worker from an external scheduler instead of the built-in
// ticker, or for debugging a stuck shipment by hand.
func newTickOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick-once",
		Short: "Run a single TimeoutWorker sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dlog.Init(dlog.NewProduction())

			pg, err := store.Open(cmd.Context(), cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer pg.Close()

			worker := managers.NewTimeoutWorker(pg, managers.NoopNotifier{}, cfg.TResp(), cfg.WorkerTick())
			return worker.Tick(context.Background(), time.Now())
		},
	}
}
