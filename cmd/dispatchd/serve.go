// Mnemonic:	serve
// Abstract:	`dispatchd serve` — builds every manager and starts the HTTP
//		API and TimeoutWorker goroutines, mirroring main/tegu.go's
//		"build managers, start their goroutines, block until signaled"
//		sequence (see tegu.go's call chain building res_mgr, fq_mgr,
//		osif etc. before its final select{}).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freightrelay/dispatchd/internal/config"
	"github.com/freightrelay/dispatchd/internal/dlog"
	"github.com/freightrelay/dispatchd/internal/httpapi"
	"github.com/freightrelay/dispatchd/internal/managers"
	"github.com/freightrelay/dispatchd/internal/store"
)

func newServeCmd() *cobra.Command {
	var useMemStore bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the timeout worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), useMemStore)
		},
	}
	cmd.Flags().BoolVar(&useMemStore, "mem", false, "run against an in-memory store instead of Postgres (local/dev only)")
	return cmd
}

func runServe(ctx context.Context, useMemStore bool) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := dlog.NewProduction()
	defer logger.Sync()
	dlog.Init(logger)
	log := dlog.For("main")

	var st store.Store
	if useMemStore {
		log.Infow("running with in-memory store; not for production use")
		st = store.NewMemStore()
	} else {
		pg, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		st = pg
	}
	defer st.Close()

	var notifier managers.Notifier = managers.NoopNotifier{}
	if cfg.NotifierEndpoint != "" {
		notifier = managers.NewHTTPNotifier(cfg.NotifierEndpoint, cfg.NotifierAuthHeader)
	}

	carbook := managers.NewCarBook()
	allocator := managers.NewAllocator(notifier)
	rounds := managers.NewRoundService(carbook, notifier)
	actions := managers.NewDispatchActions(carbook, rounds, notifier)
	worker := managers.NewTimeoutWorker(st, notifier, cfg.TResp(), cfg.WorkerTick())

	go worker.Run(ctx)

	mux := httpapi.NewRouter(&httpapi.Server{
		Store:     st,
		Actions:   actions,
		Rounds:    rounds,
		Allocator: allocator,
	})
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutting down")
	case err := <-errCh:
		log.Errorw("http server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}
