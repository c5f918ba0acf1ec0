package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Gabothefounder/scanscam/internal/bootstrap"
	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/observability/logging"
	"github.com/Gabothefounder/scanscam/internal/observability/metrics"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer worker.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		slog.Info("worker_subscribed", "subject", cfg.NATSEventsSubject)
		return worker.Queue.SubscribeEvents(groupCtx, func(handlerCtx context.Context, event domain.Event) error {
			workerMetrics.StartEvent()
			started := time.Now()
			if !event.OccurredAt.IsZero() {
				workerMetrics.ObserveQueueLag(started.Sub(event.OccurredAt))
			}

			ingestCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Second)
			defer cancel()
			err := worker.Ingest.Ingest(ingestCtx, event)
			workerMetrics.FinishEvent(event.Type, time.Since(started), err)
			return err
		})
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_error", "error", err)
		os.Exit(1)
	}
}
