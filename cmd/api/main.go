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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/Gabothefounder/scanscam/internal/adapters/http"
	"github.com/Gabothefounder/scanscam/internal/bootstrap"
	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/observability/logging"
	"github.com/Gabothefounder/scanscam/internal/observability/metrics"
	"github.com/Gabothefounder/scanscam/internal/observability/tracing"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "scanscam-api", cfg.OTelDisabled)
	if err != nil {
		slog.Error("tracing_init_error", "error", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, httpMetrics)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}

	contract, err := httpadapter.LoadContract(ctx)
	if err != nil {
		slog.Error("api_contract_invalid", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(
		cfg,
		app.Scan,
		app.Consent,
		app.Telemetry,
		httpadapter.WithMetrics(httpMetrics),
		httpadapter.WithContract(contract),
	).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           otelhttp.NewHandler(router, "scanscam-api"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("api_listening", "port", cfg.APIPort, "model_provider", cfg.ModelProvider, "ocr_provider", cfg.OCRProvider, "guard_store", cfg.GuardStore)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("api_shutdown_error", "error", err)
		}
		app.Close(shutdownCtx)
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Error("tracing_shutdown_error", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		slog.Error("api_server_error", "error", err)
		os.Exit(1)
	}
}
