package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/core/analysis"
	"github.com/Gabothefounder/scanscam/internal/core/guard"
	"github.com/Gabothefounder/scanscam/internal/core/intake"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
	"github.com/Gabothefounder/scanscam/internal/core/usecase"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/kvstore/memory"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/kvstore/redisstore"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/llm/ollama"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/llm/openai"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/gemini"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/imageprep"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/ocr/vision"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/queue/nats"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/repository/postgres"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/resilience"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/telemetry"
	"github.com/Gabothefounder/scanscam/internal/observability/metrics"
)

const redisKeyPrefix = "scanscam:"

// App is the wired API process.
type App struct {
	Config config.Config

	Scan      *usecase.ScanUseCase
	Consent   *usecase.ConsentUseCase
	Telemetry *usecase.TelemetryUseCase

	Queue      *nats.Queue
	Dispatcher *telemetry.Dispatcher
	Metrics    *metrics.HTTPServerMetrics

	closers []func(ctx context.Context)
}

// New wires the scan pipeline, the consent archive and the event path for
// the API process. The dispatcher is started; Close drains it.
func New(ctx context.Context, cfg config.Config, httpMetrics *metrics.HTTPServerMetrics) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if httpMetrics == nil {
		httpMetrics = metrics.NewHTTPServerMetrics("api")
	}
	app := &App{Config: cfg, Metrics: httpMetrics}

	executor := NewExecutor(ResilienceConfig(cfg), httpMetrics.RecordBreakerState)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.onClose(func(context.Context) { _ = db.Close() })

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSEventsSubject, nats.Options{
		Name:               "scanscam-api",
		ResilienceExecutor: executor,
	})
	if err != nil {
		app.Close(ctx)
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.Queue = queue

	dispatcher := telemetry.NewDispatcher(queue, cfg.TelemetryBuffer, telemetry.WithDropHook(httpMetrics.RecordTelemetryDrop))
	go dispatcher.Run()
	app.Dispatcher = dispatcher
	// Drain the dispatcher before the connection it publishes on goes away.
	app.onClose(func(ctx context.Context) {
		if err := dispatcher.Close(ctx); err != nil {
			slog.Warn("telemetry_drain_incomplete", "error", err)
		}
		queue.Close()
	})

	store, closeStore, err := NewGuardStore(ctx, cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.onClose(func(context.Context) { closeStore() })

	detector, err := NewConversationDetector(cfg)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	model, err := NewModelClient(cfg, httpMetrics.RecordBreakerState)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	ocrClient, closeOCR, err := NewOCRClient(ctx, cfg, httpMetrics.RecordBreakerState)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.onClose(func(context.Context) { closeOCR() })

	app.Scan = usecase.NewScanUseCase(usecase.ScanDependencies{
		Limiter:      guard.NewRateLimiter(store, cfg.RateLimitMax, cfg.RateLimitWindow),
		OCRGuard:     guard.NewOCRBreaker(store, cfg.OCRGuardWindow, cfg.OCRGuardMaxFailures, cfg.OCRGuardMaxLowText),
		Duplicates:   guard.NewDuplicateSuppressor(store, cfg.DuplicateTTL),
		Conversation: detector,
		OCR:          ocrClient,
		Analyzer:     analysis.NewOrchestrator(model, cfg.SignalDisplayLimit),
		Canonical:    analysis.NewCanonicalizer(cfg.SignalDisplayLimit),
		Events:       dispatcher,
		Observer:     httpMetrics,
		MinLength:    cfg.MinTextLength,
	})
	app.Consent = usecase.NewConsentUseCase(postgres.NewScanArchive(db))
	app.Telemetry = usecase.NewTelemetryUseCase(dispatcher)

	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

func (a *App) onClose(fn func(ctx context.Context)) {
	a.closers = append(a.closers, fn)
}

// Worker is the wired event consumer.
type Worker struct {
	Config config.Config
	Queue  *nats.Queue
	Ingest *usecase.EventIngestUseCase
	Events *postgres.EventRepository

	db *sql.DB
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	executor := NewExecutor(ResilienceConfig(cfg), nil)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSEventsSubject, nats.Options{
		Name:               "scanscam-worker",
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	events := postgres.NewEventRepository(db)
	return &Worker{
		Config: cfg,
		Queue:  queue,
		Ingest: usecase.NewEventIngestUseCase(events),
		Events: events,
		db:     db,
	}, nil
}

func (w *Worker) Close() {
	w.Queue.Close()
	_ = w.db.Close()
}

// NewAnalyzer wires only the model path: the orchestrator and canonicalizer
// the command-line tool runs without guards or persistence.
func NewAnalyzer(cfg config.Config) (*analysis.Orchestrator, *analysis.Canonicalizer, error) {
	model, err := NewModelClient(cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return analysis.NewOrchestrator(model, cfg.SignalDisplayLimit), analysis.NewCanonicalizer(cfg.SignalDisplayLimit), nil
}

// ResilienceConfig maps the RESILIENCE_* keys.
func ResilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: cfg.ResilienceRetryInitialBackoff,
		RetryMaxBackoff:     cfg.ResilienceRetryMaxBackoff,
		RetryMultiplier:     2.0,

		BreakerEnabled:          cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:      cfg.ResilienceBreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// NewExecutor builds a collaborator executor and reports breaker transitions
// to onState when it is set.
func NewExecutor(cfg resilience.Config, onState resilience.StateListener) *resilience.Executor {
	executor := resilience.NewExecutor(cfg)
	if onState != nil {
		executor.OnStateChange(onState)
	}
	return executor
}

// SingleAttemptExecutor keeps the breaker but never replays a call. Model and
// OCR requests run under it.
func SingleAttemptExecutor(cfg config.Config, onState resilience.StateListener) *resilience.Executor {
	return NewExecutor(ResilienceConfig(cfg).SingleAttempt(), onState)
}

// NewModelClient returns the configured language model. It runs under a
// single-attempt executor: the orchestrator's repair retry is the only replay
// a prompt gets.
func NewModelClient(cfg config.Config, onState resilience.StateListener) (ports.ModelClient, error) {
	executor := SingleAttemptExecutor(cfg, onState)
	switch cfg.ModelProvider {
	case config.ModelProviderOllama:
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.ModelTimeout, executor), nil
	case config.ModelProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required when MODEL_PROVIDER=openai")
		}
		return openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.ModelTimeout, executor), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}

// NewOCRClient returns the configured OCR collaborator with image preparation
// and a per-call timeout. Each image gets one OCR call.
func NewOCRClient(ctx context.Context, cfg config.Config, onState resilience.StateListener) (ports.OCRClient, func(), error) {
	executor := SingleAttemptExecutor(cfg, onState)
	prep := imageprep.New(cfg.OCRMaxDimension)
	switch cfg.OCRProvider {
	case config.OCRProviderGemini:
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, prep, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini ocr: %w", err)
		}
		return withTimeout(client, cfg.OCRTimeout), func() { _ = client.Close() }, nil
	case config.OCRProviderVision:
		client, err := vision.New(ctx, cfg.GoogleVisionCredentialsJSON, prep, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init vision ocr: %w", err)
		}
		return withTimeout(client, cfg.OCRTimeout), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown ocr provider %q", cfg.OCRProvider)
	}
}

// NewGuardStore returns the key-value store the guards share.
func NewGuardStore(ctx context.Context, cfg config.Config) (ports.KeyValueStore, func(), error) {
	switch cfg.GuardStore {
	case config.GuardStoreRedis:
		client, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis guard store: %w", err)
		}
		return redisstore.New(client, redisKeyPrefix), func() { _ = client.Close() }, nil
	case config.GuardStoreMemory:
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown guard store %q", cfg.GuardStore)
	}
}

// NewConversationDetector loads markers from CONVERSATION_MARKERS_FILE when
// set, else the built-in list.
func NewConversationDetector(cfg config.Config) (*intake.MarkerDetector, error) {
	if cfg.ConversationMarkersFile == "" {
		return intake.NewMarkerDetector(intake.DefaultMarkers()), nil
	}
	f, err := os.Open(cfg.ConversationMarkersFile)
	if err != nil {
		return nil, fmt.Errorf("open conversation markers: %w", err)
	}
	defer f.Close()

	markers, err := intake.LoadMarkers(f)
	if err != nil {
		return nil, fmt.Errorf("load conversation markers %s: %w", cfg.ConversationMarkersFile, err)
	}
	return intake.NewMarkerDetector(markers), nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

type timeoutOCR struct {
	next    ports.OCRClient
	timeout time.Duration
}

func withTimeout(next ports.OCRClient, timeout time.Duration) ports.OCRClient {
	if timeout <= 0 {
		return next
	}
	return timeoutOCR{next: next, timeout: timeout}
}

func (t timeoutOCR) ExtractText(ctx context.Context, image string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ExtractText(ctx, image)
}
