package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

const namespace = "scanscam"

// HTTPServerMetrics holds the api process metrics. It also implements the
// scan observer consulted by the pipeline.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	scanRejections   *prometheus.CounterVec
	analysisTotal    *prometheus.CounterVec
	ocrOutcomes      *prometheus.CounterVec
	telemetryDropped *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	scanRejections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "rejections_total",
			Help:      "Scan requests rejected, by code.",
		},
		[]string{"service", "code"},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "analysis_total",
			Help:      "Completed analyses by terminal state and risk tier.",
		},
		[]string{"service", "state", "risk_tier"},
	)
	ocrOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "outcomes_total",
			Help:      "OCR attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	telemetryDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "dropped_total",
			Help:      "Events dropped because the dispatch buffer was full.",
		},
		[]string{"service"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		scanRejections,
		analysisTotal,
		ocrOutcomes,
		telemetryDropped,
		breakerState,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		service:          service,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		scanRejections:   scanRejections,
		analysisTotal:    analysisTotal,
		ocrOutcomes:      ocrOutcomes,
		telemetryDropped: telemetryDropped,
		breakerState:     breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded.
func normalizePath(path string) string {
	switch path {
	case "/v1/scan", "/api/scan":
		return "/v1/scan"
	case "/v1/consent", "/v1/telemetry", "/healthz", "/metrics", "/openapi.json":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordRejection(code domain.RejectionCode) {
	m.scanRejections.WithLabelValues(m.service, string(code)).Inc()
}

func (m *HTTPServerMetrics) RecordAnalysis(state domain.AnalysisState, tier domain.RiskTier) {
	m.analysisTotal.WithLabelValues(m.service, string(state), string(tier)).Inc()
}

func (m *HTTPServerMetrics) RecordOCR(outcome domain.OCROutcome) {
	m.ocrOutcomes.WithLabelValues(m.service, string(outcome)).Inc()
}

func (m *HTTPServerMetrics) RecordTelemetryDrop() {
	m.telemetryDropped.WithLabelValues(m.service).Inc()
}

// RecordBreakerState matches resilience.StateListener.
func (m *HTTPServerMetrics) RecordBreakerState(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(to))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
