package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
	"github.com/Gabothefounder/scanscam/internal/observability/metrics"
)

type Router struct {
	cfg       config.Config
	scan      ports.ScanService
	consent   ports.ConsentService
	telemetry ports.TelemetryService

	catalog  *Catalog
	metrics  *metrics.HTTPServerMetrics
	contract *Contract
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

func WithContract(c *Contract) RouterOption {
	return func(rt *Router) { rt.contract = c }
}

func WithCatalog(c *Catalog) RouterOption {
	return func(rt *Router) {
		if c != nil {
			rt.catalog = c
		}
	}
}

func NewRouter(
	cfg config.Config,
	scan ports.ScanService,
	consent ports.ConsentService,
	telemetry ports.TelemetryService,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		scan:      scan,
		consent:   consent,
		telemetry: telemetry,
		catalog:   defaultCatalog,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/scan", rt.scanMessage)
	mux.HandleFunc("/api/scan", rt.scanMessage)
	mux.HandleFunc("/v1/consent", rt.submitConsent)
	mux.HandleFunc("/v1/telemetry", rt.recordTelemetry)
	if rt.contract != nil {
		mux.HandleFunc("/openapi.json", rt.openAPI)
	}
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueTimeout, rt.catalog)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.catalog)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, r *http.Request) {
	if !rt.allowMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rt.contract.JSON)
}

type scanResponse struct {
	OK     bool               `json:"ok"`
	Result *domain.ScanResult `json:"result"`
}

// scanMessage spends an admission before the body is read, so a malformed
// body still counts against the caller.
func (rt *Router) scanMessage(w http.ResponseWriter, r *http.Request) {
	if !rt.allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	identity := identityFromRequest(r)

	if err := rt.scan.Admit(ctx, identity); err != nil {
		rt.writeError(ctx, w, err, domain.LanguageEnglish)
		return
	}

	req, err := decodeScanRequest(http.MaxBytesReader(w, r.Body, maxScanBodyBytes))
	if err != nil {
		rt.writeError(ctx, w, rt.scan.RejectMalformed(ctx, identity, err), domain.LanguageEnglish)
		return
	}
	req.Identity = identity

	result, err := rt.scan.Scan(ctx, req)
	if err != nil {
		rt.writeError(ctx, w, err, req.Language)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{OK: true, Result: result})
}

// submitConsent always answers 204. A body that cannot be decoded has nothing
// worth storing.
func (rt *Router) submitConsent(w http.ResponseWriter, r *http.Request) {
	if !rt.allowMethod(w, r, http.MethodPost) {
		return
	}
	var submission domain.ConsentSubmission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScanBodyBytes)).Decode(&submission); err == nil {
		rt.consent.Submit(r.Context(), submission)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) recordTelemetry(w http.ResponseWriter, r *http.Request) {
	if !rt.allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil || body == nil {
		writeFailure(ctx, w, http.StatusBadRequest, string(domain.CodeInvalidJSON), rt.catalog.Message(string(domain.CodeInvalidJSON), domain.LanguageEnglish))
		return
	}
	name, ok := body["event"].(string)
	if !ok || name == "" {
		writeFailure(ctx, w, http.StatusBadRequest, codeMissingEvent, rt.catalog.Message(codeMissingEvent, domain.LanguageEnglish))
		return
	}
	delete(body, "event")

	rt.telemetry.Record(ctx, name, body)
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeFailure(r.Context(), w, http.StatusMethodNotAllowed, codeMethodNotAllowed, rt.catalog.Message(codeMethodNotAllowed, domain.LanguageEnglish))
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
