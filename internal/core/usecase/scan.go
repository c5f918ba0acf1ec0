package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gabothefounder/scanscam/internal/core/analysis"
	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/intake"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const (
	eventSourceScan = "scan_api"
	eventSourceOCR  = "ocr"
	eventSourceAI   = "ai"
)

type rejectionEvent struct {
	name     string
	severity domain.Severity
	source   string
}

// rejectionEvents names the event emitted for each rejection code.
var rejectionEvents = map[domain.RejectionCode]rejectionEvent{
	domain.CodeRateLimited:          {"rate_limited", domain.SeverityWarning, eventSourceScan},
	domain.CodeInvalidJSON:          {"invalid_json", domain.SeverityInfo, eventSourceScan},
	domain.CodeInvalidInput:         {"invalid_input", domain.SeverityInfo, eventSourceScan},
	domain.CodeOCRBlocked:           {"ocr_blocked", domain.SeverityWarning, eventSourceOCR},
	domain.CodeOCRFailed:            {"ocr_failed", domain.SeverityWarning, eventSourceOCR},
	domain.CodeOCRNoText:            {"ocr_low_text", domain.SeverityInfo, eventSourceOCR},
	domain.CodeEmptyText:            {"empty_text", domain.SeverityInfo, eventSourceScan},
	domain.CodeTextTooShort:         {"text_too_short", domain.SeverityInfo, eventSourceScan},
	domain.CodeConversationDetected: {"non_message_input", domain.SeverityInfo, eventSourceScan},
	domain.CodeDuplicateScan:        {"duplicate_scan", domain.SeverityInfo, eventSourceScan},
	domain.CodeAnalysisFailed:       {"analysis_failed", domain.SeverityCritical, eventSourceAI},
}

// ScanDependencies groups the collaborators of the scan pipeline.
// Events and Observer may be nil.
type ScanDependencies struct {
	Limiter      ports.RateLimiter
	OCRGuard     ports.OCRGuard
	Duplicates   ports.DuplicateGuard
	Conversation ports.ConversationDetector
	OCR          ports.OCRClient
	Analyzer     ports.Analyzer
	Canonical    *analysis.Canonicalizer
	Events       ports.EventPublisher
	Observer     ports.ScanObserver
	MinLength    int
}

type ScanUseCase struct {
	limiter      ports.RateLimiter
	ocrGuard     ports.OCRGuard
	duplicates   ports.DuplicateGuard
	conversation ports.ConversationDetector
	ocr          ports.OCRClient
	analyzer     ports.Analyzer
	canonical    *analysis.Canonicalizer
	events       ports.EventPublisher
	observer     ports.ScanObserver
	minLength    int
	now          func() time.Time
}

func NewScanUseCase(deps ScanDependencies) *ScanUseCase {
	uc := &ScanUseCase{
		limiter:      deps.Limiter,
		ocrGuard:     deps.OCRGuard,
		duplicates:   deps.Duplicates,
		conversation: deps.Conversation,
		ocr:          deps.OCR,
		analyzer:     deps.Analyzer,
		canonical:    deps.Canonical,
		events:       deps.Events,
		observer:     deps.Observer,
		minLength:    deps.MinLength,
		now:          time.Now,
	}
	if uc.minLength <= 0 {
		uc.minLength = intake.DefaultMinLength
	}
	if uc.canonical == nil {
		uc.canonical = analysis.NewCanonicalizer(analysis.DefaultSignalLimit)
	}
	if uc.events == nil {
		uc.events = discardEvents{}
	}
	if uc.observer == nil {
		uc.observer = discardObserver{}
	}
	return uc
}

// Admit spends one admission for identity. A failing store lets the request through.
func (uc *ScanUseCase) Admit(ctx context.Context, identity string) error {
	allowed, err := uc.limiter.Admit(ctx, identity)
	if err != nil {
		slog.WarnContext(ctx, "guard_store_unavailable", "guard", "rate_limit", "identity", hashIdentity(identity), "error", err)
		return nil
	}
	if !allowed {
		return uc.reject(ctx, identity, domain.CodeRateLimited, nil)
	}
	return nil
}

// RejectMalformed reports a body that could not be decoded.
func (uc *ScanUseCase) RejectMalformed(ctx context.Context, identity string, cause error) error {
	return uc.reject(ctx, identity, domain.CodeInvalidJSON, cause)
}

func (uc *ScanUseCase) Scan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error) {
	if req.Text.Present == req.Image.Present {
		return nil, uc.reject(ctx, req.Identity, domain.CodeInvalidInput, nil)
	}

	var (
		text   string
		source domain.Source
		err    error
	)
	if req.Image.Present {
		text, err = uc.extract(ctx, req.Identity, req.Image)
		source = domain.SourceOCR
	} else {
		text, err = intake.NormalizeText(req.Text, uc.minLength)
		source = domain.SourceUserText
	}
	if err != nil {
		var rejection *domain.Rejection
		if !errors.As(err, &rejection) {
			rejection = &domain.Rejection{Code: domain.CodeInvalidInput, Err: err}
		}
		return nil, uc.reject(ctx, req.Identity, rejection.Code, rejection.Err)
	}

	if uc.conversation != nil && uc.conversation.IsConversational(text) {
		return nil, uc.reject(ctx, req.Identity, domain.CodeConversationDetected, nil)
	}

	repeated, err := uc.duplicates.IsRepeated(ctx, req.Identity, text)
	if err != nil {
		slog.WarnContext(ctx, "guard_store_unavailable", "guard", "duplicate", "identity", hashIdentity(req.Identity), "error", err)
	} else if repeated {
		return nil, uc.reject(ctx, req.Identity, domain.CodeDuplicateScan, nil)
	}

	verdict, err := uc.analyzer.Analyze(ctx, ports.AnalysisInput{
		Text:     text,
		Language: req.Language,
		Source:   source,
	})
	if err != nil {
		return nil, uc.reject(ctx, req.Identity, domain.CodeAnalysisFailed, err)
	}

	result := uc.canonical.Canonicalize(verdict, req.Language, source)
	uc.observer.RecordAnalysis(verdict.State, result.RiskTier)
	return &result, nil
}

// extract runs the image path: breaker check, OCR, minimum length.
func (uc *ScanUseCase) extract(ctx context.Context, identity string, image domain.Field) (string, error) {
	blocked, err := uc.ocrGuard.IsBlocked(ctx, identity)
	if err != nil {
		slog.WarnContext(ctx, "guard_store_unavailable", "guard", "ocr", "identity", hashIdentity(identity), "error", err)
	} else if blocked {
		return "", domain.Reject(domain.CodeOCRBlocked, nil)
	}

	var text string
	if !image.IsString {
		err = domain.WrapError(domain.ErrInvalidInput, "decode image", errImageNotString)
	} else {
		text, err = uc.ocr.ExtractText(ctx, image.Value)
	}
	if err != nil {
		uc.recordOCR(ctx, identity, domain.OCRFailure)
		return "", domain.Reject(domain.CodeOCRFailed, err)
	}

	text = strings.TrimSpace(text)
	if !intake.LongEnough(text, uc.minLength) {
		uc.recordOCR(ctx, identity, domain.OCRLowText)
		return "", domain.Reject(domain.CodeOCRNoText, nil)
	}

	uc.recordOCR(ctx, identity, domain.OCRSuccess)
	return text, nil
}

func (uc *ScanUseCase) recordOCR(ctx context.Context, identity string, outcome domain.OCROutcome) {
	uc.observer.RecordOCR(outcome)
	if err := uc.ocrGuard.RecordResult(ctx, identity, outcome); err != nil {
		slog.WarnContext(ctx, "guard_store_unavailable", "guard", "ocr", "identity", hashIdentity(identity), "error", err)
	}
}

func (uc *ScanUseCase) reject(ctx context.Context, identity string, code domain.RejectionCode, cause error) error {
	ev := rejectionEvents[code]
	attrs := []any{"code", string(code), "event", ev.name, "identity", hashIdentity(identity)}
	switch {
	case code == domain.CodeAnalysisFailed:
		slog.ErrorContext(ctx, "scan_rejected", append(attrs, "error", cause)...)
	case code == domain.CodeOCRFailed:
		slog.WarnContext(ctx, "scan_rejected", append(attrs, "error", cause)...)
	default:
		slog.InfoContext(ctx, "scan_rejected", attrs...)
	}

	uc.observer.RecordRejection(code)
	uc.events.Publish(ctx, domain.Event{
		ID:         uuid.NewString(),
		Type:       ev.name,
		Severity:   ev.severity,
		Source:     ev.source,
		Context:    map[string]any{"code": string(code)},
		OccurredAt: uc.now().UTC(),
	})
	return domain.Reject(code, cause)
}

// hashIdentity keeps raw client addresses out of logs.
func hashIdentity(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:6])
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, domain.Event) {}

type discardObserver struct{}

func (discardObserver) RecordRejection(domain.RejectionCode)                {}
func (discardObserver) RecordAnalysis(domain.AnalysisState, domain.RiskTier) {}
func (discardObserver) RecordOCR(domain.OCROutcome)                          {}
