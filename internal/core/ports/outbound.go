package ports

import (
	"context"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// KeyValueStore holds guard state with per-key expiry.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// RateLimiter caps admissions per identity.
type RateLimiter interface {
	Admit(ctx context.Context, identity string) (bool, error)
}

// OCRGuard blocks image submissions from identities with repeated OCR trouble.
type OCRGuard interface {
	IsBlocked(ctx context.Context, identity string) (bool, error)
	RecordResult(ctx context.Context, identity string, outcome domain.OCROutcome) error
}

// DuplicateGuard detects resubmission of the same content by the same identity.
type DuplicateGuard interface {
	IsRepeated(ctx context.Context, identity, text string) (bool, error)
}

// ConversationDetector flags user commentary that is not a received message.
type ConversationDetector interface {
	IsConversational(text string) bool
}

// OCRClient extracts text from a data URL or bare base64 image.
type OCRClient interface {
	ExtractText(ctx context.Context, image string) (string, error)
}

// ModelClient sends one prompt to the language model and returns its raw text.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnalysisInput is the normalized message handed to the analyzer.
type AnalysisInput struct {
	Text     string
	Language domain.Language
	Source   domain.Source
}

// Analyzer runs the model protocol and returns a validated or fallback verdict.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (domain.Analysis, error)
}

// EventPublisher is a one-way, best-effort event sink. It never blocks the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// EventQueue moves events between the API and the worker.
type EventQueue interface {
	PublishEvent(ctx context.Context, event domain.Event) error
	SubscribeEvents(ctx context.Context, handler func(context.Context, domain.Event) error) error
}

// EventRepository persists operational events.
type EventRepository interface {
	Insert(ctx context.Context, event domain.Event) error
}

// ScanArchive persists consented scan results.
type ScanArchive interface {
	SaveConsented(ctx context.Context, record domain.ConsentRecord) error
}

// ScanObserver receives pipeline outcomes for metrics.
type ScanObserver interface {
	RecordRejection(code domain.RejectionCode)
	RecordAnalysis(state domain.AnalysisState, tier domain.RiskTier)
	RecordOCR(outcome domain.OCROutcome)
}
