package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

// ConsentUseCase archives results the user explicitly agreed to share.
// Nothing here is reported back to the client.
type ConsentUseCase struct {
	archive ports.ScanArchive
	now     func() time.Time
}

func NewConsentUseCase(archive ports.ScanArchive) *ConsentUseCase {
	return &ConsentUseCase{archive: archive, now: time.Now}
}

func (uc *ConsentUseCase) Submit(ctx context.Context, submission domain.ConsentSubmission) {
	record, ok := uc.recordFrom(submission)
	if !ok {
		return
	}

	slog.InfoContext(ctx, "consent_insert",
		"risk_tier", record.RiskTier,
		"language", record.Language,
		"source", record.Source,
		"signals_count", len(record.Signals),
		"has_summary", record.SummarySentence != nil,
		"used_fallback", record.UsedFallback,
	)

	// Single attempt.
	if err := uc.archive.SaveConsented(ctx, record); err != nil {
		slog.ErrorContext(ctx, "consent_write_failed", "error", err, "timestamp", uc.now().UTC().Format(time.RFC3339))
	}
}

func (uc *ConsentUseCase) recordFrom(submission domain.ConsentSubmission) (domain.ConsentRecord, bool) {
	if !submission.Consent {
		return domain.ConsentRecord{}, false
	}
	scan := submission.Scan
	if scan == nil || scan.RiskTier == "" || scan.Signals == nil || !scan.DataQuality.IsMessageLike {
		return domain.ConsentRecord{}, false
	}

	return domain.ConsentRecord{
		ID:              uuid.NewString(),
		RiskTier:        scan.RiskTier,
		SummarySentence: scan.SummarySentence,
		Signals:         scan.Signals,
		Language:        scan.Language,
		Source:          scan.Source,
		DataQuality:     scan.DataQuality,
		UsedFallback:    scan.UsedFallback,
		CreatedAt:       uc.now().UTC(),
	}, true
}
