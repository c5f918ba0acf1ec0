package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

type archiveFake struct {
	saved []domain.ConsentRecord
	err   error
}

func (f *archiveFake) SaveConsented(_ context.Context, record domain.ConsentRecord) error {
	f.saved = append(f.saved, record)
	return f.err
}

func sharedScan() *domain.ScanResult {
	summary := "Impersonates a delivery company to collect a fee."
	return &domain.ScanResult{
		RiskTier:        domain.RiskHigh,
		SummarySentence: &summary,
		Signals:         []domain.Signal{{Type: domain.SignalPaymentRequest, Evidence: "pay $1.99"}},
		Language:        domain.LanguageEnglish,
		Source:          domain.SourceOCR,
		DataQuality:     domain.ScanDataQuality{IsMessageLike: true},
	}
}

func TestConsentPersistsAgreedResult(t *testing.T) {
	archive := &archiveFake{}
	uc := NewConsentUseCase(archive)

	uc.Submit(context.Background(), domain.ConsentSubmission{Consent: true, Scan: sharedScan()})

	if len(archive.saved) != 1 {
		t.Fatalf("expected one insert, got %d", len(archive.saved))
	}
	got := archive.saved[0]
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", got)
	}
	if got.RiskTier != domain.RiskHigh || got.Source != domain.SourceOCR || len(got.Signals) != 1 {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestConsentSkipsIneligibleSubmissions(t *testing.T) {
	noTier := sharedScan()
	noTier.RiskTier = ""
	noSignals := sharedScan()
	noSignals.Signals = nil
	notMessage := sharedScan()
	notMessage.DataQuality.IsMessageLike = false

	cases := map[string]domain.ConsentSubmission{
		"declined":    {Consent: false, Scan: sharedScan()},
		"no result":   {Consent: true},
		"no tier":     {Consent: true, Scan: noTier},
		"no signals":  {Consent: true, Scan: noSignals},
		"not message": {Consent: true, Scan: notMessage},
	}
	for name, submission := range cases {
		archive := &archiveFake{}
		NewConsentUseCase(archive).Submit(context.Background(), submission)
		if len(archive.saved) != 0 {
			t.Fatalf("%s: expected nothing persisted, got %+v", name, archive.saved)
		}
	}
}

func TestConsentAcceptsEmptySignals(t *testing.T) {
	scan := sharedScan()
	scan.Signals = []domain.Signal{}
	archive := &archiveFake{}

	NewConsentUseCase(archive).Submit(context.Background(), domain.ConsentSubmission{Consent: true, Scan: scan})
	if len(archive.saved) != 1 {
		t.Fatalf("an empty signal list is still a list, got %d inserts", len(archive.saved))
	}
}

func TestConsentWriteFailureIsSwallowedAndNotRetried(t *testing.T) {
	archive := &archiveFake{err: errors.New("connection reset")}
	uc := NewConsentUseCase(archive)

	uc.Submit(context.Background(), domain.ConsentSubmission{Consent: true, Scan: sharedScan()})
	if len(archive.saved) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(archive.saved))
	}
}
