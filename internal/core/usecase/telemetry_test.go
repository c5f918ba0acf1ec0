package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

func TestTelemetryRecordPublishesClientEvent(t *testing.T) {
	events := &publisherFake{}
	uc := NewTelemetryUseCase(events)

	uc.Record(context.Background(), "scan_shown", map[string]any{"risk_tier": "high"})

	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.Type != "scan_shown" || ev.Source != "scan_telemetry" || ev.Severity != domain.SeverityInfo {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Context["risk_tier"] != "high" || ev.ID == "" {
		t.Fatalf("unexpected event context %+v", ev)
	}
}

type eventRepoFake struct {
	inserted []domain.Event
	err      error
}

func (f *eventRepoFake) Insert(_ context.Context, event domain.Event) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, event)
	return nil
}

func TestIngestFillsDefaults(t *testing.T) {
	repo := &eventRepoFake{}
	uc := NewEventIngestUseCase(repo)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	if err := uc.Ingest(context.Background(), domain.Event{Type: "duplicate_scan", Source: "scan_api"}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	got := repo.inserted[0]
	if got.ID == "" || got.Severity != domain.SeverityInfo || !got.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestIngestRejectsUntypedEvent(t *testing.T) {
	repo := &eventRepoFake{}
	err := NewEventIngestUseCase(repo).Ingest(context.Background(), domain.Event{Type: "  "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("nothing should be inserted")
	}
}

func TestIngestWrapsRepositoryError(t *testing.T) {
	errDB := errors.New("relation scan_events does not exist")
	uc := NewEventIngestUseCase(&eventRepoFake{err: errDB})

	err := uc.Ingest(context.Background(), domain.Event{ID: "evt-1", Type: "rate_limited"})
	if !errors.Is(err, errDB) {
		t.Fatalf("expected repository error, got %v", err)
	}
	if !strings.Contains(err.Error(), "evt-1") {
		t.Fatalf("expected event id in error, got %v", err)
	}
}
