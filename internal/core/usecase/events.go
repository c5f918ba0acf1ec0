package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

// EventIngestUseCase stores events the worker pulls off the queue.
type EventIngestUseCase struct {
	repo ports.EventRepository
	now  func() time.Time
}

func NewEventIngestUseCase(repo ports.EventRepository) *EventIngestUseCase {
	return &EventIngestUseCase{repo: repo, now: time.Now}
}

func (uc *EventIngestUseCase) Ingest(ctx context.Context, event domain.Event) error {
	if strings.TrimSpace(event.Type) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "ingest event", fmt.Errorf("event_type is required"))
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Severity == "" {
		event.Severity = domain.SeverityInfo
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = uc.now().UTC()
	}

	if err := uc.repo.Insert(ctx, event); err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}
	return nil
}
