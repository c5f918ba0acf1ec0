package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const eventSourceClient = "scan_telemetry"

type TelemetryUseCase struct {
	events ports.EventPublisher
	now    func() time.Time
}

func NewTelemetryUseCase(events ports.EventPublisher) *TelemetryUseCase {
	if events == nil {
		events = discardEvents{}
	}
	return &TelemetryUseCase{events: events, now: time.Now}
}

// Record forwards a client-side event. It never fails.
func (uc *TelemetryUseCase) Record(ctx context.Context, name string, data map[string]any) {
	uc.events.Publish(ctx, domain.Event{
		ID:         uuid.NewString(),
		Type:       name,
		Severity:   domain.SeverityInfo,
		Source:     eventSourceClient,
		Context:    data,
		OccurredAt: uc.now().UTC(),
	})
}
