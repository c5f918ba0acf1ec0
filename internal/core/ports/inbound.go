package ports

import (
	"context"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// ScanService is the inbound contract for the scan intake pipeline.
// Admit is consulted before the request body is decoded; RejectMalformed
// reports a body that never reached Scan.
type ScanService interface {
	Admit(ctx context.Context, identity string) error
	RejectMalformed(ctx context.Context, identity string, cause error) error
	Scan(ctx context.Context, req domain.ScanRequest) (*domain.ScanResult, error)
}

// ConsentService persists a shared result when the user agreed to it.
type ConsentService interface {
	Submit(ctx context.Context, submission domain.ConsentSubmission)
}

// TelemetryService accepts client-side telemetry.
type TelemetryService interface {
	Record(ctx context.Context, name string, data map[string]any)
}

// EventIngestor stores events consumed from the queue.
type EventIngestor interface {
	Ingest(ctx context.Context, event domain.Event) error
}
