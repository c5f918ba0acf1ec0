package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert stores event. Redelivered events are ignored.
func (r *EventRepository) Insert(ctx context.Context, event domain.Event) error {
	contextJSON := []byte("{}")
	if len(event.Context) > 0 {
		raw, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("marshal event context: %w", err)
		}
		contextJSON = raw
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO scan_events (id, event_type, severity, source, context, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING
`, event.ID, event.Type, string(event.Severity), event.Source, contextJSON, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert scan event: %w", err)
	}
	return nil
}

// EventCount is the number of events of one type.
type EventCount struct {
	Type     string
	Severity domain.Severity
	Count    int64
}

// CountSince groups events newer than since by type and severity.
func (r *EventRepository) CountSince(ctx context.Context, since time.Time) ([]EventCount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT event_type, severity, COUNT(*)
FROM scan_events
WHERE occurred_at >= $1
GROUP BY event_type, severity
ORDER BY COUNT(*) DESC, event_type
`, since)
	if err != nil {
		return nil, fmt.Errorf("count scan events: %w", err)
	}
	defer rows.Close()

	out := make([]EventCount, 0)
	for rows.Next() {
		var (
			c        EventCount
			severity string
		)
		if err := rows.Scan(&c.Type, &severity, &c.Count); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		c.Severity = domain.Severity(severity)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event counts: %w", err)
	}
	return out, nil
}
