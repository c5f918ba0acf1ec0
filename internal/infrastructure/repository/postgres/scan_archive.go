package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// ScanArchive stores results users agreed to share.
type ScanArchive struct {
	db *sql.DB
}

func NewScanArchive(db *sql.DB) *ScanArchive {
	return &ScanArchive{db: db}
}

func (a *ScanArchive) SaveConsented(ctx context.Context, record domain.ConsentRecord) error {
	signals := record.Signals
	if signals == nil {
		signals = []domain.Signal{}
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	qualityJSON, err := json.Marshal(record.DataQuality)
	if err != nil {
		return fmt.Errorf("marshal data quality: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
INSERT INTO consented_scans (
	id, risk_tier, summary_sentence, signals, language, source, data_quality, used_fallback, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		record.ID, string(record.RiskTier), nullableString(record.SummarySentence), signalsJSON,
		nullableText(string(record.Language)), nullableText(string(record.Source)), qualityJSON,
		record.UsedFallback, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consented scan: %w", err)
	}
	return nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
