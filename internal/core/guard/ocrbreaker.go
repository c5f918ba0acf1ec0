package guard

import (
	"context"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const ocrGuardPrefix = "ocrguard:"

type ocrStats struct {
	Failures int       `json:"failures"`
	LowText  int       `json:"low_text"`
	LastSeen time.Time `json:"last_seen"`
}

// OCRBreaker blocks image submissions for an identity once it has produced
// too many OCR failures or low-text extractions inside the window. Successes
// never reset the counters; only a full idle window does.
type OCRBreaker struct {
	store       ports.KeyValueStore
	window      time.Duration
	maxFailures int
	maxLowText  int
	now         func() time.Time
}

func NewOCRBreaker(store ports.KeyValueStore, window time.Duration, maxFailures, maxLowText int, opts ...Option) *OCRBreaker {
	o := buildOptions(opts)
	return &OCRBreaker{
		store:       store,
		window:      window,
		maxFailures: maxFailures,
		maxLowText:  maxLowText,
		now:         o.now,
	}
}

func (b *OCRBreaker) IsBlocked(ctx context.Context, identity string) (bool, error) {
	stats, err := b.touch(ctx, identity)
	if err != nil {
		return false, err
	}
	return stats.Failures >= b.maxFailures || stats.LowText >= b.maxLowText, nil
}

func (b *OCRBreaker) RecordResult(ctx context.Context, identity string, outcome domain.OCROutcome) error {
	key := ocrGuardPrefix + identity
	stats, err := b.load(ctx, key)
	if err != nil {
		return err
	}

	switch outcome {
	case domain.OCRFailure:
		stats.Failures++
	case domain.OCRLowText:
		stats.LowText++
	}
	return saveJSON(ctx, b.store, key, stats, b.window)
}

// touch loads the stats and persists the refreshed lastSeen.
func (b *OCRBreaker) touch(ctx context.Context, identity string) (ocrStats, error) {
	key := ocrGuardPrefix + identity
	stats, err := b.load(ctx, key)
	if err != nil {
		return ocrStats{}, err
	}
	if err := saveJSON(ctx, b.store, key, stats, b.window); err != nil {
		return ocrStats{}, err
	}
	return stats, nil
}

// load returns the live record, or a zeroed one when the previous record sat
// idle for longer than the window.
func (b *OCRBreaker) load(ctx context.Context, key string) (ocrStats, error) {
	now := b.now()

	var stats ocrStats
	found, err := loadJSON(ctx, b.store, key, &stats)
	if err != nil {
		return ocrStats{}, err
	}
	if !found || now.Sub(stats.LastSeen) > b.window {
		return ocrStats{LastSeen: now}, nil
	}
	stats.LastSeen = now
	return stats, nil
}
