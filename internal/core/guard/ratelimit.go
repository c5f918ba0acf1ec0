package guard

import (
	"context"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const rateLimitPrefix = "ratelimit:"

// minEntryTTL keeps an entry written at its reset instant from being stored
// without expiry; redis reads a zero TTL as "keep forever".
const minEntryTTL = time.Millisecond

type rateLimitEntry struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// RateLimiter is a fixed-window admission counter per identity. The window
// starts on the first admission after the previous one expired, so a caller
// can burst up to twice the cap across a boundary.
type RateLimiter struct {
	store  ports.KeyValueStore
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(store ports.KeyValueStore, max int, window time.Duration, opts ...Option) *RateLimiter {
	o := buildOptions(opts)
	return &RateLimiter{
		store:  store,
		max:    max,
		window: window,
		now:    o.now,
	}
}

func (l *RateLimiter) Admit(ctx context.Context, identity string) (bool, error) {
	key := rateLimitPrefix + identity
	now := l.now()

	var entry rateLimitEntry
	found, err := loadJSON(ctx, l.store, key, &entry)
	if err != nil {
		return false, err
	}

	if !found || now.After(entry.ResetAt) {
		entry = rateLimitEntry{Count: 1, ResetAt: now.Add(l.window)}
		if err := saveJSON(ctx, l.store, key, entry, l.window); err != nil {
			return false, err
		}
		return true, nil
	}

	if entry.Count >= l.max {
		return false, nil
	}

	entry.Count++
	if err := saveJSON(ctx, l.store, key, entry, max(entry.ResetAt.Sub(now), minEntryTTL)); err != nil {
		return false, err
	}
	return true, nil
}
