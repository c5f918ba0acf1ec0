package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

type options struct {
	now func() time.Time
}

// Option configures a guard.
type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func loadJSON(ctx context.Context, store ports.KeyValueStore, key string, out any) (bool, error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry is treated as absent and overwritten.
		return false, nil
	}
	return true, nil
}

func saveJSON(ctx context.Context, store ports.KeyValueStore, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := store.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
