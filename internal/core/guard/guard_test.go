package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
	"github.com/Gabothefounder/scanscam/internal/infrastructure/kvstore/memory"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newStore(clock *fakeClock) *memory.Store {
	return memory.New(memory.WithClock(clock.Now))
}

func mustAdmit(t *testing.T, limiter *RateLimiter, identity string, want bool) {
	t.Helper()
	ok, err := limiter.Admit(context.Background(), identity)
	if err != nil {
		t.Fatalf("Admit(%q) error = %v", identity, err)
	}
	if ok != want {
		t.Fatalf("Admit(%q) = %v, want %v", identity, ok, want)
	}
}

func TestRateLimiterRejectsBeyondCapUntilReset(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(newStore(clock), 10, time.Hour, WithClock(clock.Now))

	for i := 1; i <= 10; i++ {
		mustAdmit(t, limiter, "1.2.3.4", true)
	}
	mustAdmit(t, limiter, "1.2.3.4", false)

	// The window is still open exactly at resetAt.
	clock.Advance(time.Hour)
	mustAdmit(t, limiter, "1.2.3.4", false)

	clock.Advance(time.Millisecond)
	mustAdmit(t, limiter, "1.2.3.4", true)
}

func TestRateLimiterIsolatesIdentities(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(newStore(clock), 1, time.Hour, WithClock(clock.Now))

	mustAdmit(t, limiter, "a", true)
	mustAdmit(t, limiter, "a", false)
	mustAdmit(t, limiter, "b", true)
}

func TestRateLimiterAllowsBurstAcrossBoundary(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(newStore(clock), 3, time.Hour, WithClock(clock.Now))

	mustAdmit(t, limiter, "x", true)
	clock.Advance(59 * time.Minute)
	for i := 0; i < 2; i++ {
		mustAdmit(t, limiter, "x", true)
	}
	clock.Advance(2 * time.Minute)
	for i := 0; i < 3; i++ {
		mustAdmit(t, limiter, "x", true)
	}
}

// ttlRecorder remembers the TTL of every write.
type ttlRecorder struct {
	*memory.Store
	ttls []time.Duration
}

func (r *ttlRecorder) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.ttls = append(r.ttls, ttl)
	return r.Store.Set(ctx, key, value, ttl)
}

func TestRateLimiterNeverWritesZeroTTL(t *testing.T) {
	clock := newFakeClock()
	store := &ttlRecorder{Store: newStore(clock)}
	limiter := NewRateLimiter(store, 5, time.Hour, WithClock(clock.Now))

	mustAdmit(t, limiter, "id", true)
	clock.Advance(time.Hour)
	mustAdmit(t, limiter, "id", true)

	if len(store.ttls) != 2 {
		t.Fatalf("expected two writes, got %d", len(store.ttls))
	}
	if store.ttls[1] <= 0 {
		t.Fatalf("increment at resetAt must keep a positive TTL, got %s", store.ttls[1])
	}
}

func TestOCRBreakerBlocksAfterFailuresAndRecoversAfterWindow(t *testing.T) {
	clock := newFakeClock()
	breaker := NewOCRBreaker(newStore(clock), 10*time.Minute, 3, 3, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		blocked, err := breaker.IsBlocked(ctx, "id")
		if err != nil || blocked {
			t.Fatalf("attempt %d: blocked=%v err=%v", i, blocked, err)
		}
		if err := breaker.RecordResult(ctx, "id", domain.OCRFailure); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
	}

	blocked, err := breaker.IsBlocked(ctx, "id")
	if err != nil || !blocked {
		t.Fatalf("expected block after three failures, got blocked=%v err=%v", blocked, err)
	}

	clock.Advance(10*time.Minute + time.Second)
	blocked, err = breaker.IsBlocked(ctx, "id")
	if err != nil || blocked {
		t.Fatalf("an idle window resets the record, got blocked=%v err=%v", blocked, err)
	}
}

func TestOCRBreakerSuccessDoesNotResetCounters(t *testing.T) {
	clock := newFakeClock()
	breaker := NewOCRBreaker(newStore(clock), 10*time.Minute, 3, 3, WithClock(clock.Now))
	ctx := context.Background()

	for _, outcome := range []domain.OCROutcome{domain.OCRLowText, domain.OCRLowText, domain.OCRSuccess, domain.OCRLowText} {
		if err := breaker.RecordResult(ctx, "id", outcome); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
	}

	blocked, err := breaker.IsBlocked(ctx, "id")
	if err != nil || !blocked {
		t.Fatalf("expected block after three low-text results, got blocked=%v err=%v", blocked, err)
	}
}

func TestOCRBreakerTouchExtendsWindow(t *testing.T) {
	clock := newFakeClock()
	breaker := NewOCRBreaker(newStore(clock), 10*time.Minute, 3, 3, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := breaker.RecordResult(ctx, "id", domain.OCRFailure); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		clock.Advance(9 * time.Minute)
		blocked, err := breaker.IsBlocked(ctx, "id")
		if err != nil || !blocked {
			t.Fatalf("each check refreshes lastSeen, got blocked=%v err=%v at step %d", blocked, err, i)
		}
	}
}

func TestDuplicateSuppressorMatchesEquivalentText(t *testing.T) {
	clock := newFakeClock()
	dup := NewDuplicateSuppressor(newStore(clock), 10*time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	cases := []struct {
		identity string
		text     string
		want     bool
	}{
		{"id", "Your account  will be SUSPENDED", false},
		{"id", "  your account will be suspended\n", true},
		{"other", "your account will be suspended", false},
	}
	for _, tc := range cases {
		repeated, err := dup.IsRepeated(ctx, tc.identity, tc.text)
		if err != nil {
			t.Fatalf("IsRepeated() error = %v", err)
		}
		if repeated != tc.want {
			t.Fatalf("IsRepeated(%q, %q) = %v, want %v", tc.identity, tc.text, repeated, tc.want)
		}
	}
}

func TestDuplicateSuppressorForgetsAfterTTL(t *testing.T) {
	clock := newFakeClock()
	dup := NewDuplicateSuppressor(newStore(clock), 10*time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	_, _ = dup.IsRepeated(ctx, "id", "same text here")
	clock.Advance(9 * time.Minute)
	if repeated, _ := dup.IsRepeated(ctx, "id", "same text here"); !repeated {
		t.Fatalf("expected repeat inside the TTL")
	}

	clock.Advance(2 * time.Minute)
	if repeated, _ := dup.IsRepeated(ctx, "id", "same text here"); repeated {
		t.Fatalf("expected the fingerprint to expire")
	}
}

func TestFingerprintNormalization(t *testing.T) {
	if Fingerprint("Hello   World") != Fingerprint("\thello world ") {
		t.Fatalf("case and whitespace must not change the fingerprint")
	}
	if Fingerprint("hello world") == Fingerprint("hello  worlds") {
		t.Fatalf("different text must not share a fingerprint")
	}
	if got := len(Fingerprint("")); got != 64 {
		t.Fatalf("expected a hex sha256, got length %d", got)
	}
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errStoreDown
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error { return errStoreDown }
func (failingStore) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, errStoreDown
}

func TestGuardsSurfaceStoreErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewRateLimiter(failingStore{}, 1, time.Minute).Admit(ctx, "id"); !errors.Is(err, errStoreDown) {
		t.Fatalf("rate limiter: expected store error, got %v", err)
	}
	if _, err := NewOCRBreaker(failingStore{}, time.Minute, 1, 1).IsBlocked(ctx, "id"); !errors.Is(err, errStoreDown) {
		t.Fatalf("ocr breaker: expected store error, got %v", err)
	}
	if _, err := NewDuplicateSuppressor(failingStore{}, time.Minute).IsRepeated(ctx, "id", "text"); !errors.Is(err, errStoreDown) {
		t.Fatalf("duplicate suppressor: expected store error, got %v", err)
	}
}
