package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Gabothefounder/scanscam/internal/core/guard"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "scanscam:"), mr
}

func TestGetMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, found, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatalf("expected missing key")
	}
}

func TestSetAppliesPrefixAndTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "ratelimit:1.2.3.4", []byte(`{"count":1}`), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("scanscam:ratelimit:1.2.3.4") {
		t.Fatalf("expected prefixed key in redis")
	}
	if ttl := mr.TTL("scanscam:ratelimit:1.2.3.4"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, found, _ := store.Get(ctx, "ratelimit:1.2.3.4"); found {
		t.Fatalf("expected key to expire")
	}
}

func TestDuplicateSuppressorOverRedis(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	dup := guard.NewDuplicateSuppressor(store, 10*time.Minute)

	repeated, err := dup.IsRepeated(ctx, "id-1", "Your parcel is waiting")
	if err != nil || repeated {
		t.Fatalf("first call = %v, %v; want false, nil", repeated, err)
	}
	repeated, err = dup.IsRepeated(ctx, "id-1", "  YOUR parcel   is waiting ")
	if err != nil || !repeated {
		t.Fatalf("second call = %v, %v; want true, nil", repeated, err)
	}

	mr.FastForward(11 * time.Minute)
	repeated, _ = dup.IsRepeated(ctx, "id-1", "Your parcel is waiting")
	if repeated {
		t.Fatalf("expected fingerprint to expire after ttl")
	}
}
