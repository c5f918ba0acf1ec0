package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/Gabothefounder/scanscam/internal/core/ports"
)

const duplicatePrefix = "dup:"

// DuplicateSuppressor remembers content fingerprints per identity for a TTL.
type DuplicateSuppressor struct {
	store ports.KeyValueStore
	ttl   time.Duration
	now   func() time.Time
}

func NewDuplicateSuppressor(store ports.KeyValueStore, ttl time.Duration, opts ...Option) *DuplicateSuppressor {
	o := buildOptions(opts)
	return &DuplicateSuppressor{
		store: store,
		ttl:   ttl,
		now:   o.now,
	}
}

// IsRepeated reports whether the same identity already submitted equivalent
// text inside the TTL, recording the fingerprint when it did not.
func (d *DuplicateSuppressor) IsRepeated(ctx context.Context, identity, text string) (bool, error) {
	key := duplicatePrefix + identity + ":" + Fingerprint(text)
	seenAt := []byte(strconv.FormatInt(d.now().UnixMilli(), 10))

	stored, err := d.store.SetNX(ctx, key, seenAt, d.ttl)
	if err != nil {
		return false, fmt.Errorf("record fingerprint: %w", err)
	}
	return !stored, nil
}

// Fingerprint case-folds text, collapses whitespace runs, trims and hashes it.
func Fingerprint(text string) string {
	folded := cases.Fold().String(text)
	normalized := strings.Join(strings.Fields(folded), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
