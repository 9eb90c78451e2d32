// Package marker stores durable "already recorded" markers keyed by search id.
package marker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "telemetry:"

// store is the consumer interface for marker operations (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// KV keeps markers in Redis or Valkey with SET NX, so concurrent clients claim a search id once.
type KV struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewKV creates a marker store. A zero ttl keeps markers forever.
func NewKV(s store, ttl time.Duration) *KV {
	return &KV{store: s, ttl: ttl, now: time.Now}
}

// MarkOnce claims searchID and reports whether this call was the first.
func (k *KV) MarkOnce(ctx context.Context, searchID string) (bool, error) {
	value := []byte(strconv.FormatInt(k.now().Unix(), 10))
	ok, err := k.store.SetNX(ctx, keyPrefix+searchID, value, k.ttl)
	if err != nil {
		return false, fmt.Errorf("marker SETNX %s: %w", searchID, err)
	}
	return ok, nil
}

// Marked reports whether searchID has been claimed.
func (k *KV) Marked(ctx context.Context, searchID string) (bool, error) {
	ok, err := k.store.Exists(ctx, keyPrefix+searchID)
	if err != nil {
		return false, fmt.Errorf("marker EXISTS %s: %w", searchID, err)
	}
	return ok, nil
}
