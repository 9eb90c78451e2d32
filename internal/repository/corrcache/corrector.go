// Package corrcache caches query corrections in a key-value store.
package corrcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/db"
	"github.com/kailas-cloud/smartsearch/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "correction:"

// store is the consumer interface for the correction cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedCorrector caches corrections keyed by the normalized query.
type CachedCorrector struct {
	inner      domain.Corrector
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. A zero ttl keeps corrections forever.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Corrector,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedCorrector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCorrector{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Correct returns a cached correction or calls the inner corrector.
// A hit reports zero tokens.
func (c *CachedCorrector) Correct(ctx context.Context, text string) (domain.Correction, error) {
	key := cacheKey(text)

	if corrected, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.Correction{Text: corrected}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Correct(ctx, text)
	if err != nil {
		return domain.Correction{}, fmt.Errorf("correct query: %w", err)
	}

	c.putToCache(ctx, key, result.Text)
	return result, nil
}

func (c *CachedCorrector) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes the query after trimming and lowercasing it.
func cacheKey(text string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedCorrector) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached correction", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *CachedCorrector) putToCache(ctx context.Context, key, corrected string) {
	if corrected == "" {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, []byte(corrected), c.ttl); err != nil {
		c.logger.Warn("Failed to cache correction", zap.String("key", key), zap.Error(err))
	}
}
