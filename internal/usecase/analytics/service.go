// Package analytics serves the admin latency statistics.
package analytics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/cache"
	"github.com/kailas-cloud/smartsearch/internal/usecase/access"
)

// TimingsKey is the cache key of the search timing list.
var TimingsKey = cache.Key{"searchDurations"}

// Service computes timing breakdowns for admins.
type Service struct {
	source  Source
	cache   *cache.Store
	session access.Session
	logger  *zap.Logger
}

// New creates an analytics service.
func New(src Source, store *cache.Store, sess access.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: src, cache: store, session: sess, logger: logger}
}

// Timings returns one breakdown per recorded search, in server order.
func (s *Service) Timings(ctx context.Context) ([]Breakdown, error) {
	if err := access.RequireAdmin(s.session); err != nil {
		return nil, err
	}
	timings, err := cache.Query(ctx, s.cache, TimingsKey, s.source.SearchTimings)
	if err != nil {
		return nil, fmt.Errorf("search timings: %w", err)
	}
	rows := make([]Breakdown, 0, len(timings))
	for _, t := range timings {
		rows = append(rows, NewBreakdown(t))
	}
	s.logger.Debug("search timings loaded", zap.Int("rows", len(rows)))
	return rows, nil
}

// Summary aggregates Timings.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.Timings(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rows), nil
}

// Refresh drops the cached timings so the next read refetches them.
func (s *Service) Refresh() {
	s.cache.Invalidate(TimingsKey)
}
