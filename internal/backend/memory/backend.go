// Package memory is an in-process search backend with a seeded catalog. It
// serves the mock API and the "mock" transport.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// Backend holds the catalog, searches, votes and recorded timings.
type Backend struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []domain.Category
	brands     []domain.Brand
	searches   map[string]*search
	votes      map[voteKey]bool
	durations  []domain.SearchDuration

	corrector   domain.Corrector
	latency     time.Duration
	streamDelay time.Duration
	newID       func() string
	now         func() time.Time
	logger      *zap.Logger
}

type search struct {
	id        string
	raw       string
	corrected string
	hasImage  bool
	products  []domain.Product
	timing    backendTiming
}

// backendTiming is what the server measured for one search, in milliseconds.
type backendTiming struct {
	total      float64
	correction float64
	retrieval  float64
}

type voteKey struct {
	searchID  string
	productID string
}

// Option configures a Backend.
type Option func(*Backend)

// WithCorrector corrects queries before ranking. Without one the query is used as typed.
func WithCorrector(c domain.Corrector) Option {
	return func(b *Backend) { b.corrector = c }
}

// WithLatency delays every call by d.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) { b.latency = d }
}

// WithStreamDelay delays every streamed record by d.
func WithStreamDelay(d time.Duration) Option {
	return func(b *Backend) { b.streamDelay = d }
}

// WithIDGenerator overrides the uuid generator for search and product ids.
func WithIDGenerator(fn func() string) Option {
	return func(b *Backend) { b.newID = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a backend seeded with the demo catalog.
func New(opts ...Option) *Backend {
	b := &Backend{
		categories: seedCategories(),
		brands:     seedBrands(),
		searches:   make(map[string]*search),
		votes:      make(map[voteKey]bool),
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, p := range seedProducts {
		b.products = append(b.products, b.buildProduct(p.id, domain.ProductInput{
			Name:          p.name,
			Description:   p.description,
			Price:         p.price,
			BrandName:     p.brand,
			SubcategoryID: b.subcategoryID(p.subcategory),
			Images:        []string{placeholderImage},
		}))
	}
	return b
}

// Ping implements a health check. The in-process backend is always up.
func (b *Backend) Ping(context.Context) error { return nil }

// Streaming returns a view of b that delivers search results as a stream.
func (b *Backend) Streaming() *StreamingBackend {
	return &StreamingBackend{Backend: b}
}

func (b *Backend) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) sinceMs(start time.Time) float64 {
	return float64(b.now().Sub(start).Microseconds()) / 1000
}

func cloneProducts(ps []domain.Product) []domain.Product {
	return slices.Clone(ps)
}
