package smartsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/backend/memory"
	"github.com/kailas-cloud/smartsearch/internal/cache"
	"github.com/kailas-cloud/smartsearch/internal/db"
	dbRedis "github.com/kailas-cloud/smartsearch/internal/db/redis"
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/metrics"
	"github.com/kailas-cloud/smartsearch/internal/repository/marker"
	"github.com/kailas-cloud/smartsearch/internal/transport/httpapi"
	"github.com/kailas-cloud/smartsearch/internal/usecase/access"
	"github.com/kailas-cloud/smartsearch/internal/usecase/analytics"
	"github.com/kailas-cloud/smartsearch/internal/usecase/catalog"
	"github.com/kailas-cloud/smartsearch/internal/usecase/gallery"
	healthuc "github.com/kailas-cloud/smartsearch/internal/usecase/health"
	"github.com/kailas-cloud/smartsearch/internal/usecase/session"
	"github.com/kailas-cloud/smartsearch/internal/usecase/telemetry"
)

const defaultReadinessTimeout = 10 * time.Second

// backend is what every transport provides.
type backend interface {
	session.Transport
	catalog.Backend
	telemetry.Sender
	analytics.Source
	gallery.Source
	Ping(ctx context.Context) error
}

// Client is the smartsearch entry point. It holds one active search session.
type Client struct {
	backend  backend
	store    *cache.Store
	db       db.Store
	sessions *session.Service
	catalog  *catalog.Service
	stats    *analytics.Service
	gallery  *gallery.Service
	health   *healthuc.Service
	obs      *observer
}

// New creates a Client. The provided context is used for the readiness check
// of a Valkey/Redis marker store.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		rateLimit:     httpapi.DefaultRateLimit,
		maxQueryRunes: domain.DefaultMaxQueryRunes,
		pageSize:      domain.DefaultPageSize,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.transport == "" {
		return nil, errors.New("smartsearch: backend required (use WithHTTP or WithMock)")
	}
	if cfg.markerFile != "" && len(cfg.addrs) > 0 {
		return nil, errors.New("smartsearch: WithMarkerFile and WithValkey/WithRedis are exclusive")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.NewClient()
	if cfg.metricsReg != nil {
		if err := m.Register(cfg.metricsReg); err != nil {
			return nil, err
		}
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	be, results, err := buildBackend(cfg, m, logger)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		store, err = createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("smartsearch: database not ready: %w", err)
		}
	}
	markers, err := buildMarkers(cfg, store)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	var markerPinger healthuc.Pinger
	if store != nil {
		markerPinger = store
	}
	c := wireClient(cfg, be, results, markers, markerPinger, m, logger)
	c.db = store
	c.obs = obs
	return c, nil
}

func buildBackend(cfg *clientConfig, m *metrics.Client, logger *zap.Logger) (backend, session.Transport, error) {
	switch cfg.transport {
	case transportHTTP:
		opts := []httpapi.Option{
			httpapi.WithToken(cfg.token),
			httpapi.WithRateLimit(cfg.rateLimit),
			httpapi.WithLogger(logger),
			httpapi.WithMetrics(m.APIRequests),
			httpapi.WithStreamMetrics(m.StreamRecords),
		}
		if cfg.httpClient != nil {
			opts = append(opts, httpapi.WithHTTPClient(cfg.httpClient))
		}
		if cfg.timeout > 0 {
			opts = append(opts, httpapi.WithTimeout(cfg.timeout))
		}
		if cfg.chunkSize > 0 {
			opts = append(opts, httpapi.WithChunkSize(cfg.chunkSize))
		}
		hc, err := httpapi.New(cfg.baseURL, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("smartsearch: %w", err)
		}
		if cfg.streaming {
			return hc, hc.Streaming(), nil
		}
		return hc, hc, nil
	case transportMock:
		opts := []memory.Option{
			memory.WithLatency(cfg.mockLatency),
			memory.WithStreamDelay(cfg.mockStreamDelay),
			memory.WithLogger(logger),
		}
		corr := cfg.mockCorrector
		if corr == nil {
			corr = memory.New().Vocabulary()
		}
		mb := memory.New(append(opts, memory.WithCorrector(corr))...)
		if cfg.streaming {
			return mb, mb.Streaming(), nil
		}
		return mb, mb, nil
	default:
		return nil, nil, fmt.Errorf("smartsearch: unknown transport %q", cfg.transport)
	}
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("smartsearch: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("smartsearch: unknown driver %q", cfg.driver)
	}
}

func buildMarkers(cfg *clientConfig, store db.Store) (telemetry.Marker, error) {
	switch {
	case store != nil:
		return marker.NewKV(store, cfg.markerTTL), nil
	case cfg.markerFile != "":
		f, err := marker.OpenFile(cfg.markerFile)
		if err != nil {
			return nil, fmt.Errorf("smartsearch: %w", err)
		}
		return f, nil
	default:
		return marker.NewMemory(), nil
	}
}

func wireClient(
	cfg *clientConfig,
	be backend,
	results session.Transport,
	markers telemetry.Marker,
	markerPinger healthuc.Pinger,
	m *metrics.Client,
	logger *zap.Logger,
) *Client {
	sess := access.Session{AdminAccess: cfg.admin}

	cacheOpts := []cache.Option{cache.WithLogger(logger), cache.WithMetrics(m.CacheEvents)}
	if cfg.cacheTTL > 0 {
		cacheOpts = append(cacheOpts, cache.WithTTL(cfg.cacheTTL))
	}
	store := cache.New(cacheOpts...)

	recorder := telemetry.New(markers, be, m.Telemetry, logger)
	sessions := session.New(results, store, recorder,
		session.WithMaxQueryRunes(cfg.maxQueryRunes),
		session.WithLogger(logger),
		session.WithMetrics(m.SessionOutcomes, m.Mutations),
	)
	cat := catalog.New(be, store, sess,
		catalog.WithPageSize(cfg.pageSize),
		catalog.WithLogger(logger),
		catalog.WithMetrics(m.Mutations),
	)

	return &Client{
		backend:  be,
		store:    store,
		sessions: sessions,
		catalog:  cat,
		stats:    analytics.New(be, store, sess, logger),
		gallery:  gallery.New(be, logger),
		health: healthuc.New(logger,
			healthuc.Component{Name: "backend", Pinger: be, Required: true},
			healthuc.Component{Name: "markers", Pinger: markerPinger},
		),
	}
}

// Close waits for background work and releases all resources.
func (c *Client) Close() {
	c.Wait()
	if c.db != nil {
		c.db.Close()
	}
}

// Wait blocks until background telemetry and cache revalidation have finished.
func (c *Client) Wait() {
	if c.sessions != nil {
		c.sessions.Wait()
	}
	if c.store != nil {
		c.store.Wait()
	}
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health checks the backend and, when configured, the marker store.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}
