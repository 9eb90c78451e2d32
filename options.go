package smartsearch

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	transportHTTP = "http"
	transportMock = "mock"
)

type clientConfig struct {
	transport  string
	baseURL    string
	token      string
	httpClient *http.Client
	rateLimit  int
	timeout    time.Duration
	chunkSize  int
	streaming  bool

	mockLatency     time.Duration
	mockStreamDelay time.Duration
	mockCorrector   Corrector

	markerFile string
	driver     string // "valkey" or "redis"
	addrs      []string
	password   string
	markerTTL  time.Duration

	maxQueryRunes int
	pageSize      int
	cacheTTL      time.Duration
	admin         bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithHTTP talks to a search server at baseURL. An empty token sends no
// Authorization header.
func WithHTTP(baseURL, token string) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = transportHTTP
		c.baseURL = baseURL
		c.token = token
	})
}

// WithHTTPClient replaces the http.Client used by WithHTTP.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(requestsPerSecond int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateLimit = requestsPerSecond
	})
}

// WithTimeout bounds every request made by WithHTTP. Streamed results are
// instead cut off when the server sends nothing for d.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithStreamChunkSize sets the read size of streamed responses.
func WithStreamChunkSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = n
	})
}

// WithStreaming makes sessions consume results as a progressive stream
// instead of a single fetch. A stream may run longer than WithTimeout, but
// fails once it stays silent for that long.
func WithStreaming(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.streaming = enabled
	})
}

// WithMock uses the in-process demo backend. latency delays every call and
// streamDelay paces streamed records.
func WithMock(latency, streamDelay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.transport = transportMock
		c.mockLatency = latency
		c.mockStreamDelay = streamDelay
	})
}

// WithMockCorrector replaces the vocabulary corrector of the demo backend.
func WithMockCorrector(corr Corrector) Option {
	return optionFunc(func(c *clientConfig) {
		c.mockCorrector = corr
	})
}

// WithMarkerFile keeps "duration recorded" markers in a YAML file so that
// repeated CLI runs report a search once.
func WithMarkerFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.markerFile = path
	})
}

// WithValkey keeps "duration recorded" markers in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis keeps "duration recorded" markers in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMarkerTTL expires Valkey/Redis markers after d. Default: never.
func WithMarkerTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.markerTTL = d
	})
}

// WithMaxQueryRunes caps the query length. Default: 300.
func WithMaxQueryRunes(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxQueryRunes = n
	})
}

// WithPageSize sets the product list page size. Default: 10.
func WithPageSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = n
	})
}

// WithCacheTTL marks cached responses stale after d; stale entries are served
// while they revalidate. Zero keeps entries fresh until invalidated.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = d
	})
}

// WithAdmin grants the admin capability: product writes and analytics.
func WithAdmin(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.admin = enabled
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
