// Package httpapi is the HTTP transport of the search, catalog and analytics API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

const (
	// DefaultTimeout bounds non-streaming requests and the silence allowed between stream reads.
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is the default request rate (requests per second).
	DefaultRateLimit = 20

	maxErrorBody = 64 << 10
)

// Client calls the search API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	chunkSize  int
	logger     *zap.Logger
	requests   *prometheus.CounterVec
	records    *prometheus.CounterVec
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout must be zero for streams to work.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends an Authorization: Bearer header with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRateLimit throttles outgoing requests. Zero disables throttling.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout bounds each non-streaming request. Streams have no overall
// deadline; they fail with ErrStreamIdle once nothing arrives for d.
// Zero disables both limits.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithChunkSize sets the read size of streamed responses.
func WithChunkSize(n int) Option {
	return func(c *Client) { c.chunkSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics counts requests by labels "op" and "code".
func WithMetrics(requests *prometheus.CounterVec) Option {
	return func(c *Client) { c.requests = requests }
}

// WithStreamMetrics counts decoded stream records by label "result".
func WithStreamMetrics(records *prometheus.CounterVec) Option {
	return func(c *Client) { c.records = records }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httpapi: invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ping checks that the API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// request describes one call. body is sent as is with contentType.
type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	req := request{op: op, method: method, path: path}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		req.body = bytes.NewReader(b)
		req.contentType = "application/json"
	}
	return c.doRequest(ctx, req, out)
}

func (c *Client) doRequest(ctx context.Context, r request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: r.op, StatusCode: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

// send executes r and returns a 2xx response. The caller closes the body.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{Op: r.op, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("API request", zap.String("op", r.op), zap.String("method", r.method), zap.String("path", r.path))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.count(r.op, "network")
		return nil, &domain.TransportError{Op: r.op, Err: err}
	}
	c.count(r.op, strconv.Itoa(resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(r.op, resp)
	}
	return resp, nil
}

func (c *Client) count(op, code string) {
	if c.requests != nil {
		c.requests.WithLabelValues(op, code).Inc()
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusError maps a non-2xx response to a TransportError, keeping the
// server's {code, message} when the body carries one.
func statusError(op string, resp *http.Response) error {
	e := &domain.TransportError{Op: op, StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return e
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil && (body.Code != "" || body.Message != "") {
		e.Code = body.Code
		e.Message = body.Message
		return e
	}
	e.Message = strings.TrimSpace(string(raw))
	return e
}

// charset returns the charset parameter of a Content-Type header.
func charset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

func escape(id string) string { return url.PathEscape(id) }

var errEmptyID = errors.New("empty id in response")
