package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/stream"
)

// ErrStreamIdle reports a stream that went silent for longer than the client timeout.
var ErrStreamIdle = errors.New("stream idle")

type submitRequest struct {
	RawText string `json:"raw_text"`
}

type searchIDResponse struct {
	SearchID string `json:"search_id"`
}

// SubmitSearch posts a query and returns the issued search id. Queries with an
// image are sent as multipart/form-data, text-only queries as JSON.
func (c *Client) SubmitSearch(ctx context.Context, q domain.QueryRequest) (string, error) {
	const op = "submit search"

	var out searchIDResponse
	if !q.HasImage() {
		if err := c.do(ctx, op, http.MethodPost, "/api/search", submitRequest{RawText: q.Text}, &out); err != nil {
			return "", err
		}
		return checkID(op, out.SearchID)
	}

	body, contentType, err := multipartQuery(q)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req := request{op: op, method: http.MethodPost, path: "/api/search", body: body, contentType: contentType}
	if err := c.doRequest(ctx, req, &out); err != nil {
		return "", err
	}
	return checkID(op, out.SearchID)
}

func multipartQuery(q domain.QueryRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("raw_text", q.Text); err != nil {
		return nil, "", fmt.Errorf("write raw_text: %w", err)
	}
	name := q.ImageName
	if name == "" {
		name = "image"
	}
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(q.Image); err != nil {
		return nil, "", fmt.Errorf("write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func checkID(op, id string) (string, error) {
	if id == "" {
		return "", &domain.TransportError{Op: op, Err: errEmptyID}
	}
	return id, nil
}

// FetchResults returns the full result set of a search.
func (c *Client) FetchResults(ctx context.Context, searchID string) (domain.SearchResults, error) {
	var out domain.SearchResults
	if err := c.do(ctx, "fetch results", http.MethodGet, "/api/search/"+escape(searchID), nil, &out); err != nil {
		return domain.SearchResults{}, err
	}
	if out.SearchID == "" {
		out.SearchID = searchID
	}
	return out, nil
}

// SearchRawText starts a search for the uncorrected text of searchID.
func (c *Client) SearchRawText(ctx context.Context, searchID string) (string, error) {
	const op = "search raw text"
	var out searchIDResponse
	if err := c.do(ctx, op, http.MethodGet, "/api/raw-text-results/"+escape(searchID), nil, &out); err != nil {
		return "", err
	}
	return checkID(op, out.SearchID)
}

// SendFeedback posts a relevance vote. A nil IsRelevant clears it.
func (c *Client) SendFeedback(ctx context.Context, fb domain.Feedback) error {
	return c.do(ctx, "send feedback", http.MethodPost, "/api/feedback", fb, nil)
}

// RecordSearchDuration posts the client-side timing of a session.
func (c *Client) RecordSearchDuration(ctx context.Context, d domain.SearchDuration) error {
	return c.do(ctx, "record search duration", http.MethodPost, "/api/analytics/search-duration", d, nil)
}

// SearchTimings lists the recorded timings joined with backend timings.
func (c *Client) SearchTimings(ctx context.Context) ([]domain.SearchTiming, error) {
	var out []domain.SearchTiming
	if err := c.do(ctx, "search timings", http.MethodGet, "/api/analytics/search-durations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamImages opens the progressive image search stream.
func (c *Client) StreamImages(ctx context.Context) (*stream.Decoder[domain.ImageResult], error) {
	return openStream[domain.ImageResult](ctx, c, "stream images", "/api/stream-search-images")
}

// Streaming returns a view of c that loads search results progressively.
func (c *Client) Streaming() *StreamingClient {
	return &StreamingClient{Client: c}
}

// StreamingClient is a Client whose sessions consume the NDJSON result stream
// instead of the batch result endpoint.
type StreamingClient struct {
	*Client
}

// StreamResults opens the NDJSON result stream of a search.
func (s *StreamingClient) StreamResults(ctx context.Context, searchID string) (*stream.Decoder[domain.ResultEvent], error) {
	return openStream[domain.ResultEvent](ctx, s.Client, "stream results", "/api/search/"+escape(searchID)+"/stream")
}

// openStream starts a request whose body is decoded incrementally. The stream
// lives as long as ctx; the returned decoder owns the response body.
func openStream[T any](ctx context.Context, c *Client, op, path string) (*stream.Decoder[T], error) {
	var idle *idleBody
	if c.timeout > 0 {
		var cancel context.CancelCauseFunc
		ctx, cancel = context.WithCancelCause(ctx)
		idle = &idleBody{ctx: ctx, op: op, timeout: c.timeout, cancel: cancel}
		idle.timer = time.AfterFunc(c.timeout, func() { cancel(ErrStreamIdle) })
	}

	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, path: path})
	if err != nil {
		if idle != nil {
			idle.stop()
			if errors.Is(context.Cause(ctx), ErrStreamIdle) {
				return nil, idle.err()
			}
		}
		return nil, err
	}
	body := io.ReadCloser(resp.Body)
	if idle != nil {
		idle.body = resp.Body
		idle.timer.Reset(c.timeout)
		body = idle
	}

	opts := []stream.Option{
		stream.WithCharset(charset(resp.Header.Get("Content-Type"))),
		stream.WithLogger(c.logger),
		stream.WithMetrics(c.records),
	}
	if c.chunkSize > 0 {
		opts = append(opts, stream.WithChunkSize(c.chunkSize))
	}
	dec, err := stream.NewDecoder[T](body, opts...)
	if err != nil {
		_ = body.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return dec, nil
}

// idleBody cancels the request once no bytes arrive for timeout.
type idleBody struct {
	ctx     context.Context
	body    io.ReadCloser
	op      string
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelCauseFunc
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && errors.Is(context.Cause(b.ctx), ErrStreamIdle) {
		return n, b.err()
	}
	if n > 0 {
		b.timer.Reset(b.timeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.stop()
	return b.body.Close()
}

func (b *idleBody) stop() {
	b.timer.Stop()
	b.cancel(nil)
}

func (b *idleBody) err() error {
	return &domain.TransportError{Op: b.op, Err: fmt.Errorf("%w: nothing received for %s", ErrStreamIdle, b.timeout)}
}
