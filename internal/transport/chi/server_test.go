package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/backend/memory"
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/transport/httpapi"
	healthuc "github.com/kailas-cloud/smartsearch/internal/usecase/health"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newTestServer(t *testing.T, opts ...memory.Option) (*memory.Backend, *httpapi.Client) {
	t.Helper()
	vocab := memory.New().Vocabulary()
	opts = append([]memory.Option{memory.WithIDGenerator(sequentialIDs()), memory.WithCorrector(vocab)}, opts...)
	backend := memory.New(opts...)
	health := healthuc.New(zap.NewNop(), healthuc.Component{Name: "backend", Pinger: backend, Required: true})

	ts := httptest.NewServer(NewServer(backend, health, zap.NewNop()).Handler())
	t.Cleanup(ts.Close)

	client, err := httpapi.New(ts.URL, httpapi.WithRateLimit(0))
	if err != nil {
		t.Fatalf("httpapi.New: %v", err)
	}
	return backend, client
}

func TestServer_SearchRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	id, err := client.SubmitSearch(ctx, domain.QueryRequest{Text: "lether jacket"})
	if err != nil || id != "s1" {
		t.Fatalf("SubmitSearch = %q, %v", id, err)
	}
	res, err := client.FetchResults(ctx, id)
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if res.RawText != "lether jacket" || res.CorrectedText != "leather jacket" || !res.Corrected() {
		t.Fatalf("unexpected texts: raw=%q corrected=%q", res.RawText, res.CorrectedText)
	}
	if len(res.Products) == 0 || res.Products[0].Name != "Vintage Leather Jacket" {
		t.Fatalf("unexpected ranking: %+v", res.Products)
	}

	rawID, err := client.SearchRawText(ctx, id)
	if err != nil || rawID != "s2" {
		t.Fatalf("SearchRawText = %q, %v", rawID, err)
	}
	raw, err := client.FetchResults(ctx, rawID)
	if err != nil {
		t.Fatalf("FetchResults raw: %v", err)
	}
	if raw.Corrected() {
		t.Fatalf("raw text search must not be corrected: %+v", raw)
	}
}

func TestServer_SubmitMultipartImageOnly(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	id, err := client.SubmitSearch(ctx, domain.QueryRequest{Image: []byte{0x89, 'P', 'N', 'G'}, ImageName: "shoe.png"})
	if err != nil {
		t.Fatalf("SubmitSearch: %v", err)
	}
	res, err := client.FetchResults(ctx, id)
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if len(res.Products) != 4 {
		t.Fatalf("image-only search should return the catalog, got %d products", len(res.Products))
	}
}

func TestServer_SubmitValidation(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		message string
	}{
		{"empty", "   ", "Please enter a search query or add an image."},
		{"too long", strings.Repeat("й", domain.DefaultMaxQueryRunes+1), "at most"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SubmitSearch(ctx, domain.QueryRequest{Text: tt.text})
			var te *domain.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if te.StatusCode != http.StatusBadRequest || te.Code != CodeValidationFailed {
				t.Fatalf("unexpected error: %+v", te)
			}
			if !strings.Contains(te.Message, tt.message) {
				t.Fatalf("message %q does not contain %q", te.Message, tt.message)
			}
		})
	}
}

func TestServer_MaxQueryRunesAllowsExactLimit(t *testing.T) {
	_, client := newTestServer(t)
	text := strings.Repeat("é", domain.DefaultMaxQueryRunes)
	if _, err := client.SubmitSearch(context.Background(), domain.QueryRequest{Text: text}); err != nil {
		t.Fatalf("query at the rune limit rejected: %v", err)
	}
}

func TestServer_UnknownSearchIsNotFound(t *testing.T) {
	_, client := newTestServer(t)
	_, err := client.FetchResults(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var te *domain.TransportError
	if !errors.As(err, &te) || te.Code != CodeNotFound {
		t.Fatalf("unexpected error body: %v", err)
	}
}

func TestServer_StreamResults(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	id, err := client.SubmitSearch(ctx, domain.QueryRequest{Text: "home"})
	if err != nil {
		t.Fatalf("SubmitSearch: %v", err)
	}
	dec, err := client.Streaming().StreamResults(ctx, id)
	if err != nil {
		t.Fatalf("StreamResults: %v", err)
	}
	defer dec.Close()

	var events []domain.ResultEvent
	for ev := range dec.Records(ctx) {
		events = append(events, ev)
	}
	if err := dec.Err(); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(events) != 3 || events[0].Kind != domain.EventMeta || events[0].SearchID != id {
		t.Fatalf("unexpected events: %+v", events)
	}
	for _, ev := range events[1:] {
		if ev.Kind != domain.EventProduct || ev.Product == nil {
			t.Fatalf("expected product event, got %+v", ev)
		}
	}
}

func TestServer_StreamUnknownSearchMapsStatus(t *testing.T) {
	_, client := newTestServer(t)
	_, err := client.Streaming().StreamResults(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServer_StreamContentType(t *testing.T) {
	backend := memory.New()
	srv := NewServer(backend, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stream-search-images", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-ndjson; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 image records, got %d", len(lines))
	}
	var first domain.ImageResult
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil || first.ID != 1 {
		t.Fatalf("unexpected first record %q: %v", lines[0], err)
	}
	if !rr.Flushed {
		t.Fatal("records must be flushed as they are written")
	}
}

func TestServer_FeedbackAndTimings(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	id, err := client.SubmitSearch(ctx, domain.QueryRequest{Text: "jacket"})
	if err != nil {
		t.Fatalf("SubmitSearch: %v", err)
	}
	yes := true
	if err := client.SendFeedback(ctx, domain.Feedback{QueryID: id, ProductID: "1", IsRelevant: &yes}); err != nil {
		t.Fatalf("SendFeedback: %v", err)
	}
	d := domain.SearchDuration{SearchID: id, SearchDurationMs: 120, ProductLoadDurationMs: 80}
	if err := client.RecordSearchDuration(ctx, d); err != nil {
		t.Fatalf("RecordSearchDuration: %v", err)
	}

	rows, err := client.SearchTimings(ctx)
	if err != nil {
		t.Fatalf("SearchTimings: %v", err)
	}
	if len(rows) != 1 || rows[0].SearchID != id || rows[0].SearchDuration != 120 || rows[0].ProductLoadDuration != 80 {
		t.Fatalf("unexpected timings: %+v", rows)
	}
	if rows[0].RelevancyScore == nil || *rows[0].RelevancyScore != 1 {
		t.Fatalf("unexpected relevancy: %+v", rows[0].RelevancyScore)
	}
}

func TestServer_EmptyTimingsIsArray(t *testing.T) {
	srv := NewServer(memory.New(), nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/search-durations", http.NoBody)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Fatalf("body = %q, want []", got)
	}
}

func TestServer_RequestValidation(t *testing.T) {
	srv := NewServer(memory.New(), nil, zap.NewNop())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed json", http.MethodPost, "/api/feedback", "{", http.StatusBadRequest, CodeBadRequest},
		{"feedback without query", http.MethodPost, "/api/feedback", `{"product_id":"1"}`,
			http.StatusBadRequest, CodeValidationFailed},
		{"negative duration", http.MethodPost, "/api/analytics/search-duration",
			`{"search_id":"x","search_duration_ms":-1}`, http.StatusBadRequest, CodeValidationFailed},
		{"product without name", http.MethodPost, "/api/products",
			`{"brand_name":"Heritage","category_id":1}`, http.StatusBadRequest, CodeValidationFailed},
		{"unknown product", http.MethodGet, "/api/products/404", "", http.StatusNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.code {
				t.Fatalf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestServer_CatalogRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	in := domain.ProductInput{Name: "Desk Lamp", Price: 25, BrandName: "Echo Living", CategoryID: 2, SubcategoryID: 204}
	id, err := client.CreateProduct(ctx, in)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	p, err := client.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != "Desk Lamp" || p.Subcategory != "Lighting" {
		t.Fatalf("unexpected product: %+v", p)
	}

	in.Price = 30
	if err := client.UpdateProduct(ctx, id, in); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if p, _ = client.GetProduct(ctx, id); p.Price != 30 {
		t.Fatalf("price not updated: %+v", p)
	}

	cats, err := client.ListCategories(ctx)
	if err != nil || len(cats) != 2 {
		t.Fatalf("ListCategories = %d, %v", len(cats), err)
	}
	brands, err := client.ListBrands(ctx)
	if err != nil || len(brands) != 4 {
		t.Fatalf("ListBrands = %d, %v", len(brands), err)
	}
	images, err := client.ProductImages(ctx, "1")
	if err != nil || len(images) != 1 {
		t.Fatalf("ProductImages = %+v, %v", images, err)
	}

	if err := client.DeleteProduct(ctx, id); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := client.GetProduct(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestServer_HealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		required bool
		status   int
		body     healthuc.Status
	}{
		{"required down", true, http.StatusServiceUnavailable, healthuc.Unhealthy},
		{"optional down", false, http.StatusOK, healthuc.Degraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := healthuc.New(zap.NewNop(), healthuc.Component{Name: "corrector", Pinger: failingPinger{}, Required: tt.required})
			srv := NewServer(memory.New(), health, zap.NewNop())

			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var report healthuc.Report
			if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if report.Status != tt.body || report.Checks["corrector"] != healthuc.CheckError {
				t.Fatalf("unexpected report: %+v", report)
			}
		})
	}
}

func TestServer_PingThroughClient(t *testing.T) {
	_, client := newTestServer(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
