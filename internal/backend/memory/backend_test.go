package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

type mockCorrector struct {
	correctFn func(text string) (domain.Correction, error)
}

func (m *mockCorrector) Correct(_ context.Context, text string) (domain.Correction, error) {
	return m.correctFn(text)
}

// stepClock advances by step on every call.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func newTestBackend(opts ...Option) *Backend {
	return New(append([]Option{WithIDGenerator(sequentialIDs())}, opts...)...)
}

func TestSeededCatalog(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	products, err := b.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 4 || products[0].Name != "Vintage Leather Jacket" {
		t.Fatalf("unexpected seed: %+v", products)
	}
	jacket := products[0]
	if jacket.Subcategory != "Jackets" || len(jacket.Categories) != 1 || jacket.Categories[0].Parent.Name != "Clothing" {
		t.Fatalf("unexpected jacket categories: %+v", jacket)
	}
	if jacket.Brand.Name != "Heritage" || jacket.Price != 10.99 {
		t.Fatalf("unexpected jacket: %+v", jacket)
	}
}

func TestSearch_RankAndCorrect(t *testing.T) {
	corrector := &mockCorrector{correctFn: func(text string) (domain.Correction, error) {
		if text == "lether jacket" {
			return domain.Correction{Text: "leather jacket"}, nil
		}
		return domain.Correction{Text: text}, nil
	}}
	b := newTestBackend(WithCorrector(corrector))
	ctx := context.Background()

	id, err := b.SubmitSearch(ctx, domain.QueryRequest{Text: "lether jacket"})
	if err != nil || id != "id1" {
		t.Fatalf("SubmitSearch = %q, %v", id, err)
	}
	res, err := b.FetchResults(ctx, id)
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if res.RawText != "lether jacket" || res.CorrectedText != "leather jacket" || !res.Corrected() {
		t.Fatalf("unexpected texts: %+v", res)
	}
	if len(res.Products) != 1 || res.Products[0].ID != "1" {
		t.Fatalf("unexpected products: %+v", res.Products)
	}

	rawID, err := b.SearchRawText(ctx, id)
	if err != nil || rawID != "id2" {
		t.Fatalf("SearchRawText = %q, %v", rawID, err)
	}
	raw, err := b.FetchResults(ctx, rawID)
	if err != nil {
		t.Fatalf("FetchResults raw: %v", err)
	}
	if raw.Corrected() || raw.RawText != "lether jacket" {
		t.Fatalf("expected uncorrected raw search, got %+v", raw)
	}
	// "jacket" still matches even though "lether" does not.
	if len(raw.Products) != 1 {
		t.Fatalf("unexpected raw products: %+v", raw.Products)
	}
}

func TestSearch_RankOrdersByMatchedTerms(t *testing.T) {
	b := newTestBackend()
	got := rank(b.products, "smart speaker chair")
	if len(got) != 2 || got[0].ID != "4" || got[1].ID != "3" {
		t.Fatalf("unexpected order: %v", ids(got))
	}
}

func TestSearch_ImageOnlyReturnsCatalog(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	id, err := b.SubmitSearch(ctx, domain.QueryRequest{Image: []byte("\x89PNG")})
	if err != nil {
		t.Fatalf("SubmitSearch: %v", err)
	}
	res, _ := b.FetchResults(ctx, id)
	if len(res.Products) != 4 {
		t.Fatalf("expected the whole catalog, got %d", len(res.Products))
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	b := newTestBackend()
	if _, err := b.SubmitSearch(context.Background(), domain.QueryRequest{Text: "   "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSearch_CorrectorFailureUsesRawText(t *testing.T) {
	corrector := &mockCorrector{correctFn: func(string) (domain.Correction, error) {
		return domain.Correction{}, domain.ErrCorrectionProvider
	}}
	b := newTestBackend(WithCorrector(corrector))
	ctx := context.Background()

	id, err := b.SubmitSearch(ctx, domain.QueryRequest{Text: "denim"})
	if err != nil {
		t.Fatalf("SubmitSearch: %v", err)
	}
	res, _ := b.FetchResults(ctx, id)
	if res.CorrectedText != "denim" || len(res.Products) != 1 {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestUnknownSearch(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()
	if _, err := b.FetchResults(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("FetchResults: expected ErrNotFound, got %v", err)
	}
	if _, err := b.SearchRawText(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SearchRawText: expected ErrNotFound, got %v", err)
	}
	if err := b.SendFeedback(ctx, domain.Feedback{QueryID: "nope", ProductID: "1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SendFeedback: expected ErrNotFound, got %v", err)
	}
}

func TestSearchTimings_JoinsBackendTimingAndVotes(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0), step: 10 * time.Millisecond}
	corrector := &mockCorrector{correctFn: func(text string) (domain.Correction, error) {
		return domain.Correction{Text: text}, nil
	}}
	b := newTestBackend(WithCorrector(corrector), WithClock(clock.now))
	ctx := context.Background()

	id, _ := b.SubmitSearch(ctx, domain.QueryRequest{Text: "home"})
	yes, no := true, false
	_ = b.SendFeedback(ctx, domain.Feedback{QueryID: id, ProductID: "3", IsRelevant: &yes})
	_ = b.SendFeedback(ctx, domain.Feedback{QueryID: id, ProductID: "4", IsRelevant: &no})
	_ = b.SendFeedback(ctx, domain.Feedback{QueryID: id, ProductID: "4", IsRelevant: nil})
	_ = b.RecordSearchDuration(ctx, domain.SearchDuration{SearchID: id, SearchDurationMs: 900, ProductLoadDurationMs: 300})
	_ = b.RecordSearchDuration(ctx, domain.SearchDuration{SearchID: "elsewhere", SearchDurationMs: 5})

	timings, err := b.SearchTimings(ctx)
	if err != nil {
		t.Fatalf("SearchTimings: %v", err)
	}
	if len(timings) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(timings))
	}
	got := timings[0]
	if got.SearchDuration != 900 || got.ProductLoadDuration != 300 || got.ResultCount != 2 {
		t.Fatalf("unexpected row: %+v", got)
	}
	// start, correction start, correction end, retrieval start, retrieval end, total.
	if got.CorrectionTime != 10 || got.FaissTime != 10 || got.BackendTotalTime != 50 {
		t.Fatalf("unexpected backend timing: %+v", got)
	}
	if got.RelevancyScore == nil || *got.RelevancyScore != 1 {
		t.Fatalf("expected relevancy 1 after the dislike was cleared, got %v", got.RelevancyScore)
	}
	if timings[1].RelevancyScore != nil || timings[1].BackendTotalTime != 0 {
		t.Fatalf("unexpected unknown-search row: %+v", timings[1])
	}
}

func TestProductCRUD(t *testing.T) {
	b := newTestBackend()
	ctx := context.Background()

	id, err := b.CreateProduct(ctx, domain.ProductInput{
		Name: "Linen Bedding Set", BrandName: "Echo Living", CategoryID: 2, SubcategoryID: 203, Price: 55,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	p, err := b.GetProduct(ctx, id)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Subcategory != "Bedding" || p.Brand.ID != 4 {
		t.Fatalf("unexpected product: %+v", p)
	}

	if err := b.UpdateProduct(ctx, id, domain.ProductInput{Name: "Linen Duvet", BrandName: "New Brand", CategoryID: 2}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	p, _ = b.GetProduct(ctx, id)
	if p.Name != "Linen Duvet" || p.Brand.Name != "New Brand" || p.Subcategory != "" {
		t.Fatalf("unexpected updated product: %+v", p)
	}
	brands, _ := b.ListBrands(ctx)
	if len(brands) != 5 {
		t.Fatalf("expected a new brand, got %d", len(brands))
	}

	if err := b.DeleteProduct(ctx, id); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := b.GetProduct(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := b.DeleteProduct(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	b := newTestBackend()
	_, err := b.CreateProduct(context.Background(), domain.ProductInput{Name: "X", BrandName: "Y", CategoryID: 99})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "category_id" {
		t.Fatalf("expected category validation error, got %v", err)
	}
}

func TestLatencyHonoursContext(t *testing.T) {
	b := newTestBackend(WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.ListProducts(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func ids(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
