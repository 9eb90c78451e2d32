package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// SubmitSearch corrects and ranks a query and returns the new search id.
func (b *Backend) SubmitSearch(ctx context.Context, q domain.QueryRequest) (string, error) {
	if strings.TrimSpace(q.Text) == "" && !q.HasImage() {
		return "", domain.NewValidationError("raw_text", "Please enter a search query or add an image.")
	}
	if err := b.wait(ctx, b.latency); err != nil {
		return "", err
	}
	return b.run(ctx, q.Text, q.HasImage(), true), nil
}

// SearchRawText starts a search for the raw text of searchID without correcting it.
func (b *Backend) SearchRawText(ctx context.Context, searchID string) (string, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return "", err
	}
	prev, err := b.lookup(searchID)
	if err != nil {
		return "", err
	}
	return b.run(ctx, prev.raw, prev.hasImage, false), nil
}

// FetchResults returns the result set of a search.
func (b *Backend) FetchResults(ctx context.Context, searchID string) (domain.SearchResults, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return domain.SearchResults{}, err
	}
	s, err := b.lookup(searchID)
	if err != nil {
		return domain.SearchResults{}, err
	}
	return domain.SearchResults{
		SearchID:      s.id,
		Products:      cloneProducts(s.products),
		CorrectedText: s.corrected,
		RawText:       s.raw,
	}, nil
}

// SendFeedback records or clears a relevance vote.
func (b *Backend) SendFeedback(ctx context.Context, fb domain.Feedback) error {
	if err := b.wait(ctx, b.latency); err != nil {
		return err
	}
	if _, err := b.lookup(fb.QueryID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := voteKey{searchID: fb.QueryID, productID: fb.ProductID}
	if fb.IsRelevant == nil {
		delete(b.votes, k)
		return nil
	}
	b.votes[k] = *fb.IsRelevant
	return nil
}

// RecordSearchDuration stores a client-side timing. Every call is kept.
func (b *Backend) RecordSearchDuration(ctx context.Context, d domain.SearchDuration) error {
	if err := b.wait(ctx, b.latency); err != nil {
		return err
	}
	if d.SearchID == "" {
		return domain.NewValidationError("search_id", "required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations = append(b.durations, d)
	return nil
}

// SearchTimings joins the recorded client timings with the backend timings.
// The relevancy score is the share of likes among the votes of a search.
func (b *Backend) SearchTimings(ctx context.Context) ([]domain.SearchTiming, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.SearchTiming, 0, len(b.durations))
	for _, d := range b.durations {
		t := domain.SearchTiming{
			SearchID:            d.SearchID,
			SearchDuration:      float64(d.SearchDurationMs),
			ProductLoadDuration: float64(d.ProductLoadDurationMs),
		}
		if s, ok := b.searches[d.SearchID]; ok {
			t.BackendTotalTime = s.timing.total
			t.CorrectionTime = s.timing.correction
			t.FaissTime = s.timing.retrieval
			t.ResultCount = len(s.products)
			t.RelevancyScore = b.relevancyLocked(d.SearchID)
		}
		out = append(out, t)
	}
	return out, nil
}

func (b *Backend) relevancyLocked(searchID string) *float64 {
	var likes, total int
	for k, relevant := range b.votes {
		if k.searchID != searchID {
			continue
		}
		total++
		if relevant {
			likes++
		}
	}
	if total == 0 {
		return nil
	}
	score := float64(likes) / float64(total)
	return &score
}

func (b *Backend) lookup(searchID string) (*search, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.searches[searchID]
	if !ok {
		return nil, fmt.Errorf("search %s: %w", searchID, domain.ErrNotFound)
	}
	return s, nil
}

// run executes one search and stores it. A failing corrector leaves the query as typed.
func (b *Backend) run(ctx context.Context, raw string, hasImage, correct bool) string {
	start := b.now()

	corrected := raw
	var correction float64
	if correct && b.corrector != nil && strings.TrimSpace(raw) != "" {
		cStart := b.now()
		c, err := b.corrector.Correct(ctx, raw)
		correction = b.sinceMs(cStart)
		if err != nil {
			b.logger.Warn("Query correction failed, using raw text", zap.String("raw", raw), zap.Error(err))
		} else if c.Text != "" {
			corrected = c.Text
		}
	}

	rStart := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	products := rank(b.products, corrected)
	retrieval := b.sinceMs(rStart)

	s := &search{
		id:        b.newID(),
		raw:       raw,
		corrected: corrected,
		hasImage:  hasImage,
		products:  products,
		timing: backendTiming{
			total:      b.sinceMs(start),
			correction: correction,
			retrieval:  retrieval,
		},
	}
	b.searches[s.id] = s
	b.logger.Debug("Search stored",
		zap.String("search_id", s.id),
		zap.String("corrected", corrected),
		zap.Int("results", len(products)),
	)
	return s.id
}

// rank orders products by how many query terms they contain. An empty query
// (image-only search) returns the whole catalog.
func rank(products []domain.Product, query string) []domain.Product {
	terms := tokenize(query)
	if len(terms) == 0 {
		return cloneProducts(products)
	}

	type scored struct {
		p     domain.Product
		score int
	}
	var hits []scored
	for _, p := range products {
		text := searchText(p)
		n := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{p, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]domain.Product, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.p)
	}
	return out
}

func searchText(p domain.Product) string {
	parts := []string{p.Name, p.Description, p.Brand.Name, p.Subcategory}
	for _, c := range p.Categories {
		parts = append(parts, c.Name)
		if c.Parent != nil {
			parts = append(parts, c.Parent.Name)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}
