package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/smartsearch/internal/cache"
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/usecase/access"
)

type mockSource struct {
	timings []domain.SearchTiming
	err     error
	calls   int
}

func (m *mockSource) SearchTimings(context.Context) ([]domain.SearchTiming, error) {
	m.calls++
	return m.timings, m.err
}

func score(v float64) *float64 { return &v }

func TestNewBreakdown(t *testing.T) {
	tests := []struct {
		name     string
		in       domain.SearchTiming
		network  float64
		total    float64
		overhead float64
		band     string
		high     bool
	}{
		{
			name: "typical",
			in: domain.SearchTiming{
				SearchDuration: 900, ProductLoadDuration: 300, BackendTotalTime: 600,
				CorrectionTime: 100, FaissTime: 400, RelevancyScore: score(0.85),
			},
			network: 300, total: 1200, overhead: 100, band: BandHigh,
		},
		{
			name: "backend longer than client timer clamps to zero",
			in: domain.SearchTiming{
				SearchDuration: 500, BackendTotalTime: 700, CorrectionTime: 1500, FaissTime: 100,
				RelevancyScore: score(0.5),
			},
			network: 0, total: 500, overhead: 0, band: BandMedium, high: true,
		},
		{
			name:    "low relevancy",
			in:      domain.SearchTiming{SearchDuration: 10, RelevancyScore: score(0.49)},
			network: 10, total: 10, band: BandLow,
		},
		{
			name:    "unscored",
			in:      domain.SearchTiming{SearchDuration: 10, CorrectionTime: 1000},
			network: 10, total: 10, band: BandNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBreakdown(tt.in)
			if b.NetworkLatency != tt.network {
				t.Errorf("NetworkLatency = %v, want %v", b.NetworkLatency, tt.network)
			}
			if b.Total != tt.total {
				t.Errorf("Total = %v, want %v", b.Total, tt.total)
			}
			if b.BackendOverhead != tt.overhead {
				t.Errorf("BackendOverhead = %v, want %v", b.BackendOverhead, tt.overhead)
			}
			if b.RelevancyBand != tt.band {
				t.Errorf("RelevancyBand = %q, want %q", b.RelevancyBand, tt.band)
			}
			if b.HighCorrection != tt.high {
				t.Errorf("HighCorrection = %v, want %v", b.HighCorrection, tt.high)
			}
		})
	}
}

func TestShare(t *testing.T) {
	if got := Share(25, 200); got != 12.5 {
		t.Fatalf("Share = %v", got)
	}
	if got := Share(25, 0); got != 0 {
		t.Fatalf("Share with zero whole = %v", got)
	}
}

func TestTimings_RequiresAdmin(t *testing.T) {
	src := &mockSource{}
	svc := New(src, cache.New(), access.Session{}, nil)
	if _, err := svc.Timings(context.Background()); !errors.Is(err, domain.ErrAdminAccessDenied) {
		t.Fatalf("expected ErrAdminAccessDenied, got %v", err)
	}
	if src.calls != 0 {
		t.Fatalf("expected no fetch, got %d", src.calls)
	}
}

func TestTimings_CachedUntilRefresh(t *testing.T) {
	src := &mockSource{timings: []domain.SearchTiming{
		{SearchID: "abc123", SearchDuration: 900, BackendTotalTime: 600, ResultCount: 3, RelevancyScore: score(0.9)},
		{SearchID: "def456", SearchDuration: 400, BackendTotalTime: 200, CorrectionTime: 1200, ResultCount: 1},
	}}
	svc := New(src, cache.New(), access.Session{AdminAccess: true}, nil)
	ctx := context.Background()

	rows, err := svc.Timings(ctx)
	if err != nil {
		t.Fatalf("Timings: %v", err)
	}
	if len(rows) != 2 || rows[0].SearchID != "abc123" || rows[1].SearchID != "def456" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	sum, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one fetch, got %d", src.calls)
	}
	if sum.Count != 2 || sum.AvgTotal != 650 || sum.AvgNetworkLatency != 250 || sum.HighCorrections != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.ScoredSearches != 1 || sum.AvgRelevancy != 0.9 || sum.TotalResultRecords != 4 {
		t.Fatalf("unexpected relevancy summary: %+v", sum)
	}

	svc.Refresh()
	if _, err := svc.Timings(ctx); err != nil {
		t.Fatalf("Timings: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after refresh, got %d", src.calls)
	}
}

func TestTimings_SourceError(t *testing.T) {
	src := &mockSource{err: &domain.TransportError{Op: "search timings", StatusCode: 500}}
	svc := New(src, cache.New(), access.Session{AdminAccess: true}, nil)
	if _, err := svc.Timings(context.Background()); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
