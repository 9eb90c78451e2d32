package analytics

import (
	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// HighCorrectionMs flags searches whose query correction alone took longer than this.
const HighCorrectionMs = 1000

// Relevancy score bands.
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
	BandNone   = ""
)

// Breakdown splits one search timing into its parts. All values are milliseconds.
type Breakdown struct {
	domain.SearchTiming

	// NetworkLatency is the part of the search duration not spent in the backend.
	NetworkLatency float64 `json:"network_latency"`
	// Total is the search duration plus the product load duration.
	Total float64 `json:"total"`
	// BackendOverhead is backend time not spent on correction or vector search.
	BackendOverhead float64 `json:"backend_overhead"`

	RelevancyBand  string `json:"relevancy_band,omitempty"`
	HighCorrection bool   `json:"high_correction"`
}

// Share returns part as a percentage of whole, or 0 when whole is not positive.
func Share(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// NewBreakdown computes the derived timings of t.
func NewBreakdown(t domain.SearchTiming) Breakdown {
	b := Breakdown{
		SearchTiming:    t,
		NetworkLatency:  max(0, t.SearchDuration-t.BackendTotalTime),
		Total:           t.SearchDuration + t.ProductLoadDuration,
		BackendOverhead: max(0, t.BackendTotalTime-(t.CorrectionTime+t.FaissTime)),
		HighCorrection:  t.CorrectionTime > HighCorrectionMs,
	}
	if t.RelevancyScore != nil {
		b.RelevancyBand = RelevancyBand(*t.RelevancyScore)
	}
	return b
}

// RelevancyBand classifies a relevancy score.
func RelevancyBand(score float64) string {
	switch {
	case score >= 0.8:
		return BandHigh
	case score >= 0.5:
		return BandMedium
	default:
		return BandLow
	}
}

// Summary aggregates a set of breakdowns.
type Summary struct {
	Count              int     `json:"count"`
	AvgTotal           float64 `json:"avg_total"`
	AvgNetworkLatency  float64 `json:"avg_network_latency"`
	AvgBackend         float64 `json:"avg_backend"`
	HighCorrections    int     `json:"high_corrections"`
	AvgRelevancy       float64 `json:"avg_relevancy"`
	ScoredSearches     int     `json:"scored_searches"`
	TotalResultRecords int     `json:"total_result_records"`
}

// Summarize averages rows. Relevancy is averaged over scored rows only.
func Summarize(rows []Breakdown) Summary {
	var s Summary
	if len(rows) == 0 {
		return s
	}
	var relevancy float64
	for _, r := range rows {
		s.AvgTotal += r.Total
		s.AvgNetworkLatency += r.NetworkLatency
		s.AvgBackend += r.BackendTotalTime
		s.TotalResultRecords += r.ResultCount
		if r.HighCorrection {
			s.HighCorrections++
		}
		if r.RelevancyScore != nil {
			relevancy += *r.RelevancyScore
			s.ScoredSearches++
		}
	}
	n := float64(len(rows))
	s.Count = len(rows)
	s.AvgTotal /= n
	s.AvgNetworkLatency /= n
	s.AvgBackend /= n
	if s.ScoredSearches > 0 {
		s.AvgRelevancy = relevancy / float64(s.ScoredSearches)
	}
	return s
}
