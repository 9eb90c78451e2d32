package domain

// SearchResults is the resolved payload of one search session.
type SearchResults struct {
	SearchID      string    `json:"search_id"`
	Products      []Product `json:"products"`
	CorrectedText string    `json:"corrected_text"`
	RawText       string    `json:"raw_text"`
}

// Corrected reports whether the backend rewrote the query, which enables "search instead".
func (r SearchResults) Corrected() bool {
	return r.CorrectedText != "" && r.CorrectedText != r.RawText
}

// Feedback is a relevance vote sent to the backend. A nil IsRelevant clears the vote.
type Feedback struct {
	QueryID    string `json:"query_id"`
	ProductID  string `json:"product_id"`
	IsRelevant *bool  `json:"is_relevant"`
}

// SearchDuration is the client-side timing of one session.
type SearchDuration struct {
	SearchID              string `json:"search_id"`
	SearchDurationMs      int64  `json:"search_duration_ms"`
	ProductLoadDurationMs int64  `json:"product_load_duration_ms"`
}

// SearchTiming is one row of the latency statistics, joined with backend timings.
type SearchTiming struct {
	SearchID            string   `json:"search_id"`
	SearchDuration      float64  `json:"search_duration"`
	ProductLoadDuration float64  `json:"product_load_duration"`
	BackendTotalTime    float64  `json:"backend_total_time"`
	CorrectionTime      float64  `json:"correction_time"`
	FaissTime           float64  `json:"faiss_time"`
	ResultCount         int      `json:"result_count"`
	RelevancyScore      *float64 `json:"relevancy_score,omitempty"`
}

// Result stream event kinds.
const (
	EventMeta    = "meta"
	EventProduct = "product"
)

// ResultEvent is one line of a streamed search result. A meta event carries
// the query texts; each product event carries one record in server order.
type ResultEvent struct {
	Kind          string   `json:"kind"`
	SearchID      string   `json:"search_id,omitempty"`
	CorrectedText string   `json:"corrected_text,omitempty"`
	RawText       string   `json:"raw_text,omitempty"`
	Product       *Product `json:"product,omitempty"`
}
