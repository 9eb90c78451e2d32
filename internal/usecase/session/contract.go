package session

import (
	"context"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/stream"
)

// Transport is the search backend contract.
type Transport interface {
	SubmitSearch(ctx context.Context, q domain.QueryRequest) (string, error)
	FetchResults(ctx context.Context, searchID string) (domain.SearchResults, error)
	// SearchRawText starts a new search for the raw text of searchID and returns its id.
	SearchRawText(ctx context.Context, searchID string) (string, error)
	SendFeedback(ctx context.Context, fb domain.Feedback) error
}

// StreamingTransport is implemented by transports that deliver results progressively.
type StreamingTransport interface {
	StreamResults(ctx context.Context, searchID string) (*stream.Decoder[domain.ResultEvent], error)
}

// Recorder records the duration of a finished session. It must not block on failure.
type Recorder interface {
	Record(ctx context.Context, d domain.SearchDuration)
}
