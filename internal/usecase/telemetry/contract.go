package telemetry

import (
	"context"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// Marker claims a search id once across reloads and restarts.
type Marker interface {
	MarkOnce(ctx context.Context, searchID string) (bool, error)
}

// Sender delivers a duration to the analytics endpoint.
type Sender interface {
	RecordSearchDuration(ctx context.Context, d domain.SearchDuration) error
}
