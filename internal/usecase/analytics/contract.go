package analytics

import (
	"context"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// Source lists the recorded search timings.
type Source interface {
	SearchTimings(ctx context.Context) ([]domain.SearchTiming, error)
}
