package gallery

import (
	"context"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/stream"
)

// Source opens the image result stream.
type Source interface {
	StreamImages(ctx context.Context) (*stream.Decoder[domain.ImageResult], error)
}
