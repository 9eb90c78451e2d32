package memory

import (
	"context"
	"encoding/json"
	"io"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/stream"
)

// EmitResults writes a meta event and then one event per product, pausing
// WithStreamDelay between records. It stops at the first emit error.
func (b *Backend) EmitResults(ctx context.Context, searchID string, emit func(domain.ResultEvent) error) error {
	s, err := b.lookup(searchID)
	if err != nil {
		return err
	}
	meta := domain.ResultEvent{Kind: domain.EventMeta, SearchID: s.id, RawText: s.raw, CorrectedText: s.corrected}
	if err := emit(meta); err != nil {
		return err
	}
	for i := range s.products {
		if err := b.wait(ctx, b.streamDelay); err != nil {
			return err
		}
		p := s.products[i]
		if err := emit(domain.ResultEvent{Kind: domain.EventProduct, Product: &p}); err != nil {
			return err
		}
	}
	return nil
}

// EmitImages writes one record per product image.
func (b *Backend) EmitImages(ctx context.Context, emit func(domain.ImageResult) error) error {
	products, err := b.ListProducts(ctx)
	if err != nil {
		return err
	}
	n := 0
	for _, p := range products {
		for _, img := range p.Images {
			if err := b.wait(ctx, b.streamDelay); err != nil {
				return err
			}
			n++
			if err := emit(domain.ImageResult{ID: n, Content: img, Alt: p.Name}); err != nil {
				return err
			}
		}
	}
	return nil
}

// StreamImages serves EmitImages through an in-process NDJSON pipe.
func (b *Backend) StreamImages(ctx context.Context) (*stream.Decoder[domain.ImageResult], error) {
	return stream.NewDecoder[domain.ImageResult](pipe(func(emit func(domain.ImageResult) error) error {
		return b.EmitImages(ctx, emit)
	}), stream.WithLogger(b.logger))
}

// StreamingBackend is a Backend whose sessions consume results as a stream.
type StreamingBackend struct {
	*Backend
}

// StreamResults serves EmitResults through an in-process NDJSON pipe.
func (s *StreamingBackend) StreamResults(ctx context.Context, searchID string) (*stream.Decoder[domain.ResultEvent], error) {
	if _, err := s.lookup(searchID); err != nil {
		return nil, err
	}
	return stream.NewDecoder[domain.ResultEvent](pipe(func(emit func(domain.ResultEvent) error) error {
		return s.EmitResults(ctx, searchID, emit)
	}), stream.WithLogger(s.logger))
}

// pipe runs produce in a goroutine and returns the NDJSON it writes. Closing
// the reader makes the next emit fail, which ends the producer.
func pipe[E any](produce func(emit func(E) error) error) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		enc := json.NewEncoder(pw)
		err := produce(func(e E) error { return enc.Encode(e) })
		pw.CloseWithError(err)
	}()
	return pr
}
