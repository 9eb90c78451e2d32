// Package gallery consumes the progressive image search stream.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/mutation"
	"github.com/kailas-cloud/smartsearch/internal/stream"
)

// Result is the outcome of one gallery run.
type Result struct {
	Images []domain.ImageResult
	Stats  stream.Stats
}

// Service runs one image stream at a time. A new run clears the previous images.
type Service struct {
	source Source
	logger *zap.Logger
	run    *mutation.Controller[func(domain.ImageResult), Result]

	mu     sync.Mutex
	images []domain.ImageResult
}

// New creates a gallery service.
func New(src Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{source: src, logger: logger}
	s.run = mutation.New(s.consume, mutation.Config[func(domain.ImageResult), Result]{
		Name:   "image_stream",
		Logger: logger,
	})
	return s
}

// Start streams images, calling onImage for each one as it arrives. It returns
// mutation.ErrPending while a previous run is still streaming. A stream that
// fails midway returns the images received so far together with the error.
func (s *Service) Start(ctx context.Context, onImage func(domain.ImageResult)) (Result, error) {
	res, err := s.run.Trigger(ctx, onImage)
	if errors.Is(err, mutation.ErrPending) {
		return Result{}, err
	}
	if err != nil {
		return s.partial(), err
	}
	return res, nil
}

// Images returns the images of the current or last run.
func (s *Service) Images() []domain.ImageResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ImageResult(nil), s.images...)
}

// Loading reports whether a run is streaming.
func (s *Service) Loading() bool {
	return s.run.Pending()
}

func (s *Service) partial() Result {
	return Result{Images: s.Images()}
}

func (s *Service) consume(ctx context.Context, onImage func(domain.ImageResult)) (Result, error) {
	s.mu.Lock()
	s.images = nil
	s.mu.Unlock()

	dec, err := s.source.StreamImages(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open image stream: %w", err)
	}
	defer dec.Close()

	for img := range dec.Records(ctx) {
		s.mu.Lock()
		s.images = append(s.images, img)
		s.mu.Unlock()
		if onImage != nil {
			onImage(img)
		}
	}
	if err := dec.Err(); err != nil {
		s.logger.Warn("Image stream failed", zap.Error(err), zap.Int("received", dec.Stats().Records))
		return Result{}, fmt.Errorf("image stream: %w", err)
	}
	return Result{Images: s.Images(), Stats: dec.Stats()}, nil
}
