package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	logpkg "github.com/kailas-cloud/smartsearch/internal/logger"
	"github.com/kailas-cloud/smartsearch/internal/validate"
)

type searchRequest struct {
	RawText string `json:"raw_text"`
}

type searchIDResponse struct {
	SearchID string `json:"search_id"`
}

type feedbackRequest struct {
	QueryID    string `json:"query_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	IsRelevant *bool  `json:"is_relevant"`
}

type durationRequest struct {
	SearchID              string `json:"search_id" validate:"required"`
	SearchDurationMs      int64  `json:"search_duration_ms" validate:"gte=0"`
	ProductLoadDurationMs int64  `json:"product_load_duration_ms" validate:"gte=0"`
}

// SubmitSearch handles POST /api/search. It accepts a JSON body or a
// multipart form with raw_text and an optional image file.
func (s *Server) SubmitSearch(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if s.maxQueryRunes > 0 {
		tag := fmt.Sprintf("max=%d", s.maxQueryRunes)
		if err := validate.Var(s.validate, "raw_text", q.Text, tag); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	id, err := s.backend.SubmitSearch(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchIDResponse{SearchID: id})
}

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (domain.QueryRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.QueryRequest{}, err
		}
		return domain.QueryRequest{Text: req.RawText}, nil
	}

	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return domain.QueryRequest{}, err
	}
	q := domain.QueryRequest{Text: r.FormValue("raw_text")}
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return q, nil
	case err != nil:
		return domain.QueryRequest{}, err
	}
	defer file.Close()
	if q.Image, err = io.ReadAll(file); err != nil {
		return domain.QueryRequest{}, err
	}
	q.ImageName = header.Filename
	return q, nil
}

// FetchResults handles GET /api/search/{searchID}.
func (s *Server) FetchResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.FetchResults(r.Context(), gochi.URLParam(r, "searchID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StreamResults handles GET /api/search/{searchID}/stream.
func (s *Server) StreamResults(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "searchID")
	streamNDJSON(s, w, r, func(ctx context.Context, emit func(domain.ResultEvent) error) error {
		return s.backend.EmitResults(ctx, id, emit)
	})
}

// StreamImages handles GET /api/stream-search-images.
func (s *Server) StreamImages(w http.ResponseWriter, r *http.Request) {
	streamNDJSON(s, w, r, s.backend.EmitImages)
}

// SearchRawText handles GET /api/raw-text-results/{searchID}.
func (s *Server) SearchRawText(w http.ResponseWriter, r *http.Request) {
	id, err := s.backend.SearchRawText(r.Context(), gochi.URLParam(r, "searchID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchIDResponse{SearchID: id})
}

// SendFeedback handles POST /api/feedback.
func (s *Server) SendFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	fb := domain.Feedback{QueryID: req.QueryID, ProductID: req.ProductID, IsRelevant: req.IsRelevant}
	if err := s.backend.SendFeedback(r.Context(), fb); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordSearchDuration handles POST /api/analytics/search-duration.
func (s *Server) RecordSearchDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if !s.decode(w, r, &req) {
		return
	}
	d := domain.SearchDuration{
		SearchID:              req.SearchID,
		SearchDurationMs:      req.SearchDurationMs,
		ProductLoadDurationMs: req.ProductLoadDurationMs,
	}
	if err := s.backend.RecordSearchDuration(r.Context(), d); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchTimings handles GET /api/analytics/search-durations.
func (s *Server) SearchTimings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.backend.SearchTimings(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.SearchTiming{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// ndjsonWriter writes one JSON record per line and flushes after each.
// Headers are sent with the first record so that lookup errors still map to a status.
type ndjsonWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	enc     *json.Encoder
	started bool
	records int
}

func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	return &ndjsonWriter{w: w, rc: http.NewResponseController(w), enc: json.NewEncoder(w)}
}

func (n *ndjsonWriter) start() {
	if n.started {
		return
	}
	n.started = true
	n.w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	n.w.Header().Set("Cache-Control", "no-cache")
	n.w.WriteHeader(http.StatusOK)
}

func (n *ndjsonWriter) write(v any) error {
	n.start()
	if err := n.enc.Encode(v); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	n.records++
	if err := n.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

func streamNDJSON[E any](
	s *Server, w http.ResponseWriter, r *http.Request,
	produce func(ctx context.Context, emit func(E) error) error,
) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	nd := newNDJSONWriter(w)
	err := produce(r.Context(), func(e E) error { return nd.write(e) })
	switch {
	case err == nil:
		nd.start()
	case !nd.started:
		s.handleDomainError(w, r, err)
	case r.Context().Err() != nil:
		logger.Debug("stream client gone", zap.String("path", r.URL.Path), zap.Int("records", nd.records))
	default:
		logger.Warn("stream aborted",
			zap.String("path", r.URL.Path),
			zap.Int("records", nd.records),
			zap.Error(err),
		)
	}
}
