package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
	logpkg "github.com/kailas-cloud/smartsearch/internal/logger"
	healthuc "github.com/kailas-cloud/smartsearch/internal/usecase/health"
	"github.com/kailas-cloud/smartsearch/internal/validate"
)

// Error codes returned in the {code, message} error body.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeUnauthorized     = "unauthorized"
	CodeProviderError    = "correction_provider_error"
	CodeInternalError    = "internal_error"
)

const maxBodyBytes = 10 << 20

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the product search API over a Backend.
type Server struct {
	backend       Backend
	health        *healthuc.Service
	validate      *validator.Validate
	maxQueryRunes int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithMaxQueryRunes caps the length of a submitted query. Zero disables the cap.
func WithMaxQueryRunes(n int) Option {
	return func(s *Server) { s.maxQueryRunes = n }
}

// NewServer creates an HTTP API server.
func NewServer(backend Backend, health *healthuc.Service, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		backend:       backend,
		health:        health,
		validate:      validate.New(),
		maxQueryRunes: domain.DefaultMaxQueryRunes,
		logger:        logger,
	}
	for _, o := range opts {
		o(s)
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAdminAccessDenied, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrCorrectionProvider, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r gochi.Router) {
		r.Post("/search", s.SubmitSearch)
		r.Get("/search/{searchID}", s.FetchResults)
		r.Get("/search/{searchID}/stream", s.StreamResults)
		r.Get("/raw-text-results/{searchID}", s.SearchRawText)
		r.Post("/feedback", s.SendFeedback)
		r.Post("/analytics/search-duration", s.RecordSearchDuration)
		r.Get("/analytics/search-durations", s.SearchTimings)
		r.Get("/stream-search-images", s.StreamImages)

		r.Get("/categories", s.ListCategories)
		r.Get("/brands", s.ListBrands)
		r.Get("/products", s.ListProducts)
		r.Post("/products", s.CreateProduct)
		r.Get("/products/{productID}", s.GetProduct)
		r.Put("/products/{productID}", s.UpdateProduct)
		r.Delete("/products/{productID}", s.DeleteProduct)
		r.Get("/products/{productID}/images", s.ProductImages)
	})
}

// Handler returns a bare router serving the API.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	s.Routes(r)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}})
		return
	}
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(s.validate, v); err != nil {
		s.handleDomainError(w, r, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAdminAccessDenied,
		domain.ErrCorrectionProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports the rejected field's reason as the message.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	msg := err.Error()
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Reason
		if ve.Field != "" && ve.Field != "raw_text" {
			msg = ve.Field + ": " + ve.Reason
		}
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
