package smartsearch

import (
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/mutation"
	"github.com/kailas-cloud/smartsearch/internal/stream"
	"github.com/kailas-cloud/smartsearch/internal/usecase/session"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrValidation         = domain.ErrValidation
	ErrTransport          = domain.ErrTransport
	ErrParse              = domain.ErrParse
	ErrTelemetry          = domain.ErrTelemetry
	ErrRollback           = domain.ErrRollback
	ErrAbandoned          = domain.ErrAbandoned
	ErrAdminAccessDenied  = domain.ErrAdminAccessDenied
	ErrCorrectionProvider = domain.ErrCorrectionProvider
	ErrNoCorrection       = domain.ErrNoCorrection
	ErrPending            = mutation.ErrPending
	ErrRecordTooLarge     = stream.ErrRecordTooLarge
	ErrNoSession          = session.ErrNoSession
	ErrNotRetryable       = session.ErrNotRetryable
)

// Typed errors, for errors.As.
type (
	ValidationError       = domain.ValidationError
	TransportError        = domain.TransportError
	ParseError            = domain.ParseError
	MutationRollbackError = domain.MutationRollbackError
)
