package smartsearch

import (
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/stream"
	"github.com/kailas-cloud/smartsearch/internal/usecase/analytics"
	"github.com/kailas-cloud/smartsearch/internal/usecase/catalog"
	"github.com/kailas-cloud/smartsearch/internal/usecase/gallery"
	"github.com/kailas-cloud/smartsearch/internal/usecase/session"
)

// Domain types shared with the server API.
type (
	QueryRequest   = domain.QueryRequest
	SearchResults  = domain.SearchResults
	Product        = domain.Product
	ProductInput   = domain.ProductInput
	ProductImage   = domain.ProductImage
	Brand          = domain.Brand
	Category       = domain.Category
	ImageResult    = domain.ImageResult
	SearchTiming   = domain.SearchTiming
	SearchDuration = domain.SearchDuration
	Correction     = domain.Correction
	Corrector      = domain.Corrector
	Vote           = domain.Vote
)

// Vote values.
const (
	VoteUnset   = domain.VoteUnset
	VoteLike    = domain.VoteLike
	VoteDislike = domain.VoteDislike
)

// ParseVote parses "like" or "dislike".
func ParseVote(s string) (Vote, bool) { return domain.ParseVote(s) }

// Session state.
type (
	Snapshot = session.Snapshot
	Phase    = session.Phase
)

// Session phases.
const (
	PhaseIdle            = session.PhaseIdle
	PhaseSubmitting      = session.PhaseSubmitting
	PhaseAwaitingResults = session.PhaseAwaitingResults
	PhaseReady           = session.PhaseReady
	PhaseFailed          = session.PhaseFailed
)

// Catalog, analytics and gallery views.
type (
	ProductPage     = catalog.Page
	TimingBreakdown = analytics.Breakdown
	TimingSummary   = analytics.Summary
	GalleryResult   = gallery.Result
	StreamStats     = stream.Stats
)

// HealthStatus represents the aggregated client health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
