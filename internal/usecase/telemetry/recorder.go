// Package telemetry records search durations at most once per search id.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Recorder claims the marker of a search id, then sends its duration.
// Failures are logged and counted, never returned.
type Recorder struct {
	marker  Marker
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
	results *prometheus.CounterVec
}

// New creates a recorder. results has label "result"
// ("recorded", "duplicate", "marker_error", "send_error") and may be nil.
func New(m Marker, s Sender, results *prometheus.CounterVec, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		marker:  m,
		sender:  s,
		timeout: defaultTimeout,
		logger:  logger,
		results: results,
	}
}

// WithTimeout bounds each send.
func (r *Recorder) WithTimeout(d time.Duration) *Recorder {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Record sends d unless its search id was recorded before. When the marker
// store is unavailable nothing is sent, since a duplicate cannot be ruled out.
func (r *Recorder) Record(ctx context.Context, d domain.SearchDuration) {
	first, err := r.marker.MarkOnce(ctx, d.SearchID)
	if err != nil {
		r.fail("marker_error", &domain.TelemetryError{SearchID: d.SearchID, Err: err})
		return
	}
	if !first {
		r.inc("duplicate")
		r.logger.Debug("Search duration already recorded", zap.String("search_id", d.SearchID))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.sender.RecordSearchDuration(ctx, d); err != nil {
		r.fail("send_error", &domain.TelemetryError{SearchID: d.SearchID, Err: err})
		return
	}

	r.inc("recorded")
	r.logger.Debug("Recorded search duration",
		zap.String("search_id", d.SearchID),
		zap.Int64("search_duration_ms", d.SearchDurationMs),
		zap.Int64("product_load_duration_ms", d.ProductLoadDurationMs),
	)
}

func (r *Recorder) fail(result string, err *domain.TelemetryError) {
	r.inc(result)
	r.logger.Warn("Failed to record search duration", zap.String("search_id", err.SearchID), zap.Error(err))
}

func (r *Recorder) inc(result string) {
	if r.results != nil {
		r.results.WithLabelValues(result).Inc()
	}
}
