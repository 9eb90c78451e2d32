package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Client holds the counters of the client core. Each component receives the
// vector it writes to; nothing here is registered until Register is called.
type Client struct {
	CacheEvents     *prometheus.CounterVec
	Mutations       *prometheus.CounterVec
	StreamRecords   *prometheus.CounterVec
	Telemetry       *prometheus.CounterVec
	SessionOutcomes *prometheus.CounterVec
	APIRequests     *prometheus.CounterVec
}

// NewClient creates unregistered client counters.
func NewClient() *Client {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartsearch",
			Subsystem: "client",
			Name:      name,
			Help:      help,
		}, labels)
	}
	return &Client{
		CacheEvents:     counter("cache_events_total", "Request cache events.", "event"),
		Mutations:       counter("mutations_total", "Mutation triggers by outcome.", "mutation", "result"),
		StreamRecords:   counter("stream_records_total", "Decoded stream lines by result.", "result"),
		Telemetry:       counter("telemetry_total", "Search duration reports by result.", "result"),
		SessionOutcomes: counter("session_outcomes_total", "Search session transitions.", "outcome"),
		APIRequests:     counter("api_requests_total", "HTTP API calls by operation and status code.", "op", "code"),
	}
}

// Register registers every counter on reg, reusing counters that a previous
// client already registered there.
func (c *Client) Register(reg prometheus.Registerer) error {
	for _, v := range []**prometheus.CounterVec{
		&c.CacheEvents, &c.Mutations, &c.StreamRecords,
		&c.Telemetry, &c.SessionOutcomes, &c.APIRequests,
	} {
		if err := RegisterOrReuse(reg, v); err != nil {
			return err
		}
	}
	return nil
}

// RegisterOrReuse registers a collector or reuses an existing one.
func RegisterOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("smartsearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("smartsearch: register metric: %w", err)
	}
	return nil
}
