package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a required component is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component is one named dependency. A failing required component makes the
// report unhealthy; a failing optional one only degrades it.
type Component struct {
	Name     string
	Pinger   Pinger
	Required bool
}

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Names returns the checked component names, sorted.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for n := range r.Checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Service coordinates health checks.
type Service struct {
	components []Component
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Service. Components with a nil Pinger are skipped.
func New(logger *zap.Logger, components ...Component) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	var cs []Component
	for _, c := range components {
		if c.Pinger != nil {
			cs = append(cs, c)
		}
	}
	return &Service{components: cs, timeout: 3 * time.Second, logger: logger}
}

// Check pings all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(s.components))
		status = Healthy
	)
	for _, c := range s.components {
		wg.Go(func() {
			err := c.Pinger.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				checks[c.Name] = CheckOK
				return
			}
			s.logger.Warn("Health check failed", zap.String("component", c.Name), zap.Error(err))
			checks[c.Name] = CheckError
			switch {
			case c.Required:
				status = Unhealthy
			case status == Healthy:
				status = Degraded
			}
		})
	}
	wg.Wait()

	return Report{Status: status, Checks: checks}
}
