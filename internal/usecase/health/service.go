// Package health aggregates dependency checks for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	analytics AnalyticsPinger
	generator GeneratorChecker
}

// New creates a Service. Any dependency can be nil and is then skipped.
func New(store StorePinger, analytics AnalyticsPinger, generator GeneratorChecker) *Service {
	return &Service{store: store, analytics: analytics, generator: generator}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		checks["score_store"] = resultOf(s.store.Ping(ctx))
	}
	if s.analytics != nil {
		checks["analytics"] = resultOf(s.analytics.Ping(ctx))
	}
	if s.generator != nil {
		checks["generator"] = resultOf(s.generator.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
