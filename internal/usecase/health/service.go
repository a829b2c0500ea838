package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the catalog cannot serve searches.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalog   Checker
	extractor Checker
	db        DBPinger
}

// New creates a Service. extractor and db can be nil.
func New(catalog Checker, extractor Checker, db DBPinger) *Service {
	return &Service{catalog: catalog, extractor: extractor, db: db}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	catalogOK := s.catalog.HealthCheck(ctx) == nil
	checks["catalog"] = result(catalogOK)

	if s.extractor != nil {
		checks["extractor"] = result(s.extractor.HealthCheck(ctx) == nil)
	}
	if s.db != nil {
		checks["database"] = result(s.db.Ping(ctx) == nil)
	}

	status := Healthy
	if !catalogOK {
		return Report{Status: Unhealthy, Checks: checks}
	}
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
