package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks availability of a component (catalog, extractor).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
