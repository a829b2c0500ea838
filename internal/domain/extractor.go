package domain

import "context"

// Extractor turns raw image bytes into a fixed-length embedding for one embedding space.
type Extractor interface {
	Extract(ctx context.Context, space string, image []byte) ([]float32, error)
}

// HealthChecker verifies availability of an external collaborator.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
