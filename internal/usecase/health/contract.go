package health

import "context"

// IndexPinger checks document index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external provider (embeddings, LLM).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
