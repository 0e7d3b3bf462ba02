package domain

import "context"

// VectorDimensions is the embedding size the document index is built with.
const VectorDimensions = 768

// EmbeddingResult holds a vector and the token usage of producing it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by collaborators that can verify their upstream.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ZeroVector returns an all-zero embedding of the index dimensionality.
// Callers treat it as "no usable signal", not as an error.
func ZeroVector() []float32 {
	return make([]float32, VectorDimensions)
}

// IsZeroVector reports whether v carries no signal.
func IsZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
