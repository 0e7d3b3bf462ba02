package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or oversized question.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrIndexUnavailable signals that the document index failed its health check.
	ErrIndexUnavailable = errors.New("document index unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a language-model call failure.
	ErrGenerationFailed = errors.New("answer generation failed")
)
