package query

import (
	"context"

	"github.com/atlas-kb/docquery/internal/domain"
)

// Index defines the document index contract for query execution.
type Index interface {
	HybridSearch(
		ctx context.Context, query string, embedding []float32,
		filter domain.SearchFilter, size int,
	) ([]domain.DocumentHit, error)

	LexicalSearch(
		ctx context.Context, query string,
		filter domain.SearchFilter, size int,
	) ([]domain.DocumentHit, error)

	HealthCheck(ctx context.Context) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces the final answer text from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is a single question against the knowledge base.
type Request struct {
	Query           string
	Filter          domain.SearchFilter
	History         []domain.Message
	UseVectorSearch bool
	MaxResults      int
}

// Response is the synthesized answer with its supporting sources.
type Response struct {
	QueryID       string
	Answer        string
	Sources       []domain.SourceSummary
	TotalHits     int
	QueryTimeMs   int64
	ExpandedQuery string
}
