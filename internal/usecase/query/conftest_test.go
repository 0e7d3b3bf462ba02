package query

import (
	"context"
	"sync"

	"github.com/atlas-kb/docquery/internal/domain"
)

type mockIndex struct {
	mu sync.Mutex

	hybridFn  func(q string) ([]domain.DocumentHit, error)
	lexicalFn func(q string) ([]domain.DocumentHit, error)
	healthErr error

	hybridCalls  []string
	lexicalCalls []string
}

func (m *mockIndex) HybridSearch(
	_ context.Context, q string, _ []float32, _ domain.SearchFilter, _ int,
) ([]domain.DocumentHit, error) {
	m.mu.Lock()
	m.hybridCalls = append(m.hybridCalls, q)
	m.mu.Unlock()
	if m.hybridFn == nil {
		return nil, nil
	}
	return m.hybridFn(q)
}

func (m *mockIndex) LexicalSearch(
	_ context.Context, q string, _ domain.SearchFilter, _ int,
) ([]domain.DocumentHit, error) {
	m.mu.Lock()
	m.lexicalCalls = append(m.lexicalCalls, q)
	m.mu.Unlock()
	if m.lexicalFn == nil {
		return nil, nil
	}
	return m.lexicalFn(q)
}

func (m *mockIndex) HealthCheck(context.Context) error { return m.healthErr }

func (m *mockIndex) hybridCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hybridCalls)
}

func (m *mockIndex) lexicalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lexicalCalls)
}

type mockEmbedder struct {
	vec []float32
	err error
}

func (m *mockEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 4}, nil
}

type mockGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func hit(id, title string) domain.DocumentHit {
	return domain.DocumentHit{ID: id, Title: title, Type: "pdf", Content: "content of " + title, Score: 1}
}

func liveVector() []float32 {
	v := make([]float32, domain.VectorDimensions)
	v[0] = 0.5
	return v
}

func newTestService(idx Index, emb Embedder, gen Generator) *Service {
	return New(idx, emb, gen, Options{})
}
