// Package query orchestrates a question end to end: plan sub-queries, fan
// them out to the index, merge and bound the hits, mine numeric facts, and
// synthesize an answer. Every external dependency degrades instead of
// failing the request, except the index health gate.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlas-kb/docquery/internal/domain"
	"github.com/atlas-kb/docquery/internal/logger"
	"github.com/atlas-kb/docquery/internal/usecase/extract"
	"github.com/atlas-kb/docquery/internal/usecase/plan"
)

const (
	maxQueryLen       = 1000
	defaultMaxResults = 10
	maxMaxResults     = 50
	minTopK           = 3

	// apologyAnswer is returned when answer synthesis fails. The request
	// still succeeds: sources and facts were retrieved, only the prose is
	// missing.
	apologyAnswer = "I apologize, but I was unable to generate an answer " +
		"for your question right now. Please review the source documents " +
		"below or try again later."

	sourceExcerptLen = 200
)

// Options bound the orchestration; zero values fall back to safe defaults.
type Options struct {
	MaxSubQueries   int
	MaxConcurrency  int
	SubQueryTimeout time.Duration
	PromptHits      int
	HistoryTurns    int
}

// Service answers questions against the document knowledge base.
type Service struct {
	index     Index
	embedder  Embedder
	generator Generator
	exec      *executor
	asm       *assembler
	maxSub    int
}

// New creates a query service.
func New(index Index, embedder Embedder, generator Generator, opts Options) *Service {
	if opts.MaxSubQueries <= 0 || opts.MaxSubQueries > 6 {
		opts.MaxSubQueries = 6
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 6
	}
	if opts.SubQueryTimeout <= 0 {
		opts.SubQueryTimeout = 5 * time.Second
	}
	if opts.PromptHits <= 0 {
		opts.PromptHits = 5
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 6
	}

	return &Service{
		index:     index,
		embedder:  embedder,
		generator: generator,
		exec: &executor{
			index:       index,
			embedder:    embedder,
			concurrency: opts.MaxConcurrency,
			subTimeout:  opts.SubQueryTimeout,
		},
		asm: &assembler{
			promptHits:   opts.PromptHits,
			historyTurns: opts.HistoryTurns,
		},
		maxSub: opts.MaxSubQueries,
	}
}

// Answer runs the full pipeline for one question.
func (s *Service) Answer(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	queryID := uuid.NewString()
	log := logger.FromContext(ctx).With(zap.String("query_id", queryID))

	if err := validate(req); err != nil {
		return Response{}, err
	}

	// The index is the one dependency nothing can substitute for; a dead
	// index means the request cannot be served at all.
	if err := s.index.HealthCheck(ctx); err != nil {
		return Response{}, fmt.Errorf("index health: %w", err)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}

	p := plan.Build(req.Query)
	queries := p.SearchQueries
	if len(queries) > s.maxSub {
		queries = queries[:s.maxSub]
	}

	topK := maxResults / 2
	if topK < minTopK {
		topK = minTopK
	}

	perQuery := s.exec.run(ctx, queries, req.Filter, topK, req.UseVectorSearch)

	merged := mergeResults(perQuery, maxResults)

	// General multi-metric facts feed the pipeline log line and counters; the
	// prompt carries only the compact revenue block to stay small.
	facts := extract.Facts(merged)
	revenueByYear := extract.RevenueByYear(merged)

	prompt := s.asm.assemble(req.Query, merged, req.History, revenueByYear)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Warn("Answer synthesis failed, returning apology", zap.Error(err))
		answer = apologyAnswer
	}

	sources := make([]domain.SourceSummary, 0, len(merged))
	for _, h := range merged {
		sources = append(sources, h.Summary(sourceExcerptLen))
	}

	log.Info("Query answered",
		zap.Int("sub_queries", len(queries)),
		zap.Int("total_hits", len(merged)),
		zap.Int("facts_extracted", len(facts)),
		zap.Strings("metrics", p.Metrics),
		zap.Strings("years", p.Years),
		zap.Duration("duration", time.Since(start)),
	)

	return Response{
		QueryID:       queryID,
		Answer:        answer,
		Sources:       sources,
		TotalHits:     len(merged),
		QueryTimeMs:   time.Since(start).Milliseconds(),
		ExpandedQuery: strings.Join(queries, " | "),
	}, nil
}

func validate(req Request) error {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	if utf8.RuneCountInString(req.Query) > maxQueryLen {
		return fmt.Errorf("%w: query exceeds %d characters", domain.ErrInvalidQuery, maxQueryLen)
	}
	return nil
}
