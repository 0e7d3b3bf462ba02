package query

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-kb/docquery/internal/domain"
	"github.com/atlas-kb/docquery/internal/logger"
	"github.com/atlas-kb/docquery/internal/metrics"
)

// executor fans a list of sub-queries out to the index in parallel. Results
// are stored by input position, so output order follows the plan regardless
// of completion order.
type executor struct {
	index       Index
	embedder    Embedder
	concurrency int
	subTimeout  time.Duration
}

// run executes every sub-query and returns one hit list per sub-query,
// indexed like the input. A failed sub-query yields a nil list; only the
// parent context cancelling stops the whole batch.
func (e *executor) run(
	ctx context.Context, queries []string,
	filter domain.SearchFilter, topK int, useVector bool,
) [][]domain.DocumentHit {
	results := make([][]domain.DocumentHit, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.concurrency)

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			subCtx, cancel := context.WithTimeout(gctx, e.subTimeout)
			defer cancel()

			results[i] = e.runOne(subCtx, q, filter, topK, useVector)
			return nil
		})
	}

	// Sub-query errors never reach the group; Wait only returns a
	// cancellation error, and partial results are still usable then.
	_ = g.Wait()

	return results
}

// runOne executes a single sub-query with the full degradation ladder:
// vector path when an embedding is available, lexical otherwise, and a
// lexical retry when the hybrid query fails or comes back empty.
func (e *executor) runOne(
	ctx context.Context, q string,
	filter domain.SearchFilter, topK int, useVector bool,
) []domain.DocumentHit {
	log := logger.FromContext(ctx)

	embedding := e.embedFor(ctx, q, useVector)

	if domain.IsZeroVector(embedding) {
		return e.lexical(ctx, q, filter, topK, "lexical")
	}

	hits, err := e.index.HybridSearch(ctx, q, embedding, filter, topK)
	if err == nil && len(hits) > 0 {
		metrics.SubQueriesTotal.WithLabelValues("hybrid", "success").Inc()
		return hits
	}
	if err != nil {
		metrics.SubQueriesTotal.WithLabelValues("hybrid", "error").Inc()
		log.Warn("Hybrid search failed, retrying lexical",
			zap.String("sub_query", q), zap.Error(err))
	}

	metrics.LexicalFallbacksTotal.Inc()
	return e.lexical(ctx, q, filter, topK, "lexical_fallback")
}

// embedFor returns the sub-query embedding, or the zero vector when vector
// search is disabled or the provider fails. The zero vector means "no usable
// vector signal" and routes the sub-query down the lexical path.
func (e *executor) embedFor(ctx context.Context, q string, useVector bool) []float32 {
	if !useVector {
		return domain.ZeroVector()
	}

	res, err := e.embedder.Embed(ctx, q)
	if err != nil {
		logger.FromContext(ctx).Warn("Embedding failed, using lexical path",
			zap.String("sub_query", q), zap.Error(err))
		return domain.ZeroVector()
	}
	return res.Embedding
}

func (e *executor) lexical(
	ctx context.Context, q string,
	filter domain.SearchFilter, topK int, mode string,
) []domain.DocumentHit {
	hits, err := e.index.LexicalSearch(ctx, q, filter, topK)
	if err != nil {
		metrics.SubQueriesTotal.WithLabelValues(mode, "error").Inc()
		logger.FromContext(ctx).Warn("Lexical search failed, skipping sub-query",
			zap.String("sub_query", q), zap.Error(err))
		return nil
	}
	metrics.SubQueriesTotal.WithLabelValues(mode, "success").Inc()
	return hits
}
