// Package index adapts the document index (RediSearch FT.SEARCH) to the
// query orchestration contract: hybrid search, lexical search, health check.
package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/atlas-kb/docquery/internal/db"
	"github.com/atlas-kb/docquery/internal/domain"
)

// Boost weights for the lexical clauses: filename highest, then title,
// content and summary lower.
const (
	weightFilename = 4.0
	weightTitle    = 3.0
	weightContent  = 1.0
	weightSummary  = 1.0
)

// tieBreaker blends the weaker of the two lexical strategies into the final
// score (dis_max analogue: best + tieBreaker*other).
const tieBreaker = 0.3

var returnFields = []string{
	"title", "doc_type", "content", "category", "department",
	"tags", "created_at", "__embedding_score",
}

// store is the consumer interface for index operations.
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	Ping(ctx context.Context) error
}

// Repo reads the shared document index. Documents are written by the upload
// subsystem; this repository never mutates them.
type Repo struct {
	store     store
	indexName string
	docPrefix string
}

// New creates an index repository. keyPrefix matches the upload subsystem's
// storage prefix (e.g. "docquery:").
func New(s store, keyPrefix string) *Repo {
	return &Repo{
		store:     s,
		indexName: keyPrefix + "doc:idx",
		docPrefix: keyPrefix + "doc:",
	}
}

// HealthCheck verifies the index backend responds.
func (r *Repo) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// HybridSearch runs the disjunction of a KNN clause (k = size*2) and a
// weighted fuzzy multi-field lexical clause. A document matching either
// clause is a candidate; the union is fused by reciprocal rank and truncated
// to size.
func (r *Repo) HybridSearch(
	ctx context.Context, query string, embedding []float32,
	filter domain.SearchFilter, size int,
) ([]domain.DocumentHit, error) {
	prefilter := buildFilter(filter)

	knnRes, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Prefilter:    prefilter,
		Vector:       embedding,
		K:            size * 2,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid knn %q: %w", query, err)
	}
	knnHits := r.parseEntries(knnRes)

	// Lexical clause of the disjunction. A failure here degrades to
	// KNN-only rather than failing the whole hybrid query.
	var lexHits []domain.DocumentHit
	if textRes, textErr := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		Query:        withPrefilter(prefilter, fuzzyMultiFieldQuery(query)),
		TopK:         size * 2,
		ReturnFields: returnFields,
	}); textErr == nil {
		lexHits = r.parseEntries(textRes)
	}

	return fuseReciprocalRank(knnHits, lexHits, size), nil
}

// LexicalSearch runs the max-of-two-strategies keyword query: a fuzzy
// weighted multi-field match and a lenient OR-tokens match, combined per
// document as best + tieBreaker*other.
func (r *Repo) LexicalSearch(
	ctx context.Context, query string,
	filter domain.SearchFilter, size int,
) ([]domain.DocumentHit, error) {
	prefilter := buildFilter(filter)

	fuzzyRes, fuzzyErr := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		Query:        withPrefilter(prefilter, fuzzyMultiFieldQuery(query)),
		TopK:         size,
		ReturnFields: returnFields,
	})

	lenientRes, lenientErr := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.indexName,
		Query:        withPrefilter(prefilter, lenientTokenQuery(query)),
		TopK:         size,
		ReturnFields: returnFields,
	})

	if fuzzyErr != nil && lenientErr != nil {
		return nil, fmt.Errorf("lexical %q: %w", query, fuzzyErr)
	}

	var fuzzyHits, lenientHits []domain.DocumentHit
	if fuzzyErr == nil {
		fuzzyHits = r.parseEntries(fuzzyRes)
	}
	if lenientErr == nil {
		lenientHits = r.parseEntries(lenientRes)
	}

	return combineDisMax(fuzzyHits, lenientHits, size), nil
}

// --- Query building ---

// fuzzyMultiFieldQuery builds the weighted fuzzy clause across the four text
// fields. Each token matches with Levenshtein distance 1 (%token%).
func fuzzyMultiFieldQuery(query string) string {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return "*"
	}

	fuzzy := make([]string, len(tokens))
	for i, t := range tokens {
		fuzzy[i] = "%" + t + "%"
	}
	terms := strings.Join(fuzzy, " ")

	clauses := []string{
		fmt.Sprintf("(@filename:(%s))=>{$weight:%g;}", terms, weightFilename),
		fmt.Sprintf("(@title:(%s))=>{$weight:%g;}", terms, weightTitle),
		fmt.Sprintf("(@content:(%s))=>{$weight:%g;}", terms, weightContent),
		fmt.Sprintf("(@summary:(%s))=>{$weight:%g;}", terms, weightSummary),
	}
	return "(" + strings.Join(clauses, " | ") + ")"
}

// lenientTokenQuery builds the permissive strategy: any token matching in any
// text field qualifies.
func lenientTokenQuery(query string) string {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return "*"
	}
	return "(" + strings.Join(tokens, " | ") + ")"
}

func withPrefilter(prefilter, clause string) string {
	if prefilter == "" {
		return clause
	}
	return prefilter + " " + clause
}

// queryTokens splits a question into searchable tokens, dropping characters
// that carry FT.SEARCH syntax.
func queryTokens(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, query)

	var tokens []string
	for _, t := range strings.Fields(cleaned) {
		if len(t) >= 2 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// buildFilter translates a SearchFilter into an FT.SEARCH pre-filter string.
func buildFilter(f domain.SearchFilter) string {
	if f.IsEmpty() {
		return ""
	}

	var parts []string
	if clause := tagClause("doc_type", f.DocumentTypes); clause != "" {
		parts = append(parts, clause)
	}
	if clause := tagClause("category", f.Categories); clause != "" {
		parts = append(parts, clause)
	}
	if clause := tagClause("department", f.Departments); clause != "" {
		parts = append(parts, clause)
	}
	if clause := tagClause("tags", f.Tags); clause != "" {
		parts = append(parts, clause)
	}
	if f.DateRange != nil {
		start := "-inf"
		end := "+inf"
		if f.DateRange.Start > 0 {
			start = strconv.FormatInt(f.DateRange.Start, 10)
		}
		if f.DateRange.End > 0 {
			end = strconv.FormatInt(f.DateRange.End, 10)
		}
		parts = append(parts, fmt.Sprintf("@created_at:[%s %s]", start, end))
	}

	return strings.Join(parts, " ")
}

func tagClause(field string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|"))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

// --- Result parsing ---

// parseEntries converts raw FT.SEARCH entries into domain hits, validating
// the loosely-typed hash fields at this boundary.
func (r *Repo) parseEntries(sr *db.SearchResult) []domain.DocumentHit {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	hits := make([]domain.DocumentHit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hit := domain.DocumentHit{
			ID:         strings.TrimPrefix(entry.Key, r.docPrefix),
			Title:      entry.Fields["title"],
			Type:       entry.Fields["doc_type"],
			Content:    entry.Fields["content"],
			Category:   entry.Fields["category"],
			Department: entry.Fields["department"],
			Score:      entry.Score,
		}
		if tags := entry.Fields["tags"]; tags != "" {
			hit.Tags = strings.Split(tags, ",")
		}
		if createdAt := entry.Fields["created_at"]; createdAt != "" {
			if ms, err := strconv.ParseInt(createdAt, 10, 64); err == nil {
				hit.CreatedAt = ms
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

// --- Fusion ---

// rrfK is the reciprocal rank fusion constant (Cormack et al. 2009).
const rrfK = 60

// fuseReciprocalRank merges the KNN and lexical result lists of a hybrid
// query. A document appearing in both lists accumulates both rank scores.
func fuseReciprocalRank(knn, lexical []domain.DocumentHit, size int) []domain.DocumentHit {
	type scored struct {
		hit   domain.DocumentHit
		score float64
	}

	merged := make(map[string]*scored)
	var order []string

	addList := func(hits []domain.DocumentHit) {
		for rank, h := range hits {
			s := 1.0 / float64(rrfK+rank+1)
			key := h.Identity()
			if existing, ok := merged[key]; ok {
				existing.score += s
				continue
			}
			merged[key] = &scored{hit: h, score: s}
			order = append(order, key)
		}
	}
	addList(knn)
	addList(lexical)

	out := make([]domain.DocumentHit, 0, len(order))
	for _, key := range order {
		s := merged[key]
		h := s.hit
		h.Score = s.score
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > size {
		out = out[:size]
	}
	return out
}

// combineDisMax merges the two lexical strategies: per document the best
// score wins and the weaker strategy contributes tieBreaker times its score.
func combineDisMax(primary, secondary []domain.DocumentHit, size int) []domain.DocumentHit {
	type scored struct {
		hit  domain.DocumentHit
		best float64
		rest float64
	}

	merged := make(map[string]*scored)
	var order []string

	addList := func(hits []domain.DocumentHit) {
		for _, h := range hits {
			key := h.Identity()
			if existing, ok := merged[key]; ok {
				if h.Score > existing.best {
					existing.rest += existing.best
					existing.best = h.Score
				} else {
					existing.rest += h.Score
				}
				continue
			}
			merged[key] = &scored{hit: h, best: h.Score}
			order = append(order, key)
		}
	}
	addList(primary)
	addList(secondary)

	out := make([]domain.DocumentHit, 0, len(order))
	for _, key := range order {
		s := merged[key]
		h := s.hit
		h.Score = s.best + tieBreaker*s.rest
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > size {
		out = out[:size]
	}
	return out
}
