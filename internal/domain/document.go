package domain

import (
	"fmt"
	"strconv"
)

// DocumentHit is a single retrieved document as returned by the index.
// Hits are immutable once retrieved; only the orchestration layer annotates
// them with the originating sub-query position for the deterministic merge.
type DocumentHit struct {
	ID         string
	Title      string
	Type       string
	Content    string
	Category   string
	Department string
	Tags       []string
	CreatedAt  int64 // unix milliseconds
	Score      float64
	Highlights []string
}

// Identity returns the dedupe key for a hit: the document id, or
// title+createdAt when the index returned no id.
func (h DocumentHit) Identity() string {
	if h.ID != "" {
		return h.ID
	}
	return h.Title + "|" + strconv.FormatInt(h.CreatedAt, 10)
}

// Excerpt returns the first n characters of the content, with an ellipsis
// appended when truncated.
func (h DocumentHit) Excerpt(n int) string {
	r := []rune(h.Content)
	if len(r) <= n {
		return h.Content
	}
	return string(r[:n]) + "..."
}

// SourceSummary is the client-facing citation for one hit.
type SourceSummary struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Type           string            `json:"type"`
	RelevanceScore float64           `json:"relevanceScore"`
	Excerpt        string            `json:"excerpt"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Summary converts a hit into its citation form with a bounded excerpt.
func (h DocumentHit) Summary(excerptLen int) SourceSummary {
	meta := make(map[string]string)
	if h.Category != "" {
		meta["category"] = h.Category
	}
	if h.Department != "" {
		meta["department"] = h.Department
	}
	return SourceSummary{
		ID:             h.ID,
		Title:          h.Title,
		Type:           h.Type,
		RelevanceScore: h.Score,
		Excerpt:        h.Excerpt(excerptLen),
		Metadata:       meta,
	}
}

func (h DocumentHit) String() string {
	return fmt.Sprintf("%s (%s, score=%.3f)", h.Title, h.Type, h.Score)
}
