package query

import "github.com/atlas-kb/docquery/internal/domain"

// mergeResults flattens per-sub-query hit lists into one deduplicated list.
// Order is deterministic: sub-queries in plan order, hits in ranking order,
// first occurrence of an identity wins. The merged list is capped at max.
func mergeResults(perQuery [][]domain.DocumentHit, max int) []domain.DocumentHit {
	seen := make(map[string]struct{})
	var merged []domain.DocumentHit

	for _, hits := range perQuery {
		for _, h := range hits {
			key := h.Identity()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, h)
			if len(merged) == max {
				return merged
			}
		}
	}
	return merged
}
