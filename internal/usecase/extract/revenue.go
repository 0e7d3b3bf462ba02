package extract

import (
	"strings"

	"github.com/atlas-kb/docquery/internal/domain"
)

// tabularTypes are document types treated as table-like content.
var tabularTypes = map[string]struct{}{
	"csv":         {},
	"xlsx":        {},
	"spreadsheet": {},
	"table":       {},
}

// RevenueByYear builds the compact year -> summed revenue map injected into
// the financial block of the prompt. It only considers tabular hits whose
// content mentions revenue, keeping the prompt small; the general multi-metric
// facts stay separate on purpose.
func RevenueByYear(hits []domain.DocumentHit) map[string]float64 {
	totals := make(map[string]float64)

	for _, hit := range hits {
		if _, ok := tabularTypes[strings.ToLower(hit.Type)]; !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(hit.Content), "revenue") {
			continue
		}

		acc := newAccumulator()
		tabularFacts(hit, acc)
		for _, f := range acc.facts() {
			if f.Metric == "revenue" {
				totals[f.Year] += f.Value
			}
		}
	}

	if len(totals) == 0 {
		return nil
	}
	return totals
}
