// Package plan derives search intent from a raw natural-language question.
package plan

import (
	"regexp"
	"strings"
)

// Plan is the derived search intent for one question.
// Metrics and Years are deduplicated and keep first-seen order so that the
// produced SearchQueries are deterministic for identical input.
type Plan struct {
	Metrics       []string
	Years         []string
	SearchQueries []string
}

// metricGroup maps keywords found in the question to a canonical metric name.
type metricGroup struct {
	canonical string
	keywords  []string
}

// The six recognized metric keyword groups, scanned in a fixed order.
var metricGroups = []metricGroup{
	{"revenue", []string{"revenue", "sales"}},
	{"net income", []string{"net income", "profit"}},
	{"ebitda", []string{"ebitda"}},
	{"assets", []string{"assets"}},
	{"liabilities", []string{"liabilities"}},
	{"equity", []string{"equity"}},
}

var yearRegex = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// Build derives a Plan from the raw question. It never fails: when no metric
// keyword matches, the plan defaults to "revenue", and the verbatim question
// is always the first search query.
func Build(query string) Plan {
	lower := strings.ToLower(query)

	var metrics []string
	for _, g := range metricGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				metrics = append(metrics, g.canonical)
				break
			}
		}
	}
	if len(metrics) == 0 {
		metrics = []string{"revenue"}
	}

	var years []string
	seen := make(map[string]struct{})
	for _, y := range yearRegex.FindAllString(query, -1) {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}

	return Plan{
		Metrics:       metrics,
		Years:         years,
		SearchQueries: buildQueries(query, metrics, years),
	}
}

// buildQueries assembles the fan-out query list: the verbatim question first,
// then metric/year combinations, deduplicated preserving first-seen order.
func buildQueries(query string, metrics, years []string) []string {
	queries := []string{query}

	for _, m := range metrics {
		if len(years) == 0 {
			queries = append(queries, m)
			continue
		}
		queries = append(queries, m+" "+strings.Join(years, " "))
		for _, y := range years {
			queries = append(queries, m+" "+y)
		}
	}

	seen := make(map[string]struct{}, len(queries))
	out := queries[:0]
	for _, q := range queries {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
