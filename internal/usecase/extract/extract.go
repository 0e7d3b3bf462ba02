// Package extract mines numeric metric/year facts from retrieved document
// content. The heuristics are deliberately narrow, regex-driven rules: a
// tabular header/row scan and a free-text pattern match. They are best-effort:
// individual rows or matches that fail to parse are skipped, and extraction
// never returns an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/atlas-kb/docquery/internal/domain"
	"github.com/atlas-kb/docquery/internal/metrics"
)

// Fact is a structured (metric, year, value) triple mined from content.
// Values for the same (metric, year) are summed across rows and documents;
// Source names the document the fact was first seen in.
type Fact struct {
	Metric string
	Year   string
	Value  float64
	Source string
}

// metricKeywords maps content keywords to canonical metric names, scanned in
// order so multi-word keywords win. Same six groups the query planner knows.
var metricKeywords = []struct {
	keyword   string
	canonical string
}{
	{"net income", "net income"},
	{"revenue", "revenue"},
	{"sales", "revenue"},
	{"profit", "net income"},
	{"ebitda", "ebitda"},
	{"assets", "assets"},
	{"liabilities", "liabilities"},
	{"equity", "equity"},
}

var (
	yearRegex = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

	// freeTextRegex matches "<metric keyword> ... <year> ... <number>" with an
	// optional currency symbol and thousands separators, within one sentence.
	freeTextRegex = regexp.MustCompile(
		`(?i)\b(revenue|sales|net income|profit|ebitda|assets|liabilities|equity)\b` +
			`[^.\n]{0,80}?\b(19\d{2}|20\d{2})\b` +
			`[^.\n0-9]{0,40}?[$€£]?\s?(-?\d{1,3}(?:,\d{3})*(?:\.\d+)?)`,
	)
)

// Facts runs both heuristics over every hit and returns facts aggregated by
// (metric, year). The free-text heuristic runs on hits where the tabular scan
// produced nothing. Order is deterministic: first-seen (metric, year) first.
func Facts(hits []domain.DocumentHit) []Fact {
	acc := newAccumulator()

	for _, hit := range hits {
		n := tabularFacts(hit, acc)
		if n > 0 {
			metrics.FactsExtractedTotal.WithLabelValues("tabular").Add(float64(n))
			continue
		}
		n = freeTextFacts(hit, acc)
		if n > 0 {
			metrics.FactsExtractedTotal.WithLabelValues("freetext").Add(float64(n))
		}
	}

	return acc.facts()
}

// tabularFacts scans the hit content for a comma-separated table whose header
// mentions a metric keyword, then mines one fact per metric column per data
// row. Returns the number of emitted facts.
func tabularFacts(hit domain.DocumentHit, acc *accumulator) int {
	lines := strings.Split(hit.Content, "\n")

	headerIdx := -1
	var headers []string
	for i, line := range lines {
		if !strings.Contains(line, ",") {
			continue
		}
		if metricForToken(strings.ToLower(line)) == "" {
			continue
		}
		headerIdx = i
		for _, h := range strings.Split(line, ",") {
			headers = append(headers, strings.ToLower(strings.TrimSpace(h)))
		}
		break
	}
	if headerIdx < 0 {
		return 0
	}

	periodCol := -1
	for i, h := range headers {
		if strings.Contains(h, "month") || strings.Contains(h, "date") || strings.Contains(h, "period") {
			periodCol = i
			break
		}
	}
	if periodCol < 0 {
		return 0
	}

	emitted := 0
	for _, line := range lines[headerIdx+1:] {
		if !strings.Contains(line, ",") {
			continue
		}
		cells := strings.Split(line, ",")
		if periodCol >= len(cells) {
			continue
		}

		year := yearRegex.FindString(cells[periodCol])
		if year == "" {
			continue
		}

		for col, header := range headers {
			metric := metricForToken(header)
			if metric == "" || col >= len(cells) {
				continue
			}
			value, ok := parseNumericCell(cells[col])
			if !ok {
				continue
			}
			acc.add(metric, year, value, hit.Title)
			emitted++
		}
	}
	return emitted
}

// freeTextFacts mines "<metric> ... <year> ... <number>" patterns from prose.
func freeTextFacts(hit domain.DocumentHit, acc *accumulator) int {
	emitted := 0
	for _, m := range freeTextRegex.FindAllStringSubmatch(hit.Content, -1) {
		metric := metricForToken(strings.ToLower(m[1]))
		if metric == "" {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[3], ",", ""), 64)
		if err != nil {
			continue
		}
		acc.add(metric, m[2], value, hit.Title)
		emitted++
	}
	return emitted
}

// metricForToken returns the canonical metric for a token that contains a
// metric keyword, or "" when none matches.
func metricForToken(token string) string {
	for _, e := range metricKeywords {
		if strings.Contains(token, e.keyword) {
			return e.canonical
		}
	}
	return ""
}

// parseNumericCell strips everything except digits, '.' and '-' and parses
// the remainder as a float. Cells like "$1,000" or "(2.5)" reduce to numbers.
func parseNumericCell(cell string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, cell)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// accumulator sums fact values by (metric, year), keeping first-seen order
// and the first source document.
type accumulator struct {
	order []string
	byKey map[string]*Fact
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[string]*Fact)}
}

func (a *accumulator) add(metric, year string, value float64, source string) {
	key := metric + "|" + year
	if f, ok := a.byKey[key]; ok {
		// Values from repeated rows and documents are summed, not overwritten.
		f.Value += value
		return
	}
	a.byKey[key] = &Fact{Metric: metric, Year: year, Value: value, Source: source}
	a.order = append(a.order, key)
}

func (a *accumulator) facts() []Fact {
	out := make([]Fact, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.byKey[key])
	}
	return out
}
