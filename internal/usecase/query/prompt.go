package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atlas-kb/docquery/internal/domain"
)

// Excerpt budgets keep the prompt bounded no matter how large the retrieved
// documents or the conversation are.
const (
	docExcerptLen     = 300
	historyExcerptLen = 200
)

// assembler builds the generation prompt from retrieved context.
type assembler struct {
	promptHits   int
	historyTurns int
}

// assemble renders the bounded prompt: top document excerpts, recent
// conversation turns, the extracted financial figures, and the question.
// Output is deterministic for identical inputs.
func (a *assembler) assemble(
	question string,
	hits []domain.DocumentHit,
	history []domain.Message,
	revenueByYear map[string]float64,
) string {
	var b strings.Builder

	b.WriteString("You are an assistant answering questions about a company document knowledge base.\n")
	b.WriteString("Answer using only the context below. If the context is insufficient, say so.\n")
	b.WriteString("Do not invent facts or figures that are not in the context.\n")
	b.WriteString("Cite the documents supporting your answer by their number, like [1].\n")
	b.WriteString("Do not show reasoning steps and do not use outside knowledge or tools.\n")
	b.WriteString("Keep the answer concise.\n\n")

	if len(hits) > 0 {
		b.WriteString("Relevant documents:\n")
		n := len(hits)
		if n > a.promptHits {
			n = a.promptHits
		}
		for i, h := range hits[:n] {
			fmt.Fprintf(&b, "%d. %s (%s", i+1, h.Title, h.Type)
			if h.Category != "" {
				b.WriteString(", " + h.Category)
			}
			if h.Department != "" {
				b.WriteString(", " + h.Department)
			}
			b.WriteString(")\n")
			fmt.Fprintf(&b, "   %s\n", h.Excerpt(docExcerptLen))
		}
		b.WriteString("\n")
	}

	if block := a.revenueBlock(revenueByYear); block != "" {
		b.WriteString(block)
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		turns := history
		if len(turns) > a.historyTurns {
			turns = turns[len(turns)-a.historyTurns:]
		}
		for _, m := range turns {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(m.Role), excerpt(m.Content, historyExcerptLen))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("Answer:")

	return b.String()
}

// revenueBlock renders extracted revenue figures, years ascending.
func (a *assembler) revenueBlock(revenueByYear map[string]float64) string {
	if len(revenueByYear) == 0 {
		return ""
	}

	years := make([]string, 0, len(revenueByYear))
	for y := range revenueByYear {
		years = append(years, y)
	}
	sort.Strings(years)

	var b strings.Builder
	b.WriteString("Extracted revenue figures:\n")
	for _, y := range years {
		fmt.Fprintf(&b, "- %s: %.2f\n", y, revenueByYear[y])
	}
	b.WriteString("\n")
	return b.String()
}

func roleLabel(r domain.Role) string {
	if r == domain.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
