package pipeline

import (
	"fmt"
	"strings"

	"paperforge/internal/report"
)

// FormatPaperContent renders one reference as the paper block fed to quote
// extraction: the citation key header followed by the snippet text.
func FormatPaperContent(ref report.ScoredReference) string {
	return report.FormatCitationKey(ref) + "\n" + ref.Text
}

// FormatQuoteList renders the frozen quote sequence as a numbered list. The
// numbers are the positional indices the planner must use in its output.
func FormatQuoteList(quotes []report.Quote) string {
	var b strings.Builder
	for i, q := range quotes {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i, q.Key, q.Text)
	}
	return b.String()
}

// FormatSectionReferences renders the quotes assigned to one section as the
// key/value reference blocks the synthesis prompt expects.
func FormatSectionReferences(quotes []report.Quote) string {
	blocks := make([]string, 0, len(quotes))
	for _, q := range quotes {
		var b strings.Builder
		fmt.Fprintf(&b, "%q: {\"quote\": %q", q.Key, q.Text)
		if len(q.InlineCitations) > 0 {
			b.WriteString(", \"inline citations\": {")
			first := true
			for key, text := range q.InlineCitations {
				if !first {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%q: %q", key, text)
				first = false
			}
			b.WriteString("}")
		}
		b.WriteString("}")
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// SectionHeading renders a plan entry's prompt-facing name with its rendering
// hint, e.g. "Key Findings (synthesis)".
func SectionHeading(name string, format SectionFormat) string {
	base := strings.TrimSpace(name)
	if strings.HasSuffix(base, "(list)") || strings.HasSuffix(base, "(synthesis)") {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, format)
}

// cleanSectionTitle strips markdown heading markers and the parenthetical
// rendering hint from a section title.
func cleanSectionTitle(title string) string {
	t := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(title), "#"))
	for _, hint := range []string{"(list)", "(synthesis)"} {
		if strings.HasSuffix(t, hint) {
			t = strings.TrimSpace(strings.TrimSuffix(t, hint))
		}
	}
	return t
}
