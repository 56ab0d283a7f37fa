package edit

import (
	"fmt"
	"strings"

	"paperforge/internal/report"
)

const previewLength = 200

// FormatReportSummary renders the report for prompt context: title plus a
// numbered rundown of each section with its TLDR and a short text preview.
func FormatReportSummary(rep *report.GeneratedReport) string {
	var b strings.Builder
	if rep.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", rep.Title)
	}
	b.WriteString("Sections:")
	for i, sec := range rep.Sections {
		fmt.Fprintf(&b, "\n%d. %s", i+1, sec.Title)
		if sec.TLDR != "" {
			fmt.Fprintf(&b, "\n   Summary: %s", sec.TLDR)
		}
		fmt.Fprintf(&b, "\n   Preview: %s", preview(sec.Text))
		fmt.Fprintf(&b, "\n   Citations: %d papers", len(sec.Citations))
	}
	return b.String()
}

// FormatSectionsSummary renders the sections for the edit-plan prompt, with
// zero-based indices matching the section_index field the plan must emit.
func FormatSectionsSummary(sections []report.GeneratedSection) string {
	var b strings.Builder
	for i, sec := range sections {
		fmt.Fprintf(&b, "\n[Section %d]\nTitle: %s", i, sec.Title)
		if sec.TLDR != "" {
			fmt.Fprintf(&b, "\nSummary: %s", sec.TLDR)
		}
		fmt.Fprintf(&b, "\nCitations: %d papers", len(sec.Citations))
		if len(sec.Citations) > 0 {
			ids := make([]string, 0, 5)
			for _, cit := range sec.Citations {
				if len(ids) == 5 {
					break
				}
				ids = append(ids, fmt.Sprintf("%d", cit.Paper.CorpusID))
			}
			fmt.Fprintf(&b, "\nSample papers: %s", strings.Join(ids, ", "))
		}
	}
	return strings.TrimPrefix(b.String(), "\n")
}

// FormatReportContext renders every section except the one being edited, so
// the model keeps the rewrite coherent with the rest of the report.
func FormatReportContext(rep *report.GeneratedReport, excludeIndex int) string {
	var b strings.Builder
	if rep.Title != "" {
		fmt.Fprintf(&b, "Report Title: %s\n\n", rep.Title)
	}
	b.WriteString("Other sections in the report:")
	for i, sec := range rep.Sections {
		if i == excludeIndex {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s", sec.Title)
		if sec.TLDR != "" {
			fmt.Fprintf(&b, "\n%s", sec.TLDR)
		}
	}
	return b.String()
}

// FormatAvailablePapers lists the papers the plan may draw on, one line each.
func FormatAvailablePapers(refs []report.ScoredReference) string {
	lines := make([]string, 0, len(refs))
	for _, ref := range refs {
		lines = append(lines, fmt.Sprintf("[%d] %s (%d, %d citations)", ref.CorpusID, ref.AuthorStr, ref.Year, ref.NCitations))
	}
	return strings.Join(lines, "\n")
}

// FormatMentionedPapers renders user-mentioned corpus ids for the prompts.
func FormatMentionedPapers(ids []int64) string {
	if len(ids) == 0 {
		return "None"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

// formatSectionReferences renders a section's existing citations followed by
// the quotes for papers the plan flagged for that section.
func formatSectionReferences(sec report.GeneratedSection, newPapers []int64, quotesByID map[int64]report.Quote) string {
	var blocks []string
	for _, cit := range sec.Citations {
		var b strings.Builder
		b.WriteString(report.FormatCitationKey(cit.Paper))
		for _, sn := range cit.Snippets {
			b.WriteString("\n")
			b.WriteString(sn)
		}
		blocks = append(blocks, b.String())
	}
	for _, id := range newPapers {
		q, ok := quotesByID[id]
		if !ok {
			continue
		}
		blocks = append(blocks, q.Key+"\n"+q.Text)
	}
	return strings.Join(blocks, "\n\n")
}

func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	return text[:previewLength] + "..."
}
