package pipeline

import (
	"strings"

	"paperforge/internal/report"
)

// AssembleReport folds the synthesized sections and the per-step billing
// records into the final report object. Step costs are kept individually even
// for steps whose content was discarded.
func AssembleReport(title string, sections []report.GeneratedSection, steps []report.StepCost, quotes []report.Quote) report.GeneratedReport {
	rep := report.GeneratedReport{
		Title:          strings.TrimSpace(title),
		Sections:       sections,
		StepCosts:      steps,
		QuotesMetadata: quotesMetadata(sections, quotes),
	}
	for _, step := range steps {
		rep.TotalCost += step.Cost
		rep.Tokens.Add(step.Tokens)
	}
	return rep
}

// quotesMetadata records, per citation key, which sections ended up using the
// quote and the quote text itself.
func quotesMetadata(sections []report.GeneratedSection, quotes []report.Quote) map[string][]report.SnippetMeta {
	if len(quotes) == 0 {
		return nil
	}
	usedBy := make(map[int64][]string)
	for _, sec := range sections {
		for _, cit := range sec.Citations {
			usedBy[cit.Paper.CorpusID] = append(usedBy[cit.Paper.CorpusID], sec.Title)
		}
	}
	meta := make(map[string][]report.SnippetMeta, len(quotes))
	for _, q := range quotes {
		key, ok := report.ParseCitationKey(q.Key)
		if !ok {
			continue
		}
		titles := usedBy[key.CorpusID]
		if len(titles) == 0 {
			meta[q.Key] = []report.SnippetMeta{{Quote: q.Text}}
			continue
		}
		records := make([]report.SnippetMeta, 0, len(titles))
		for _, title := range titles {
			records = append(records, report.SnippetMeta{Quote: q.Text, SectionTitle: title})
		}
		meta[q.Key] = records
	}
	return meta
}
