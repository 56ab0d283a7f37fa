package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paperforge/internal/providers"
	"paperforge/internal/prompts"
	"paperforge/internal/report"
)

const opSectionSynthesis = "section_synthesis"

// Synthesizer renders report sections one at a time, in plan order. Each
// finished section is fed back (with citation markers stripped) as context for
// the next one, so this is a sequential fold and must not be parallelized.
type Synthesizer struct {
	gateway CompletionGateway
	model   string
	logger  *zap.Logger
}

func NewSynthesizer(gateway CompletionGateway, model string, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gateway: gateway, model: model, logger: logger}
}

// SynthesizeAll renders every planned section. A section completion failure is
// fatal for the run; there is no partial-report fallback.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, query string, plan ClusterPlan, quotes []report.Quote, progress ProgressFunc) ([]report.GeneratedSection, []report.StepCost, error) {
	planJSON, err := json.Marshal(plan.Dimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("serializing plan: %w", err)
	}

	sections := make([]report.GeneratedSection, 0, len(plan.Dimensions))
	steps := make([]report.StepCost, 0, len(plan.Dimensions))
	var written []string
	for i, dim := range plan.Dimensions {
		if progress != nil {
			progress(fmt.Sprintf("Writing section %d of %d: %s", i+1, len(plan.Dimensions), dim.Name))
		}
		assigned := s.resolveQuotes(dim, quotes)
		heading := SectionHeading(dim.Name, dim.Format)
		res, err := s.gateway.Complete(ctx, providers.CompletionRequest{
			Operation: opSectionSynthesis,
			Prompt: prompts.BuildSectionPrompt(
				query,
				string(planJSON),
				strings.Join(written, "\n\n"),
				heading,
				FormatSectionReferences(assigned),
			),
			Model: s.model,
		})
		if err != nil {
			return nil, steps, fmt.Errorf("synthesizing section %q: %w", dim.Name, err)
		}
		steps = append(steps, report.StepCost{
			Step:   opSectionSynthesis + ":" + dim.Name,
			Model:  res.Model,
			Cost:   res.Cost,
			Tokens: tokensOf(res),
		})

		section := ParseGeneratedSection(res.Text, dim.Name, assigned)
		sections = append(sections, section)
		written = append(written, report.StripCitationKeys(res.Text))
	}
	return sections, steps, nil
}

// resolveQuotes maps a plan entry's positional indices back into the frozen
// quote sequence. Out-of-range indices are a plan-quality defect, logged and
// skipped rather than fatal.
func (s *Synthesizer) resolveQuotes(dim PlanSection, quotes []report.Quote) []report.Quote {
	assigned := make([]report.Quote, 0, len(dim.Quotes))
	for _, idx := range dim.Quotes {
		if idx < 0 || idx >= len(quotes) {
			s.logger.Warn("plan references quote index out of range",
				zap.String("section", dim.Name), zap.Int("index", idx), zap.Int("quotes", len(quotes)))
			continue
		}
		assigned = append(assigned, quotes[idx])
	}
	return assigned
}

// ParseGeneratedSection splits a raw synthesis completion into title, TLDR and
// body, and derives the citation list from the citation keys the model used.
func ParseGeneratedSection(raw, planName string, assigned []report.Quote) report.GeneratedSection {
	title := cleanSectionTitle(planName)
	text := strings.TrimSpace(raw)
	tldr := ""

	if idx := strings.Index(text, "TLDR;"); idx >= 0 {
		head := strings.TrimSpace(text[:idx])
		if head != "" {
			title = cleanSectionTitle(head)
		}
		rest := strings.TrimSpace(text[idx+len("TLDR;"):])
		if para, body, found := strings.Cut(rest, "\n\n"); found {
			tldr = strings.TrimSpace(para)
			text = strings.TrimSpace(body)
		} else {
			// Single-paragraph response: first line is the TLDR.
			if line, body, ok := strings.Cut(rest, "\n"); ok {
				tldr = strings.TrimSpace(line)
				text = strings.TrimSpace(body)
			} else {
				tldr = rest
				text = ""
			}
		}
	}

	return report.GeneratedSection{
		Title:     title,
		TLDR:      tldr,
		Text:      text,
		Citations: citationsFromText(text, assigned),
	}
}

// citationsFromText builds the section's citation records from the keys the
// model actually cited, keeping the quote text as the supporting snippet.
func citationsFromText(text string, assigned []report.Quote) []report.Citation {
	byID := make(map[int64]report.Quote, len(assigned))
	for _, q := range assigned {
		if key, ok := report.ParseCitationKey(q.Key); ok {
			byID[key.CorpusID] = q
		}
	}
	keys := report.FindCitationKeys(text)
	citations := make([]report.Citation, 0, len(keys))
	for _, k := range keys {
		cit := report.Citation{
			Paper: report.ScoredReference{
				CorpusID:   k.CorpusID,
				AuthorStr:  k.AuthorRef,
				Year:       k.Year,
				NCitations: k.NCitations,
			},
		}
		if q, ok := byID[k.CorpusID]; ok {
			cit.Snippets = []string{q.Text}
		}
		citations = append(citations, cit)
	}
	return citations
}
