package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"paperforge/internal/llm"
	"paperforge/internal/providers"
	"paperforge/internal/report"
)

// fakeGateway scripts completion responses per call and records every request.
type fakeGateway struct {
	mu       sync.Mutex
	respond  func(req providers.CompletionRequest) (string, error)
	requests []providers.CompletionRequest
}

func (f *fakeGateway) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	text, err := f.respond(req)
	if err != nil {
		return providers.CompletionResult{}, err
	}
	return providers.CompletionResult{
		Text:         text,
		Model:        req.Model,
		Cost:         0.01,
		InputTokens:  100,
		OutputTokens: 50,
		TotalTokens:  150,
	}, nil
}

func (f *fakeGateway) CompleteBatch(ctx context.Context, reqs []providers.CompletionRequest, workers int) ([]llm.BatchItem, error) {
	items := make([]llm.BatchItem, len(reqs))
	for i, req := range reqs {
		res, err := f.Complete(ctx, req)
		items[i] = llm.BatchItem{Index: i, Result: res, Err: err}
	}
	return items, nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testRefs() []report.ScoredReference {
	return []report.ScoredReference{
		{CorpusID: 1000, AuthorStr: "Abbott et al.", Year: 2024, NCitations: 12, Text: "Paper one snippet text.", Score: 0.9},
		{CorpusID: 2000, AuthorStr: "Baker and Cole", Year: 2023, NCitations: 150, Text: "Paper two snippet text.", Score: 0.8},
		{CorpusID: 3000, AuthorStr: "Davis", Year: 2022, NCitations: 3, Text: "Paper three snippet text.", Score: 0.7},
	}
}

func TestExtractFiltersNoneAndShortQuotes(t *testing.T) {
	gw := &fakeGateway{respond: func(req providers.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Paper one"):
			return "Valid quote text here", nil
		case strings.Contains(req.Prompt, "Paper two"):
			return "None", nil
		default:
			return "None\nExtra", nil
		}
	}}
	ex := NewQuoteExtractor(gw, "m", 2, 10, nil)

	quotes, cost, err := ex.Extract(context.Background(), "query", testRefs())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	key := report.FormatCitationKey(testRefs()[0])
	require.Equal(t, "Valid quote text here", quotes[key].Text)
	require.InDelta(t, 0.03, cost.Cost, 1e-9)
}

func TestExtractDropsFailedItemsAndEmptyReferences(t *testing.T) {
	gw := &fakeGateway{respond: func(req providers.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "Paper two") {
			return "", errors.New("provider exploded")
		}
		return "A perfectly serviceable quote.", nil
	}}
	ex := NewQuoteExtractor(gw, "m", 2, 10, nil)

	refs := append(testRefs(), report.ScoredReference{CorpusID: 4000, AuthorStr: "Empty", Year: 2021, Text: "   "})
	quotes, _, err := ex.Extract(context.Background(), "query", refs)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Equal(t, 3, gw.callCount())
}

func TestExtractRecordsInlineCitations(t *testing.T) {
	quote := "X improves Y as shown before [2000 | Baker and Cole | 2023 | Citations: 150] and later work agrees."
	gw := &fakeGateway{respond: func(req providers.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "Paper one") {
			return quote, nil
		}
		return "None", nil
	}}
	ex := NewQuoteExtractor(gw, "m", 1, 10, nil)

	quotes, _, err := ex.Extract(context.Background(), "query", testRefs())
	require.NoError(t, err)
	key := report.FormatCitationKey(testRefs()[0])
	q := quotes[key]
	require.Len(t, q.InlineCitations, 1)
	require.Equal(t, "X improves Y as shown before", q.InlineCitations["[2000 | Baker and Cole | 2023 | Citations: 150]"])
}

func TestParseClusterPlanRejectsMalformed(t *testing.T) {
	_, err := ParseClusterPlan("this is not json at all")
	require.Error(t, err)

	_, err = ParseClusterPlan(`{"cot": "ok", "report_title": "T", "dimensions": []}`)
	require.Error(t, err)

	_, err = ParseClusterPlan(`{"dimensions": [{"name": "A", "format": "table", "quotes": []}]}`)
	require.Error(t, err)
}

func TestParseClusterPlanStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"cot\": \"r\", \"report_title\": \"T\", \"dimensions\": [{\"name\": \"A\", \"format\": \"synthesis\", \"quotes\": [0]}]}\n```"
	plan, err := ParseClusterPlan(raw)
	require.NoError(t, err)
	require.Equal(t, "T", plan.ReportTitle)
	require.Equal(t, FormatSynthesis, plan.Dimensions[0].Format)
}

func TestSynthesizeAllIsSequentialAndSkipsBadIndices(t *testing.T) {
	quotes := []report.Quote{
		{Key: "[1000 | Abbott et al. | 2024 | Citations: 12]", Text: "quote one"},
		{Key: "[2000 | Baker and Cole | 2023 | Citations: 150]", Text: "quote two"},
	}
	plan := ClusterPlan{
		ReportTitle: "Test Report",
		Dimensions: []PlanSection{
			{Name: "First", Format: FormatSynthesis, Quotes: []int{0, 99}},
			{Name: "Second", Format: FormatList, Quotes: []int{1}},
		},
	}
	gw := &fakeGateway{respond: func(req providers.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "First (synthesis)") {
			require.NotContains(t, req.Prompt, "first section body")
			return "First\nTLDR; Opening summary here.\n\nThe first section body [1000 | Abbott et al. | 2024 | Citations: 12].", nil
		}
		// The second prompt must carry the first section's text with the
		// citation markers stripped out.
		require.Contains(t, req.Prompt, "The first section body")
		require.NotContains(t, req.Prompt, "[1000 | Abbott et al. | 2024 | Citations: 12]")
		return "Second\nTLDR; Second summary.\n\n- item one [2000 | Baker and Cole | 2023 | Citations: 150]", nil
	}}
	syn := NewSynthesizer(gw, "m", nil)

	sections, steps, err := syn.SynthesizeAll(context.Background(), "q", plan, quotes, nil)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Len(t, steps, 2)

	require.Equal(t, "First", sections[0].Title)
	require.Equal(t, "Opening summary here.", sections[0].TLDR)
	require.Len(t, sections[0].Citations, 1)
	require.Equal(t, int64(1000), sections[0].Citations[0].Paper.CorpusID)
	require.Equal(t, []string{"quote one"}, sections[0].Citations[0].Snippets)
}

func TestSynthesizeAllFailsFastOnSectionError(t *testing.T) {
	plan := ClusterPlan{Dimensions: []PlanSection{
		{Name: "A", Format: FormatSynthesis},
		{Name: "B", Format: FormatSynthesis},
	}}
	gw := &fakeGateway{respond: func(req providers.CompletionRequest) (string, error) {
		return "", errors.New("model is down")
	}}
	syn := NewSynthesizer(gw, "m", nil)

	_, _, err := syn.SynthesizeAll(context.Background(), "q", plan, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), `section "A"`)
	require.Equal(t, 1, gw.callCount())
}

func TestRunnerEndToEnd(t *testing.T) {
	planJSON := `{"cot": "r", "report_title": "Attention Methods", "dimensions": [{"name": "Findings", "format": "synthesis", "quotes": [0, 1, 2]}]}`
	gw := &fakeGateway{respond: func(req providers.CompletionRequest) (string, error) {
		switch req.Operation {
		case opQuoteExtraction:
			return "A relevant quote from this paper.", nil
		case opSectionPlanning:
			return planJSON, nil
		default:
			return "Findings\nTLDR; What we found.\n\nBody text [1000 | Abbott et al. | 2024 | Citations: 12].", nil
		}
	}}
	runner, err := NewRunner(gw, RunnerConfig{GenerateModel: "m", QuoteWorkers: 2}, nil)
	require.NoError(t, err)

	var progressSteps []string
	rep, err := runner.Run(context.Background(), InitialRequest{
		Query:      "how does attention work?",
		References: testRefs(),
		Progress:   func(step string) { progressSteps = append(progressSteps, step) },
	})
	require.NoError(t, err)
	require.Equal(t, "Attention Methods", rep.Title)
	require.Len(t, rep.Sections, 1)
	require.NotEmpty(t, progressSteps)
	// 3 extraction calls + 1 plan + 1 section at 0.01 each.
	require.InDelta(t, 0.05, rep.TotalCost, 1e-9)
	require.Equal(t, 750, rep.Tokens.Total)
	require.NotEmpty(t, rep.QuotesMetadata)
}

func TestRunnerRequiresGenerateModel(t *testing.T) {
	_, err := NewRunner(&fakeGateway{}, RunnerConfig{}, nil)
	require.Error(t, err)
}
