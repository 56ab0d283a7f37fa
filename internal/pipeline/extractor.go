package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"paperforge/internal/providers"
	"paperforge/internal/prompts"
	"paperforge/internal/report"
)

const opQuoteExtraction = "quote_extraction"

// QuoteExtractor runs one completion per scored reference on a bounded worker
// pool and collects the verbatim quotes the model lifted from each paper.
type QuoteExtractor struct {
	gateway CompletionGateway
	model   string
	workers int
	minLen  int
	logger  *zap.Logger
}

func NewQuoteExtractor(gateway CompletionGateway, model string, workers, minQuoteLen int, logger *zap.Logger) *QuoteExtractor {
	if workers <= 0 {
		workers = 4
	}
	if minQuoteLen <= 0 {
		minQuoteLen = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteExtractor{gateway: gateway, model: model, workers: workers, minLen: minQuoteLen, logger: logger}
}

// Extract returns the citation-key → quote mapping for the given references.
// Per-reference failures and degenerate responses are dropped; only a systemic
// batch failure (context cancellation) aborts extraction.
func (e *QuoteExtractor) Extract(ctx context.Context, query string, refs []report.ScoredReference) (map[string]report.Quote, report.StepCost, error) {
	usable := make([]report.ScoredReference, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.Text) == "" {
			e.logger.Warn("reference has no text, skipping", zap.Int64("corpus_id", ref.CorpusID))
			continue
		}
		usable = append(usable, ref)
	}

	reqs := make([]providers.CompletionRequest, len(usable))
	for i, ref := range usable {
		reqs[i] = providers.CompletionRequest{
			Operation:    opQuoteExtraction,
			SystemPrompt: prompts.QuoteExtractionSystemPrompt,
			Prompt:       prompts.BuildQuoteExtractionPrompt(query, FormatPaperContent(ref)),
			Model:        e.model,
		}
	}

	cost := report.StepCost{Step: opQuoteExtraction, Model: e.model}
	items, err := e.gateway.CompleteBatch(ctx, reqs, e.workers)
	if err != nil {
		return nil, cost, err
	}

	quotes := make(map[string]report.Quote)
	for _, item := range items {
		ref := usable[item.Index]
		key := report.FormatCitationKey(ref)
		if item.Err != nil {
			e.logger.Warn("quote extraction failed for paper",
				zap.Int64("corpus_id", ref.CorpusID), zap.Error(item.Err))
			continue
		}
		cost.Cost += item.Result.Cost
		cost.Tokens.Add(tokensOf(item.Result))

		text := strings.TrimSpace(item.Result.Text)
		if isNoneResponse(text) || len(text) < e.minLen {
			continue
		}
		if _, dup := quotes[key]; dup {
			e.logger.Warn("duplicate citation key in extraction, keeping first",
				zap.String("key", key))
			continue
		}
		quotes[key] = report.Quote{
			Key:             key,
			Text:            text,
			InlineCitations: inlineCitationsOf(key, text),
		}
	}
	return quotes, cost, nil
}

// isNoneResponse reports whether the model declined to quote: the literal
// sentinel "none", alone or as the leading token of a longer response.
func isNoneResponse(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	return len(fields) == 0 || fields[0] == "none"
}

// inlineCitationsOf maps citation keys found inside the quote (other than the
// paper's own) to the span of quote text leading up to them, which is the claim
// they support.
func inlineCitationsOf(ownKey, text string) map[string]string {
	keys := report.FindCitationKeys(text)
	if len(keys) == 0 {
		return nil
	}
	inline := make(map[string]string)
	cursor := 0
	for _, k := range keys {
		key := k.String()
		idx := strings.Index(text[cursor:], key)
		if idx < 0 {
			continue
		}
		if key != ownKey {
			span := strings.TrimSpace(text[cursor : cursor+idx])
			inline[key] = span
		}
		cursor += idx + len(key)
	}
	if len(inline) == 0 {
		return nil
	}
	return inline
}

func tokensOf(res providers.CompletionResult) report.TokenUsage {
	return report.TokenUsage{
		Input:     res.InputTokens,
		Output:    res.OutputTokens,
		Total:     res.TotalTokens,
		Reasoning: res.ReasoningTokens,
	}
}
