package providers

import (
	"context"
	"strings"
)

// MockProvider returns deterministic completions for offline runs and tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	_ = ctx
	op := strings.ToLower(req.Operation)
	text := "Mock response."
	switch {
	case strings.Contains(op, "quote"):
		text = "Deterministic mock quote text relevant to the query."
	case strings.Contains(op, "cluster"), strings.Contains(op, "plan"):
		text = `{"cot": "mock reasoning", "report_title": "Mock Report", "dimensions": [{"name": "Findings", "format": "synthesis", "quotes": [0]}]}`
	case strings.Contains(op, "decide"):
		text = `{"needs_search": false, "search_query": null, "reasoning": "mock: existing references suffice"}`
	case strings.Contains(op, "section"):
		text = "Mock section body grounded in the provided quotes."
	}
	return CompletionResult{
		Text:         text,
		Model:        "mock-llm-v1",
		InputTokens:  10,
		OutputTokens: 20,
		TotalTokens:  30,
	}, nil
}
