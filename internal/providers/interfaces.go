package providers

import "context"

// CompletionRequest is a single LLM completion. Operation names the pipeline
// step issuing the call (quote extraction, clustering, section synthesis, ...)
// and is used for auditing only.
type CompletionRequest struct {
	Operation    string `json:"operation"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Prompt       string `json:"prompt"`
	Model        string `json:"model"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
}

// CompletionResult is the normalized response of one completion call.
type CompletionResult struct {
	Text            string  `json:"text"`
	Model           string  `json:"model"`
	Cost            float64 `json:"cost"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	TotalTokens     int     `json:"total_tokens"`
	ReasoningTokens int     `json:"reasoning_tokens"`
	CacheHit        bool    `json:"cache_hit,omitempty"`
}

type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}
