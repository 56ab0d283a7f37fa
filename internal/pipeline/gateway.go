package pipeline

import (
	"context"

	"paperforge/internal/llm"
	"paperforge/internal/providers"
)

// CompletionGateway is the LLM transport the pipeline stages call through.
// Retry, backoff and fallback-model substitution live behind this interface;
// stages see only the final outcome per request.
type CompletionGateway interface {
	Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResult, error)
	CompleteBatch(ctx context.Context, reqs []providers.CompletionRequest, workers int) ([]llm.BatchItem, error)
}

// ProgressFunc receives human-readable step updates as the pipeline advances.
// Implementations must not block; failures to deliver are the sink's problem.
type ProgressFunc func(step string)
