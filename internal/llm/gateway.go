package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paperforge/internal/providers"
)

// AuditSink receives one record per completion attempt outcome. Implementations
// must not block the pipeline; failures to record are the sink's problem.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord)
}

type AuditRecord struct {
	Operation string
	Model     string
	Status    string
	ErrorType string
	Cost      float64
}

type Options struct {
	// Fallbacks are tried in order after the requested model's retry budget is
	// exhausted.
	Fallbacks  []string
	MaxRetries int
	MaxTokens  int
	Prices     providers.PriceTable
	Cache      *Cache
	Backoff    time.Duration
	Logger     *zap.Logger
	Audit      AuditSink
}

// Gateway wraps the provider manager with retry, fallback-model substitution,
// cost accounting and optional response caching. It raises only after the full
// retry budget across all models is exhausted.
type Gateway struct {
	manager    *providers.Manager
	fallbacks  []string
	maxRetries int
	maxTokens  int
	prices     providers.PriceTable
	cache      *Cache
	backoff    time.Duration
	logger     *zap.Logger
	audit      AuditSink
}

func New(manager *providers.Manager, opts Options) *Gateway {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Prices == nil {
		opts.Prices = providers.DefaultPrices()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Gateway{
		manager:    manager,
		fallbacks:  opts.Fallbacks,
		maxRetries: opts.MaxRetries,
		maxTokens:  opts.MaxTokens,
		prices:     opts.Prices,
		cache:      opts.Cache,
		backoff:    opts.Backoff,
		logger:     opts.Logger,
		audit:      opts.Audit,
	}
}

// Complete issues one completion, retrying transient failures with exponential
// backoff and falling through the configured fallback models before giving up.
func (g *Gateway) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResult, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = g.maxTokens
	}
	if g.cache != nil {
		if res, ok := g.cache.Get(ctx, req); ok {
			g.logger.Debug("completion cache hit", zap.String("operation", req.Operation), zap.String("model", req.Model))
			return res, nil
		}
	}

	models := make([]string, 0, 1+len(g.fallbacks))
	models = append(models, req.Model)
	models = append(models, g.fallbacks...)

	var lastErr error
	for _, model := range models {
		attempt := req
		attempt.Model = model
		provider, ref := g.manager.ProviderForModel(model)
		for try := 0; try < g.maxRetries; try++ {
			res, err := provider.Complete(ctx, attempt)
			if err == nil {
				res.Cost = g.prices.CostFor(res.Model, res.InputTokens, res.OutputTokens, false)
				if g.cache != nil {
					g.cache.Put(ctx, req, res)
				}
				g.record(ctx, AuditRecord{Operation: req.Operation, Model: res.Model, Status: "ok", Cost: res.Cost})
				return res, nil
			}
			lastErr = err
			errType := providers.ClassifyError(err)
			g.record(ctx, AuditRecord{Operation: req.Operation, Model: model, Status: "failed", ErrorType: string(errType)})
			g.logger.Warn("completion attempt failed",
				zap.String("operation", req.Operation),
				zap.String("model", model),
				zap.String("provider", ref.Name),
				zap.String("error_type", string(errType)),
				zap.Int("attempt", try+1),
				zap.Error(err))
			if ctx.Err() != nil {
				return providers.CompletionResult{}, ctx.Err()
			}
			if errType == providers.ErrorPermanent || errType == providers.ErrorContext {
				break
			}
			select {
			case <-ctx.Done():
				return providers.CompletionResult{}, ctx.Err()
			case <-time.After(g.backoff * time.Duration(1<<try)):
			}
		}
	}
	return providers.CompletionResult{}, fmt.Errorf("completion %q exhausted %d models: %w", req.Operation, len(models), lastErr)
}

func (g *Gateway) record(ctx context.Context, rec AuditRecord) {
	if g.audit != nil {
		g.audit.Record(ctx, rec)
	}
}
