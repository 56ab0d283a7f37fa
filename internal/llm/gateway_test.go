package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"paperforge/internal/providers"
)

type scriptedProvider struct {
	mu       sync.Mutex
	failures int
	calls    int
	text     string
}

func (p *scriptedProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return providers.CompletionResult{}, errors.New("temporarily unavailable")
	}
	return providers.CompletionResult{
		Text:         p.text,
		Model:        req.Model,
		InputTokens:  100,
		OutputTokens: 50,
		TotalTokens:  150,
	}, nil
}

func newTestGateway(p providers.LLMProvider, opts Options) *Gateway {
	manager := providers.NewStaticManager(providers.NamedLLMProvider{
		Ref:      providers.ProviderRef{Raw: "test", Name: "test"},
		Provider: p,
	})
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	return New(manager, opts)
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	p := &scriptedProvider{failures: 2, text: "ok"}
	g := newTestGateway(p, Options{MaxRetries: 3})

	res, err := g.Complete(context.Background(), providers.CompletionRequest{Operation: "test", Model: "gpt-4o-mini", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Text)
	require.Equal(t, 3, p.calls)
}

func TestCompleteExhaustsRetryBudget(t *testing.T) {
	p := &scriptedProvider{failures: 10}
	g := newTestGateway(p, Options{MaxRetries: 2})

	_, err := g.Complete(context.Background(), providers.CompletionRequest{Operation: "test", Model: "gpt-4o-mini", Prompt: "hi"})
	require.Error(t, err)
	require.Equal(t, 2, p.calls)
}

func TestCompleteFallsBackToSecondModel(t *testing.T) {
	p := &scriptedProvider{failures: 2, text: "fallback ok"}
	g := newTestGateway(p, Options{MaxRetries: 2, Fallbacks: []string{"gpt-4o"}})

	res, err := g.Complete(context.Background(), providers.CompletionRequest{Operation: "test", Model: "gpt-4o-mini", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "fallback ok", res.Text)
	require.Equal(t, "gpt-4o", res.Model)
}

func TestCompleteComputesCost(t *testing.T) {
	p := &scriptedProvider{text: "ok"}
	g := newTestGateway(p, Options{})

	res, err := g.Complete(context.Background(), providers.CompletionRequest{Operation: "test", Model: "gpt-4o-mini", Prompt: "hi"})
	require.NoError(t, err)
	// 100 input tokens at $0.15/MTok + 50 output tokens at $0.60/MTok.
	require.InDelta(t, 0.000045, res.Cost, 1e-9)
}

func TestCompleteBatchIsolatesItemFailures(t *testing.T) {
	p := &failEveryOther{}
	g := newTestGateway(p, Options{MaxRetries: 1})

	reqs := []providers.CompletionRequest{
		{Operation: "batch", Model: "m", Prompt: "a"},
		{Operation: "batch", Model: "m", Prompt: "b"},
		{Operation: "batch", Model: "m", Prompt: "c"},
	}
	items, err := g.CompleteBatch(context.Background(), reqs, 2)
	require.NoError(t, err)
	require.Len(t, items, 3)
	var failed int
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	require.Equal(t, 1, failed)
}

type failEveryOther struct {
	mu    sync.Mutex
	calls int
}

func (p *failEveryOther) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if req.Prompt == "b" {
		return providers.CompletionResult{}, errors.New("bad request")
	}
	return providers.CompletionResult{Text: "ok:" + req.Prompt, Model: req.Model}, nil
}

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewCache("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	p := &scriptedProvider{text: "cached"}
	g := newTestGateway(p, Options{Cache: cache})
	req := providers.CompletionRequest{Operation: "test", Model: "gpt-4o-mini", Prompt: "same prompt"}

	first, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Zero(t, second.Cost)
	require.Equal(t, first.Text, second.Text)
	require.Equal(t, 1, p.calls)
}
