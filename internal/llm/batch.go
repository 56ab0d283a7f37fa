package llm

import (
	"context"
	"sync"

	"paperforge/internal/providers"
)

// BatchItem is the per-request outcome of CompleteBatch. Err is set when that
// item's retry budget was exhausted; other items are unaffected.
type BatchItem struct {
	Index  int
	Result providers.CompletionResult
	Err    error
}

// CompleteBatch runs the requests through Complete on a bounded worker pool.
// Results keep request order. Only a systemic failure (context cancellation)
// returns an error; individual item failures are reported in their BatchItem.
func (g *Gateway) CompleteBatch(ctx context.Context, reqs []providers.CompletionRequest, workers int) ([]BatchItem, error) {
	if workers <= 0 {
		workers = 1
	}
	items := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req providers.CompletionRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := g.Complete(ctx, req)
			items[i] = BatchItem{Index: i, Result: res, Err: err}
		}(i, req)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
