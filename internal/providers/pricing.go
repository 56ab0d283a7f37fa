package providers

import "strings"

// ModelPrice is the per-token pricing for one model, in USD per million tokens.
type ModelPrice struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// PriceTable maps model identifiers to pricing. Unknown models cost zero,
// matching self-hosted deployments.
type PriceTable map[string]ModelPrice

// DefaultPrices covers the hosted models the pipeline is normally run with.
// Callers construct gateways with their own table when pricing differs.
func DefaultPrices() PriceTable {
	return PriceTable{
		"gpt-4o":                  {InputPerMTok: 2.50, OutputPerMTok: 10.00},
		"gpt-4o-mini":             {InputPerMTok: 0.15, OutputPerMTok: 0.60},
		"llama-3.1-8b-instant":    {InputPerMTok: 0.05, OutputPerMTok: 0.08},
		"llama-3.3-70b-versatile": {InputPerMTok: 0.59, OutputPerMTok: 0.79},
	}
}

// CostFor computes the dollar cost for a completion. Cache hits are free.
func (t PriceTable) CostFor(model string, inputTokens, outputTokens int, cacheHit bool) float64 {
	if cacheHit {
		return 0
	}
	price, ok := t[normalizeModel(model)]
	if !ok {
		return 0
	}
	return price.InputPerMTok*float64(inputTokens)/1e6 + price.OutputPerMTok*float64(outputTokens)/1e6
}

func normalizeModel(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}
