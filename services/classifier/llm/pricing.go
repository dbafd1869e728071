package llm

import "sync"

// ModelPricing holds per-model token pricing in USD per 1M tokens,
// grounded on the gateway's provider.DefaultPricing() table shape.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// PricingTable is a read-mostly model -> pricing map.
type PricingTable struct {
	mu      sync.RWMutex
	pricing map[string]ModelPricing
}

// DefaultPricing returns a small built-in table covering the models
// this service is expected to escalate to.
func DefaultPricing() *PricingTable {
	return &PricingTable{
		pricing: map[string]ModelPricing{
			"gpt-4o":           {InputPer1M: 2.50, OutputPer1M: 10.00},
			"gpt-4o-mini":      {InputPer1M: 0.15, OutputPer1M: 0.60},
			"gpt-3.5-turbo":    {InputPer1M: 0.50, OutputPer1M: 1.50},
			"claude-3-5-haiku": {InputPer1M: 0.80, OutputPer1M: 4.00},
		},
	}
}

// Cost estimates the USD cost of a call given token counts; unknown
// models fall back to the gpt-4o-mini rate as a conservative default.
func (p *PricingTable) Cost(model string, promptTokens, completionTokens int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.pricing[model]
	if !ok {
		pr = p.pricing["gpt-4o-mini"]
	}
	return float64(promptTokens)/1e6*pr.InputPer1M + float64(completionTokens)/1e6*pr.OutputPer1M
}

// EstimateTokens is a cheap pre-flight approximation (roughly 4 chars
// per token) used by the budget gate before a real call is made.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
