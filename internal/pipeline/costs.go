package pipeline

import (
	log "github.com/sirupsen/logrus"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/model"
)

// PriceLookup resolves pricing for a model identifier.
type PriceLookup interface {
	Lookup(name string) (config.ModelPricing, bool)
}

// Calculator converts token usage into cost breakdowns.
type Calculator struct {
	prices PriceLookup
}

// NewCalculator returns a calculator over the given pricing.
func NewCalculator(prices PriceLookup) *Calculator {
	return &Calculator{prices: prices}
}

var defaultCalculator = NewCalculator(config.DefaultTable())

// Breakdown computes the cost breakdown for one usage occurrence.
// Returns false when the model has no pricing; this is not an error.
//
// Output tokens are taken from the raw total minus prompt and cached tokens
// when that difference is positive, otherwise from candidates + thinking.
func (c *Calculator) Breakdown(modelName string, usage model.TokenUsage) (model.CostBreakdown, bool) {
	pricing, ok := c.prices.Lookup(modelName)
	if !ok || len(pricing.Tiers) == 0 {
		log.Debugf("pipeline: price not found for model %s", modelName)
		return model.CostBreakdown{}, false
	}

	idx, tier := pricing.SelectTier(usage.PromptTokenCount)
	rates := tier.Rates

	billedInput := usage.PromptTokenCount - usage.CachedContentTokenCount
	rawOutput := usage.TotalTokenCount - usage.PromptTokenCount - usage.CachedContentTokenCount
	fallbackOutput := usage.CandidatesTokenCount + usage.ThinkingTokensCount

	outputTokens := fallbackOutput
	if rawOutput > 0 {
		outputTokens = rawOutput
	}

	b := model.CostBreakdown{
		Model:        modelName,
		Tier:         idx,
		TierName:     tier.Name,
		BilledInput:  billedInput,
		OutputTokens: outputTokens,
		CachedTokens: usage.CachedContentTokenCount,
		Pricing:      rates,
	}
	b.BilledInputCost = float64(billedInput) * rates.Input
	b.OutputCost = float64(outputTokens) * rates.Output
	b.CachedCost = float64(usage.CachedContentTokenCount) * rates.Cached
	b.TotalCost = b.BilledInputCost + b.OutputCost + b.CachedCost

	return b, true
}

// Cost returns the total cost of one usage occurrence, or 0 when the model
// has no pricing.
func (c *Calculator) Cost(modelName string, usage model.TokenUsage) float64 {
	b, ok := c.Breakdown(modelName, usage)
	if !ok {
		return 0
	}
	return b.TotalCost
}

// CalculateBreakdown prices usage against the compiled-in pricing table.
func CalculateBreakdown(modelName string, usage model.TokenUsage) (model.CostBreakdown, bool) {
	return defaultCalculator.Breakdown(modelName, usage)
}

// CalculateCost computes the estimated cost in USD for a single response.
func CalculateCost(modelName string, usage model.TokenUsage) float64 {
	return defaultCalculator.Cost(modelName, usage)
}

// TokenTypeCosts holds aggregate costs split by token type.
type TokenTypeCosts struct {
	BilledInputCost float64
	OutputCost      float64
	CachedCost      float64
	TotalCost       float64
}

// Totals sums breakdown costs by token type.
func Totals(breakdowns []model.CostBreakdown) TokenTypeCosts {
	var t TokenTypeCosts
	for _, b := range breakdowns {
		t.BilledInputCost += b.BilledInputCost
		t.OutputCost += b.OutputCost
		t.CachedCost += b.CachedCost
		t.TotalCost += b.TotalCost
	}
	return t
}
