// Package model defines domain types for agentcost usage and cost accounting.
package model

import "time"

// TokenUsage is the per-response token accounting reported by the model API.
// Absent counters are zero.
type TokenUsage struct {
	PromptTokenCount        int64 `json:"prompt_token_count"`
	CandidatesTokenCount    int64 `json:"candidates_token_count"`
	ThinkingTokensCount     int64 `json:"thinking_tokens_count"`
	CachedContentTokenCount int64 `json:"cached_content_token_count"`
	TotalTokenCount         int64 `json:"total_token_count"`
}

// IsZero reports whether no counter is set.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// Add returns the field-wise sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokenCount:        u.PromptTokenCount + o.PromptTokenCount,
		CandidatesTokenCount:    u.CandidatesTokenCount + o.CandidatesTokenCount,
		ThinkingTokensCount:     u.ThinkingTokensCount + o.ThinkingTokensCount,
		CachedContentTokenCount: u.CachedContentTokenCount + o.CachedContentTokenCount,
		TotalTokenCount:         u.TotalTokenCount + o.TotalTokenCount,
	}
}

// Rates are USD prices per single token.
type Rates struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
	Cached float64 `json:"cached" yaml:"cached"`
}

// CostBreakdown is the priced result of one usage occurrence.
//
// BilledInput is PromptTokens minus CachedTokens and is not clamped.
// TotalCost is always BilledInputCost + OutputCost + CachedCost.
type CostBreakdown struct {
	Model    string `json:"model"`
	Tier     int    `json:"tier"`
	TierName string `json:"tier_name,omitempty"`

	BilledInput  int64 `json:"billed_input"`
	OutputTokens int64 `json:"output_tokens"`
	CachedTokens int64 `json:"cached_tokens"`

	BilledInputCost float64 `json:"billed_input_cost"`
	OutputCost      float64 `json:"output_cost"`
	CachedCost      float64 `json:"cached_cost"`
	TotalCost       float64 `json:"total_cost"`

	Pricing Rates `json:"pricing"`
}

// PromptTokens returns the prompt size the breakdown was computed from.
func (b CostBreakdown) PromptTokens() int64 {
	return b.BilledInput + b.CachedTokens
}

// UsageRecord is one usage-bearing response observed in a transcript.
type UsageRecord struct {
	CallID    string
	Model     string
	Timestamp time.Time
	Stream    bool
	Usage     TokenUsage
}
