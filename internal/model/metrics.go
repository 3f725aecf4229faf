package model

import "time"

// SummaryStats holds the top-level aggregate across sessions.
type SummaryStats struct {
	Sessions   int
	Calls      int
	Records    int
	Unpriced   int
	ActiveDays int

	PromptTokens int64
	BilledInput  int64
	OutputTokens int64
	CachedTokens int64

	BilledInputCost float64
	OutputCost      float64
	CachedCost      float64
	TotalCost       float64

	CacheHitRate float64 // cached share of prompt tokens
	CostPerDay   float64
}

// DailyStats holds cost for a single calendar day.
type DailyStats struct {
	Date         time.Time
	Sessions     int
	Records      int
	PromptTokens int64
	OutputTokens int64
	TotalCost    float64
}

// ModelStats holds aggregated cost for a single model.
type ModelStats struct {
	Model        string
	Records      int
	BilledInput  int64
	OutputTokens int64
	CachedTokens int64
	TotalCost    float64
	SharePercent float64
}

// TierStats holds aggregated cost for one pricing tier of one model.
type TierStats struct {
	Model    string `json:"model"`
	Tier     int    `json:"tier"`
	TierName string `json:"tier_name,omitempty"`
	Pricing  Rates  `json:"pricing"`
	Records  int    `json:"records"`

	BilledInput  int64 `json:"billed_input"`
	OutputTokens int64 `json:"output_tokens"`
	CachedTokens int64 `json:"cached_tokens"`

	BilledInputCost float64 `json:"billed_input_cost"`
	OutputCost      float64 `json:"output_cost"`
	CachedCost      float64 `json:"cached_cost"`
	TotalCost       float64 `json:"total_cost"`
}
