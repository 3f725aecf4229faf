package model

import "time"

// SessionCost holds the priced usage of a single transcript file.
type SessionCost struct {
	SessionID string
	FilePath  string
	StartTime time.Time
	EndTime   time.Time

	Calls    int // distinct call ids
	Records  int // usage-bearing responses
	Unpriced int // records whose model has no pricing

	Usage      TokenUsage
	Breakdowns []CostBreakdown

	TotalCost float64
}

// Duration returns the wall-clock span covered by the session.
func (s SessionCost) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
