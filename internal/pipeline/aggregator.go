// Package pipeline prices token usage and aggregates cost across sessions.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/agentcost/internal/model"
)

// Aggregate computes summary statistics from sessions within [since, until).
func Aggregate(sessions []model.SessionCost, since, until time.Time) model.SummaryStats {
	filtered := FilterByTime(sessions, since, until)

	var stats model.SummaryStats
	activeDays := make(map[string]struct{})

	for _, s := range filtered {
		stats.Sessions++
		stats.Calls += s.Calls
		stats.Records += s.Records
		stats.Unpriced += s.Unpriced
		stats.PromptTokens += s.Usage.PromptTokenCount

		for _, b := range s.Breakdowns {
			stats.BilledInput += b.BilledInput
			stats.OutputTokens += b.OutputTokens
			stats.CachedTokens += b.CachedTokens
			stats.BilledInputCost += b.BilledInputCost
			stats.OutputCost += b.OutputCost
			stats.CachedCost += b.CachedCost
			stats.TotalCost += b.TotalCost
		}

		if !s.StartTime.IsZero() {
			day := s.StartTime.Local().Format("2006-01-02")
			activeDays[day] = struct{}{}
		}
	}

	stats.ActiveDays = len(activeDays)
	stats.CacheHitRate = CacheHitRate(stats.CachedTokens, stats.BilledInput+stats.CachedTokens)
	if stats.ActiveDays > 0 {
		stats.CostPerDay = stats.TotalCost / float64(stats.ActiveDays)
	}

	return stats
}

// CacheHitRate returns the share of prompt tokens served from cache.
func CacheHitRate(cached, prompt int64) float64 {
	if prompt <= 0 {
		return 0
	}
	return float64(cached) / float64(prompt)
}

// AggregateDays computes per-day cost from sessions, most recent first.
func AggregateDays(sessions []model.SessionCost, since, until time.Time) []model.DailyStats {
	filtered := FilterByTime(sessions, since, until)

	dayMap := make(map[string]*model.DailyStats)

	for _, s := range filtered {
		if s.StartTime.IsZero() {
			continue
		}
		dayKey := s.StartTime.Local().Format("2006-01-02")
		ds, ok := dayMap[dayKey]
		if !ok {
			t, _ := time.ParseInLocation("2006-01-02", dayKey, time.Local)
			ds = &model.DailyStats{Date: t}
			dayMap[dayKey] = ds
		}

		ds.Sessions++
		ds.Records += s.Records
		ds.PromptTokens += s.Usage.PromptTokenCount
		for _, b := range s.Breakdowns {
			ds.OutputTokens += b.OutputTokens
		}
		ds.TotalCost += s.TotalCost
	}

	days := make([]model.DailyStats, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})

	return days
}

// AggregateModels computes per-model cost from breakdowns, sorted by cost
// descending.
func AggregateModels(breakdowns []model.CostBreakdown) []model.ModelStats {
	modelMap := make(map[string]*model.ModelStats)
	var total float64

	for _, b := range breakdowns {
		ms, ok := modelMap[b.Model]
		if !ok {
			ms = &model.ModelStats{Model: b.Model}
			modelMap[b.Model] = ms
		}
		ms.Records++
		ms.BilledInput += b.BilledInput
		ms.OutputTokens += b.OutputTokens
		ms.CachedTokens += b.CachedTokens
		ms.TotalCost += b.TotalCost
		total += b.TotalCost
	}

	models := make([]model.ModelStats, 0, len(modelMap))
	for _, ms := range modelMap {
		if total > 0 {
			ms.SharePercent = ms.TotalCost / total * 100
		}
		models = append(models, *ms)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].TotalCost != models[j].TotalCost {
			return models[i].TotalCost > models[j].TotalCost
		}
		return models[i].Model < models[j].Model
	})

	return models
}

// AggregateTiers groups breakdowns by model and pricing tier, sorted by model
// then tier.
func AggregateTiers(breakdowns []model.CostBreakdown) []model.TierStats {
	type key struct {
		model string
		tier  int
	}
	tierMap := make(map[key]*model.TierStats)

	for _, b := range breakdowns {
		k := key{b.Model, b.Tier}
		ts, ok := tierMap[k]
		if !ok {
			ts = &model.TierStats{
				Model:    b.Model,
				Tier:     b.Tier,
				TierName: b.TierName,
				Pricing:  b.Pricing,
			}
			tierMap[k] = ts
		}
		ts.Records++
		ts.BilledInput += b.BilledInput
		ts.OutputTokens += b.OutputTokens
		ts.CachedTokens += b.CachedTokens
		ts.BilledInputCost += b.BilledInputCost
		ts.OutputCost += b.OutputCost
		ts.CachedCost += b.CachedCost
		ts.TotalCost += b.TotalCost
	}

	tiers := make([]model.TierStats, 0, len(tierMap))
	for _, ts := range tierMap {
		tiers = append(tiers, *ts)
	}
	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].Model != tiers[j].Model {
			return tiers[i].Model < tiers[j].Model
		}
		return tiers[i].Tier < tiers[j].Tier
	})

	return tiers
}

// Breakdowns flattens the breakdowns of all sessions in order.
func Breakdowns(sessions []model.SessionCost) []model.CostBreakdown {
	var n int
	for _, s := range sessions {
		n += len(s.Breakdowns)
	}
	out := make([]model.CostBreakdown, 0, n)
	for _, s := range sessions {
		out = append(out, s.Breakdowns...)
	}
	return out
}

// FilterByTime returns sessions whose start time falls within [since, until).
func FilterByTime(sessions []model.SessionCost, since, until time.Time) []model.SessionCost {
	if since.IsZero() && until.IsZero() {
		return sessions
	}

	var result []model.SessionCost
	for _, s := range sessions {
		if s.StartTime.IsZero() {
			continue
		}
		if !since.IsZero() && s.StartTime.Before(since) {
			continue
		}
		if !until.IsZero() && !s.StartTime.Before(until) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// FilterByModel returns sessions with at least one breakdown for a model
// matching the substring. Breakdowns for other models are dropped.
func FilterByModel(sessions []model.SessionCost, modelFilter string) []model.SessionCost {
	if modelFilter == "" {
		return sessions
	}
	var result []model.SessionCost
	for _, s := range sessions {
		var kept []model.CostBreakdown
		for _, b := range s.Breakdowns {
			if containsIgnoreCase(b.Model, modelFilter) {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			continue
		}
		s.Breakdowns = kept
		s.TotalCost = Totals(kept).TotalCost
		result = append(result, s)
	}
	return result
}

// TopSessions returns up to limit sessions ordered by cost, most expensive first.
func TopSessions(sessions []model.SessionCost, limit int) []model.SessionCost {
	sorted := make([]model.SessionCost, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalCost > sorted[j].TotalCost
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
