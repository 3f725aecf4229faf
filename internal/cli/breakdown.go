package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/agentcost/internal/model"
)

// CostTable builds the per-tier cost table: one row each for billed input,
// output and cached tokens, then the estimated total.
func CostTable(tiers []model.TierStats, total float64) Table {
	t := Table{
		Title:   "Cost Breakdown",
		Headers: []string{"Model", "Type", "Tokens", "Rate", "Cost"},
	}

	tiersPerModel := make(map[string]int)
	for _, ts := range tiers {
		tiersPerModel[ts.Model]++
	}

	for i, ts := range tiers {
		if i > 0 && tiers[i-1].Model != ts.Model {
			t.Rows = append(t.Rows, []string{"---"})
		}

		suffix := ""
		if tiersPerModel[ts.Model] > 1 || ts.Tier > 0 {
			suffix = fmt.Sprintf(" (Tier %d)", ts.Tier+1)
		}
		modelCell := ts.Model
		if i > 0 && tiers[i-1].Model == ts.Model {
			modelCell = ""
		}

		t.Rows = append(t.Rows,
			[]string{modelCell, "Billed Input" + suffix, FormatNumber(ts.BilledInput),
				FormatRate(ts.Pricing.Input, 2), FormatCostPrecise(ts.BilledInputCost, 4)},
			[]string{"", "Output" + suffix, FormatNumber(ts.OutputTokens),
				FormatRate(ts.Pricing.Output, 2), FormatCostPrecise(ts.OutputCost, 4)},
			[]string{"", "Cached" + suffix, FormatNumber(ts.CachedTokens),
				FormatRate(ts.Pricing.Cached, 3), FormatCostPrecise(ts.CachedCost, 4)},
		)
	}

	t.Rows = append(t.Rows,
		[]string{"---"},
		[]string{"Total Estimated Cost:", "", "", "", FormatCostPrecise(total, 4)},
	)
	return t
}

// RenderCostBreakdown renders the per-tier cost table with cache notes.
func RenderCostBreakdown(tiers []model.TierStats, total float64) string {
	st := currentStyles()
	if len(tiers) == 0 {
		return st.muted.Render("  No priced usage recorded.") + "\n"
	}

	var b strings.Builder
	b.WriteString(RenderTable(CostTable(tiers, total)))

	var cached, prompt int64
	for _, ts := range tiers {
		cached += ts.CachedTokens
		prompt += ts.BilledInput + ts.CachedTokens
	}
	if cached > 0 && prompt > 0 {
		b.WriteString(fmt.Sprintf("  %s of input tokens were served from the cache.\n",
			st.token.Render(FormatPercent(float64(cached)/float64(prompt)))))
	}
	b.WriteString(st.muted.Render("  Cached context storage cost is not included."))
	b.WriteString("\n")
	return b.String()
}

// SessionSummary is the data shown when a session ends.
type SessionSummary struct {
	Title     string
	SessionID string
	Duration  time.Duration
	Calls     int
	Records   int
	Unpriced  int
	TotalCost float64
}

// RenderSessionSummary renders the end-of-session box.
func RenderSessionSummary(s SessionSummary) string {
	st := currentStyles()
	title := s.Title
	if title == "" {
		title = "Agent powering down. Goodbye!"
	}

	rows := [][2]string{
		{"Session", s.SessionID},
		{"Wall time", FormatDuration(s.Duration)},
		{"Model calls", FormatNumber(int64(s.Calls))},
		{"Priced responses", FormatNumber(int64(s.Records))},
		{"Estimated cost", st.cost.Render(FormatCostPrecise(s.TotalCost, 4))},
	}

	var b strings.Builder
	b.WriteString(RenderTitle(title))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString("  " + st.muted.Render(pad(r[0], 18, false)) + " " + st.value.Render(r[1]) + "\n")
	}
	if s.Unpriced > 0 {
		b.WriteString(st.warn.Render(fmt.Sprintf("  %d response(s) used models without pricing and are not counted.", s.Unpriced)))
		b.WriteString("\n")
	}
	return b.String()
}
