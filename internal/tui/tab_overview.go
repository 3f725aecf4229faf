package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/tui/components"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// Tab indices, in components.Tabs order.
const (
	tabOverview = iota
	tabBreakdown
	tabCalls
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	var b strings.Builder

	// Row 1: metric cards
	var billed, output, cached int64
	for _, bd := range a.history {
		billed += bd.BilledInput
		output += bd.OutputTokens
		cached += bd.CachedTokens
	}
	hitRate := pipeline.CacheHitRate(cached, billed+cached)

	perCall := 0.0
	if len(a.history) > 0 {
		perCall = a.totals.TotalCost / float64(len(a.history))
	}

	b.WriteString(components.MetricRow([]components.Metric{
		{
			Label:  "Estimated Cost",
			Value:  cli.FormatCostPrecise(a.totals.TotalCost, 4),
			Detail: cli.FormatCostPrecise(perCall, 4) + " per call",
			Color:  t.CostColor(a.totals.TotalCost),
		},
		{
			Label:  "Calls",
			Value:  cli.FormatNumber(int64(len(a.history))),
			Detail: fmt.Sprintf("%d models", len(a.models)),
		},
		{
			Label:  "Billed Input",
			Value:  cli.FormatTokens(billed),
			Detail: cli.FormatCostPrecise(a.totals.BilledInputCost, 4),
		},
		{
			Label:  "Output",
			Value:  cli.FormatTokens(output),
			Detail: cli.FormatCostPrecise(a.totals.OutputCost, 4),
		},
		{
			Label:  "Cached",
			Value:  cli.FormatTokens(cached),
			Detail: cli.FormatPercent(hitRate) + " of input",
		},
	}, cw))
	b.WriteString("\n")

	// Row 2: cost by model | last call
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Cost by Model", a.renderModelShares(halves[0]), halves[0]),
		components.ContentCard("Last Call", a.renderLastCall(halves[1]), halves[1]),
	}))
	b.WriteString("\n")

	// Row 3: cost per call sparkline
	if len(a.history) > 1 {
		vals := make([]float64, len(a.history))
		for i, bd := range a.history {
			vals[i] = bd.TotalCost
		}
		innerW := components.CardInnerWidth(cw)
		if len(vals) > innerW {
			vals = vals[len(vals)-innerW:]
		}
		sparkStyle := lipgloss.NewStyle().Foreground(t.Blue).Background(t.Surface)
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Cost per Call (last %d)", len(vals)),
			sparkStyle.Render(cli.RenderSparkline(vals)),
			cw,
		))
	}

	return b.String()
}

func (a App) renderModelShares(outerW int) string {
	innerW := components.CardInnerWidth(outerW)
	labelW := 20
	barW := innerW - labelW - 18
	if barW < 6 {
		barW = 6
	}

	var b strings.Builder
	for i, ms := range a.models {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(components.ShareBar(
			truncStr(ms.Model, labelW), ms.SharePercent/100,
			cli.FormatCostPrecise(ms.TotalCost, 4), labelW, barW))
	}
	return b.String()
}

func (a App) renderLastCall(outerW int) string {
	t := theme.Active
	if len(a.history) == 0 {
		return ""
	}
	last := a.history[len(a.history)-1]

	innerW := components.CardInnerWidth(outerW)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	tierStyle := lipgloss.NewStyle().Foreground(t.TierColor(last.Tier)).Background(t.Surface).Bold(true)
	costStyle := lipgloss.NewStyle().Foreground(t.CostColor(last.TotalCost)).Background(t.Surface).Bold(true)

	tierName := last.TierName
	if tierName == "" {
		tierName = fmt.Sprintf("tier %d", last.Tier+1)
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Model   "))
	b.WriteString(valueStyle.Render(truncStr(last.Model, innerW-8)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Tier    "))
	b.WriteString(tierStyle.Render(tierName))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %s in / %s out",
		cli.FormatRate(last.Pricing.Input, 2), cli.FormatRate(last.Pricing.Output, 2))))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Cost    "))
	b.WriteString(costStyle.Render(cli.FormatCostPrecise(last.TotalCost, 4)))
	b.WriteString("\n")

	barW := innerW - 8 - 30
	if barW < 6 {
		barW = 6
	}
	b.WriteString(components.ThresholdBar("Prompt", last.PromptTokens(), config.LongContextThreshold, 7, barW))
	return b.String()
}
