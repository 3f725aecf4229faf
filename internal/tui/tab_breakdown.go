package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/tui/components"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

func (a App) renderBreakdownTab(cw int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	totalStyle := lipgloss.NewStyle().Foreground(t.CostColor(a.totals.TotalCost)).Background(t.Surface).Bold(true)

	table := cli.CostTable(a.tiers, a.totals.TotalCost)

	// Fixed columns: type, tokens, rate, cost
	typeW, tokW, rateW, costW := 22, 14, 10, 12
	nameW := innerW - typeW - tokW - rateW - costW - 4
	if nameW < 12 {
		nameW = 12
	}
	line := func(cells []string) string {
		get := func(i int) string {
			if i < len(cells) {
				return cells[i]
			}
			return ""
		}
		return padRight(truncStr(get(0), nameW), nameW) + " " +
			padRight(get(1), typeW) + " " +
			padLeft(get(2), tokW) + " " +
			padLeft(get(3), rateW) + " " +
			padLeft(get(4), costW)
	}

	var body strings.Builder
	body.WriteString(headerStyle.Render(line(table.Headers)))
	body.WriteString("\n")
	for i, row := range table.Rows {
		switch {
		case len(row) == 1 && row[0] == "---":
			body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
		case i == len(table.Rows)-1:
			body.WriteString(totalStyle.Render(line(row)))
		default:
			body.WriteString(rowStyle.Render(line(row)))
		}
		body.WriteString("\n")
	}
	body.WriteString(mutedStyle.Render("Cached context storage cost is not included."))

	return components.ContentCard(table.Title, body.String(), cw)
}

func padRight(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

func padLeft(s string, w int) string {
	if n := lipgloss.Width(s); n < w {
		return strings.Repeat(" ", w-n) + s
	}
	return s
}
