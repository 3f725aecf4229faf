package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// ColorForPct returns green/yellow/orange/red based on how full a bar is.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.9:
		return t.Red
	case pct >= 0.7:
		return t.Orange
	case pct >= 0.5:
		return t.Yellow
	default:
		return t.Green
	}
}

func clamp01(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}

func bar(color lipgloss.Color, width int) progress.Model {
	b := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	b.EmptyColor = string(theme.Active.TextDim)
	return b
}

// ShareBar renders a labeled bar for a share of a total, e.g. one model's
// part of the session cost.
func ShareBar(label string, pct float64, value string, labelW, barWidth int) string {
	t := theme.Active
	pct = clamp01(pct)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	pctStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar(t.Accent, barWidth).ViewAs(pct) +
		spaceStyle.Render(" ") +
		valueStyle.Render(value) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}

// ThresholdBar shows how far a prompt is toward a tier boundary. Prompts past
// the boundary render a full bar in the warning color.
func ThresholdBar(label string, prompt, threshold int64, labelW, barWidth int) string {
	t := theme.Active

	var pct float64
	if threshold > 0 {
		pct = float64(prompt) / float64(threshold)
	}
	color := ColorForPct(pct)
	over := threshold > 0 && prompt > threshold

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	suffix := " / " + cli.FormatTokens(threshold)
	if over {
		suffix += " (long context)"
	}

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar(color, barWidth).ViewAs(clamp01(pct)) +
		spaceStyle.Render(" ") +
		countStyle.Render(cli.FormatTokens(prompt)) +
		dimStyle.Render(suffix)
}
