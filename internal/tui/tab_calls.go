package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/tui/components"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// callsState holds the calls tab state. The cursor indexes the history,
// oldest first; the list is drawn newest first.
type callsState struct {
	cursor int
	follow bool // keep the cursor on the newest call
}

func (a App) updateCallsKey(key string) (App, bool) {
	n := len(a.history)
	if n == 0 {
		return a, false
	}
	cs := &a.calls
	switch key {
	case "j", "down":
		if cs.cursor > 0 {
			cs.cursor--
		}
		cs.follow = false
	case "k", "up":
		if cs.cursor < n-1 {
			cs.cursor++
		}
		cs.follow = cs.cursor == n-1
	case "g":
		cs.cursor = n - 1
		cs.follow = true
	case "G":
		cs.cursor = 0
		cs.follow = false
	default:
		return a, false
	}
	return a, true
}

func (a App) renderCallsTab(cw, h int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	fixed := 5 + 8 + 10 + 10 + 10 + 10 + 6
	nameW := innerW - fixed
	if nameW < 12 {
		nameW = 12
	}
	format := func(num, name, tier, prompt, out, cached, cost string) string {
		return fmt.Sprintf("%5s %-*s %8s %10s %10s %10s %10s",
			num, nameW, truncStr(name, nameW), tier, prompt, out, cached, cost)
	}

	var body strings.Builder
	body.WriteString(headerStyle.Render(format("#", "Model", "Tier", "Prompt", "Output", "Cached", "Cost")))
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")

	visible := h - 5 // card border (2) + title + header + rule
	if visible < 3 {
		visible = 3
	}

	cursor := a.calls.cursor

	// Newest first, keeping the cursor on screen.
	top := len(a.history) - 1
	if cursor < top-visible+1 {
		top = cursor + visible - 1
	}
	for i := top; i >= 0 && i > top-visible; i-- {
		bd := a.history[i]
		line := format(
			fmt.Sprintf("%d", i+1),
			bd.Model,
			fmt.Sprintf("%d", bd.Tier+1),
			cli.FormatTokens(bd.PromptTokens()),
			cli.FormatTokens(bd.OutputTokens),
			cli.FormatTokens(bd.CachedTokens),
			cli.FormatCostPrecise(bd.TotalCost, 4),
		)
		if i == cursor {
			body.WriteString(selectedStyle.Render(line))
		} else {
			body.WriteString(rowStyle.Render(line))
		}
		body.WriteString("\n")
	}

	title := fmt.Sprintf("Calls (%d)", len(a.history))
	return components.ContentCard(title, strings.TrimSuffix(body.String(), "\n"), cw)
}
