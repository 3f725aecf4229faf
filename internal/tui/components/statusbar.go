package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left,
// the followed transcript and the time since the last update on the right.
func RenderStatusBar(width int, source string, lastUpdate time.Time, errMsg string) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	left := " [?]help  [q]uit"
	right := source
	if !lastUpdate.IsZero() {
		right += fmt.Sprintf("  updated %s ago", cli.FormatDuration(time.Since(lastUpdate).Truncate(time.Second)))
	}
	right += " "

	if errMsg != "" {
		left += "  " + errStyle.Render(errMsg)
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		// Drop the source path before squeezing the hints.
		right = " "
		padding = width - lipgloss.Width(left) - 1
	}
	if padding < 0 {
		padding = 0
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}
