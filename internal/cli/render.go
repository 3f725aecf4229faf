package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// styles holds the text styles for plain CLI output, derived from the
// active theme so reports match the dashboard.
type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	cost   lipgloss.Style
	token  lipgloss.Style
	warn   lipgloss.Style
	rule   lipgloss.Style
	border lipgloss.Color
}

func currentStyles() styles {
	t := theme.Active
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary),
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		value:  lipgloss.NewStyle().Foreground(t.TextPrimary),
		muted:  lipgloss.NewStyle().Foreground(t.TextMuted),
		cost:   lipgloss.NewStyle().Foreground(t.Green),
		token:  lipgloss.NewStyle().Foreground(t.Blue),
		warn:   lipgloss.NewStyle().Foreground(t.Orange),
		rule:   lipgloss.NewStyle().Foreground(t.TextDim),
		border: t.Border,
	}
}

// separatorRow is a row value that renders as a horizontal rule.
const separatorRow = "---"

// Table represents a bordered text table for CLI output.
// The first column is left-aligned; the others hold numbers and are
// right-aligned. A row of a single "---" cell draws a separator.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

func (t Table) columns() int {
	n := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > n && !isSeparator(row) {
			n = len(row)
		}
	}
	return n
}

// widths measures display width, so cells holding multi-byte runes
// such as "≤" still line up.
func (t Table) widths(n int) []int {
	w := make([]int, n)
	if t.Widths != nil {
		copy(w, t.Widths)
		return w
	}
	for i, h := range t.Headers {
		w[i] = max(w[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i, cell := range row {
			w[i] = max(w[i], lipgloss.Width(cell))
		}
	}
	return w
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == separatorRow
}

// pad fits s into width display columns.
func pad(s string, width int, right bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	st := currentStyles()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(st.border).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(st.title.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	n := t.columns()
	if n == 0 {
		return ""
	}
	st := currentStyles()
	widths := t.widths(n)

	rule := func(left, mid, right string) string {
		segs := make([]string, n)
		for i, w := range widths {
			segs[i] = strings.Repeat("─", w+2)
		}
		return st.rule.Render(left+strings.Join(segs, mid)+right) + "\n"
	}
	line := func(cells []string, style lipgloss.Style, alignRight func(int) bool) string {
		var b strings.Builder
		bar := st.rule.Render("│")
		b.WriteString(bar)
		for i := 0; i < n; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style.Render(" " + pad(cell, widths[i], alignRight(i)) + " "))
			b.WriteString(bar)
		}
		b.WriteString("\n")
		return b.String()
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + st.header.Render(t.Title) + "\n")
	}

	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, st.header, func(int) bool { return false }))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		b.WriteString(line(row, st.value, func(i int) bool { return i > 0 }))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

// RenderProgressBar renders a "[████░░] 3/5" style counter.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	current = min(max(current, 0), total)
	filled := current * width / total

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		currentStyles().muted.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws one block per value, scaled to the largest.
// Non-positive values draw the lowest block.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	top := len(sparkBlocks) - 1
	out := make([]rune, len(values))
	for i, v := range values {
		idx := int(v / peak * float64(top))
		out[i] = sparkBlocks[min(max(idx, 0), top)]
	}
	return string(out)
}
