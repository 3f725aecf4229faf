// Package tui provides the interactive Bubble Tea dashboard for a live
// agent session.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/session"
	"github.com/theirongolddev/agentcost/internal/tui/components"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// CostUpdateMsg carries the session history after a breakdown is recorded.
type CostUpdateMsg struct {
	History []model.CostBreakdown
}

// FollowErrMsg reports that the transcript follower stopped.
type FollowErrMsg struct {
	Err error
}

// Options configures a dashboard.
type Options struct {
	SessionID string
	StartedAt time.Time
	Source    string // transcript path shown in the status bar
	Model     string // model assumed for requests without one

	// Updates delivers CostUpdateMsg values, normally from Listen.
	Updates <-chan tea.Msg
}

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	history    []model.CostBreakdown
	tiers      []model.TierStats
	models     []model.ModelStats
	totals     pipeline.TokenTypeCosts
	lastUpdate time.Time
	err        error

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	calls     callsState

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160
	minContentHeight = 5
)

// Listen returns a tracker listener that forwards history to ch without
// blocking. When the dashboard falls behind, stale updates are replaced by
// the newest one; each update carries the full history so nothing is lost.
func Listen(ch chan tea.Msg) session.Listener {
	return func(history []model.CostBreakdown) {
		msg := CostUpdateMsg{History: history}
		for {
			select {
			case ch <- msg:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

// NewApp creates a dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:    opts,
		spinner: sp,
		calls:   callsState{follow: true},
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		waitForUpdate(a.opts.Updates),
		a.spinner.Tick,
		tickCmd(),
	)
}

func (a *App) recompute() {
	a.tiers = pipeline.AggregateTiers(a.history)
	a.models = pipeline.AggregateModels(a.history)
	a.totals = pipeline.Totals(a.history)

	if a.calls.follow || a.calls.cursor >= len(a.history) {
		a.calls.cursor = len(a.history) - 1
	}
	if a.calls.cursor < 0 {
		a.calls.cursor = 0
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case CostUpdateMsg:
		a.history = msg.History
		a.lastUpdate = time.Now()
		a.recompute()
		return a, waitForUpdate(a.opts.Updates)

	case FollowErrMsg:
		a.err = msg.Err
		return a, nil

	case spinner.TickMsg:
		if len(a.history) == 0 {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		// Re-render so elapsed times stay current.
		return a, tickCmd()
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "?":
		a.showHelp = !a.showHelp
		return a, nil
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if a.activeTab == tabCalls {
		if next, ok := a.updateCallsKey(key); ok {
			return next, nil
		}
	}

	switch key {
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	if len(a.history) == 0 {
		return a.viewWaiting()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  agentcost needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewWaiting() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)
	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)
	errStyle := lipgloss.NewStyle().
		Foreground(t.Red).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ agentcost"))
	b.WriteString(subtitleStyle.Render(" · live session cost"))
	b.WriteString("\n\n")
	if a.err != nil {
		b.WriteString(errStyle.Render("Stopped following: " + a.err.Error()))
	} else {
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Waiting for usage in " + a.opts.Source))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)
	keyStyle := lipgloss.NewStyle().
		Foreground(t.Cyan).
		Background(t.Surface).
		Bold(true).
		Width(12)
	descStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	bindings := []struct{ key, desc string }{
		{"o b c", "Jump to tab"},
		{"← → tab", "Previous / Next tab"},
		{"j k", "Move through calls"},
		{"g G", "Newest / oldest call"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, kb := range bindings {
		b.WriteString(keyStyle.Render(kb.key))
		b.WriteString(descStyle.Render(kb.desc))
		b.WriteString("\n")
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar and session line
	infoStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface).
		Width(w)
	accentStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)
	sepStyle := lipgloss.NewStyle().
		Foreground(t.TextDim).
		Background(t.Surface)

	info := sepStyle.Render(" session ") + accentStyle.Render(shortID(a.opts.SessionID))
	if a.opts.Model != "" {
		info += sepStyle.Render(" │ default ") + accentStyle.Render(a.opts.Model)
	}
	if !a.opts.StartedAt.IsZero() {
		info += sepStyle.Render(" │ up " + formatElapsed(time.Since(a.opts.StartedAt)))
	}
	header := components.RenderTabBar(a.activeTab, w) + "\n" + infoStyle.Render(info)

	// 2. Status bar
	errMsg := ""
	if a.err != nil {
		errMsg = "follower stopped: " + a.err.Error()
	}
	statusBar := components.RenderStatusBar(w, a.opts.Source, a.lastUpdate, errMsg)

	// 3. Content zone
	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabBreakdown:
		content = a.renderBreakdownTab(cw)
	case tabCalls:
		content = a.renderCallsTab(cw, contentH)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// waitForUpdate blocks until the next message arrives from the tracker.
func waitForUpdate(sub <-chan tea.Msg) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-sub
		if !ok {
			return nil
		}
		return msg
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return d.String()
	}
	return d.Truncate(time.Minute).String()
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}
