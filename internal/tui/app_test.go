package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/session"
)

func history(n int) []model.CostBreakdown {
	out := make([]model.CostBreakdown, n)
	for i := range out {
		out[i] = model.CostBreakdown{
			Model:           "gemini-2.5-pro",
			Tier:            i % 2,
			BilledInput:     1000,
			OutputTokens:    100,
			CachedTokens:    500,
			BilledInputCost: 0.01,
			OutputCost:      0.02,
			TotalCost:       0.03,
		}
	}
	return out
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	next, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T, want App", m)
	}
	return next
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestListenKeepsLatest(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	tracker := session.New()
	tracker.Subscribe(Listen(ch))

	for _, b := range history(5) {
		tracker.Record(b)
	}

	if len(ch) != 1 {
		t.Fatalf("channel holds %d messages, want 1", len(ch))
	}
	msg := (<-ch).(CostUpdateMsg)
	if len(msg.History) != 5 {
		t.Fatalf("latest history len = %d, want 5", len(msg.History))
	}
}

func TestCostUpdateRecomputes(t *testing.T) {
	a := NewApp(Options{SessionID: "abc"})
	a = update(t, a, CostUpdateMsg{History: history(4)})

	if len(a.tiers) != 2 {
		t.Fatalf("tiers = %d, want 2", len(a.tiers))
	}
	if len(a.models) != 1 {
		t.Fatalf("models = %d, want 1", len(a.models))
	}
	if got := a.totals.TotalCost; got < 0.1199 || got > 0.1201 {
		t.Fatalf("TotalCost = %f, want 0.12", got)
	}
	if a.calls.cursor != 3 {
		t.Fatalf("cursor = %d, want 3 (following newest)", a.calls.cursor)
	}
	if a.lastUpdate.IsZero() {
		t.Fatal("lastUpdate not set")
	}
}

func TestTabNavigation(t *testing.T) {
	a := NewApp(Options{})
	a = update(t, a, CostUpdateMsg{History: history(1)})

	a = update(t, a, key("c"))
	if a.activeTab != tabCalls {
		t.Fatalf("after 'c' activeTab = %d, want %d", a.activeTab, tabCalls)
	}
	a = update(t, a, key("right"))
	if a.activeTab != tabOverview {
		t.Fatalf("after right activeTab = %d, want %d (wraps)", a.activeTab, tabOverview)
	}
	a = update(t, a, key("left"))
	if a.activeTab != tabCalls {
		t.Fatalf("after left activeTab = %d, want %d", a.activeTab, tabCalls)
	}
	a = update(t, a, key("b"))
	if a.activeTab != tabBreakdown {
		t.Fatalf("after 'b' activeTab = %d, want %d", a.activeTab, tabBreakdown)
	}
}

func TestCallsCursor(t *testing.T) {
	a := NewApp(Options{})
	a = update(t, a, CostUpdateMsg{History: history(3)})
	a = update(t, a, key("c"))

	a = update(t, a, key("down"))
	if a.calls.cursor != 1 || a.calls.follow {
		t.Fatalf("after down cursor = %d follow = %v, want 1 false", a.calls.cursor, a.calls.follow)
	}

	// A new record must not move a cursor the user placed.
	a = update(t, a, CostUpdateMsg{History: history(4)})
	if a.calls.cursor != 1 {
		t.Fatalf("cursor after update = %d, want 1", a.calls.cursor)
	}

	a = update(t, a, key("g"))
	if a.calls.cursor != 3 || !a.calls.follow {
		t.Fatalf("after g cursor = %d follow = %v, want 3 true", a.calls.cursor, a.calls.follow)
	}
}

func TestViewStates(t *testing.T) {
	a := NewApp(Options{Source: "live.jsonl", StartedAt: time.Now()})
	if v := a.View(); v != "" {
		t.Fatalf("View before size = %q, want empty", v)
	}

	a = update(t, a, tea.WindowSizeMsg{Width: 60, Height: 20})
	if v := a.View(); !strings.Contains(v, "too narrow") {
		t.Fatalf("narrow view missing warning:\n%s", v)
	}

	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	if v := a.View(); !strings.Contains(v, "Waiting for usage") {
		t.Fatalf("waiting view missing message:\n%s", v)
	}

	a = update(t, a, CostUpdateMsg{History: history(2)})
	for _, tab := range []struct {
		key  string
		want string
	}{
		{"o", "Estimated Cost"},
		{"b", "Total Estimated Cost:"},
		{"c", "Calls (2)"},
	} {
		a = update(t, a, key(tab.key))
		if v := a.View(); !strings.Contains(v, tab.want) {
			t.Errorf("tab %q view missing %q", tab.key, tab.want)
		}
	}

	a = update(t, a, FollowErrMsg{Err: errors.New("boom")})
	if v := a.View(); !strings.Contains(v, "boom") {
		t.Fatal("view does not surface the follower error")
	}
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	vals := setupValuesFrom(cfg)
	if vals.days != "30" {
		t.Fatalf("days = %q, want 30", vals.days)
	}

	vals.model = "gemini-2.5-flash"
	vals.days = "7"
	vals.theme = "terminal"
	vals.apply(&cfg)

	if cfg.General.DefaultModel != "gemini-2.5-flash" || cfg.General.DefaultDays != 7 || cfg.Appearance.Theme != "terminal" {
		t.Fatalf("applied config = %+v", cfg)
	}
}
