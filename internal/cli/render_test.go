package cli

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderTable_AlignsWideRunes(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Pricing",
		Headers: []string{"Model", "Prompt", "Input"},
		Rows: [][]string{
			{"gemini-2.5-pro", "≤ 200.0K", "$1.250"},
			{separatorRow},
			{"gemini-2.5-flash", "unbounded", "$0.300"},
		},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if got := len(lines); got != 8 {
		t.Fatalf("lines = %d, want 8 (title, 3 rules, header, 2 rows, separator):\n%s", got, out)
	}
	want := lipgloss.Width(lines[1])
	for i, l := range lines[1:] {
		if w := lipgloss.Width(l); w != want {
			t.Errorf("line %d width = %d, want %d: %q", i+1, w, want, l)
		}
	}
	if !strings.Contains(out, "  ≤ 200.0K") {
		t.Errorf("numeric column not right-aligned:\n%s", out)
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if out := RenderTable(Table{}); out != "" {
		t.Fatalf("empty table = %q, want empty", out)
	}
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		in   []float64
		want string
	}{
		{nil, ""},
		{[]float64{0, 0}, "▁▁"},
		{[]float64{2, 4}, "▄█"},
		{[]float64{-3, 7}, "▁█"},
	}
	for _, tt := range tests {
		if got := RenderSparkline(tt.in); got != tt.want {
			t.Errorf("RenderSparkline(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	if got := RenderProgressBar(1, 0, 10); got != "" {
		t.Fatalf("zero total = %q, want empty", got)
	}
	got := RenderProgressBar(5, 10, 10)
	if !strings.Contains(got, "█████░░░░░") || !strings.HasSuffix(got, "5/10") {
		t.Fatalf("RenderProgressBar(5, 10, 10) = %q", got)
	}
	if got := RenderProgressBar(20, 10, 4); !strings.Contains(got, "████") || !strings.HasSuffix(got, "10/10") {
		t.Fatalf("overflow not clamped: %q", got)
	}
}
