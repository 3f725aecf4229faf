package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/session"
	"github.com/theirongolddev/agentcost/internal/source"
)

func chunk(text string, usage *genai.UsageMetadata) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: genai.TextContent("model", text)}},
		UsageMetadata: usage,
	}
}

func sampleCalls() []source.Call {
	return []source.Call{
		{ID: "c1", Model: "gemini-2.5-pro", Responses: []*genai.GenerateContentResponse{
			chunk("hi", &genai.UsageMetadata{PromptTokenCount: 1000, CandidatesTokenCount: 10, TotalTokenCount: 1010}),
		}},
		{ID: "c2", Model: "gemini-2.5-pro", Stream: true, Responses: []*genai.GenerateContentResponse{
			chunk("a", nil),
			chunk("b", &genai.UsageMetadata{PromptTokenCount: 300_000, CandidatesTokenCount: 5}),
			chunk("c", &genai.UsageMetadata{PromptTokenCount: 300_000, CandidatesTokenCount: 9}),
		}},
		{ID: "c3", Model: "unpriced-model", Responses: []*genai.GenerateContentResponse{
			chunk("x", &genai.UsageMetadata{PromptTokenCount: 1}),
		}},
	}
}

func TestDrive_RecordsThroughDecorator(t *testing.T) {
	rec := New()
	tr := session.New()
	gen := genai.NewCostTracking(rec, "gemini-1.5-flash", pipeline.NewCalculator(config.DefaultTable()), tr)

	stats, err := Drive(context.Background(), rec, gen, sampleCalls())
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if stats.Calls != 3 || stats.Chunks != 5 || stats.Responses != 4 {
		t.Fatalf("stats = %+v, want 3 calls 5 chunks 4 responses", stats)
	}
	if rec.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", rec.Pending())
	}

	h := tr.History()
	if len(h) != 3 {
		t.Fatalf("recorded %d breakdowns, want 3", len(h))
	}
	if h[0].Tier != 0 || h[1].Tier != 1 || h[2].Tier != 1 {
		t.Fatalf("tiers = %d,%d,%d, want 0,1,1", h[0].Tier, h[1].Tier, h[2].Tier)
	}
	if h[2].OutputTokens != 9 {
		t.Fatalf("last OutputTokens = %d, want 9", h[2].OutputTokens)
	}
}

func TestGenerator_Exhausted(t *testing.T) {
	g := New()
	if _, err := g.GenerateContent(context.Background(), nil); !errors.Is(err, ErrExhausted) {
		t.Fatalf("GenerateContent err = %v, want ErrExhausted", err)
	}
	if _, err := g.GenerateContentStream(context.Background(), nil); !errors.Is(err, ErrExhausted) {
		t.Fatalf("GenerateContentStream err = %v, want ErrExhausted", err)
	}
}

func TestGenerator_MergesRecordedStream(t *testing.T) {
	g := New(sampleCalls()[1])

	resp, err := g.GenerateContent(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if resp.Text() != "abc" {
		t.Fatalf("Text = %q, want abc", resp.Text())
	}
	if resp.UsageMetadata.CandidatesTokenCount != 9 {
		t.Fatalf("usage = %+v, want last chunk usage", resp.UsageMetadata)
	}
}

func TestGenerator_StreamCancelled(t *testing.T) {
	g := New(sampleCalls()[1])
	g.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := g.GenerateContentStream(ctx, nil)
	if err != nil {
		t.Fatalf("GenerateContentStream: %v", err)
	}
	cancel()

	var n int
	var gotErr error
	for c, err := range stream {
		if err != nil {
			gotErr = err
			break
		}
		_ = c
		n++
	}
	if n != 0 || !errors.Is(gotErr, context.Canceled) {
		t.Fatalf("chunks = %d err = %v, want 0 and context.Canceled", n, gotErr)
	}
}

func TestGenerator_CountTokensAndEmbed(t *testing.T) {
	g := New()
	resp, err := g.CountTokens(context.Background(), &genai.CountTokensRequest{
		Contents: []*genai.Content{genai.TextContent("user", "twelve chars")},
	})
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if resp.TotalTokens != 3 {
		t.Fatalf("TotalTokens = %d, want 3", resp.TotalTokens)
	}
	if _, err := g.EmbedContent(context.Background(), nil); !errors.Is(err, genai.ErrUnsupported) {
		t.Fatalf("EmbedContent err = %v, want ErrUnsupported", err)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		chars int
		want  int64
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{10, 3},
		{400, 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.chars); got != tt.want {
			t.Fatalf("EstimateTokens(%d) = %d, want %d", tt.chars, got, tt.want)
		}
	}
}

func TestFollow_PricesAppendedCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	line := `{"type":"response","callId":"c1","model":"gemini-2.5-flash",` +
		`"response":{"usageMetadata":{"promptTokenCount":100,"candidatesTokenCount":20,"totalTokenCount":120}}}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := source.NewFollower(path, true)
	if err != nil {
		t.Fatalf("NewFollower: %v", err)
	}
	rec := New()
	tr := session.New()
	gen := genai.NewCostTracking(rec, "", pipeline.NewCalculator(config.DefaultTable()), tr)

	ctx, cancel := context.WithCancel(context.Background())
	var stats Stats
	done := make(chan error, 1)
	go func() {
		var err error
		stats, err = Follow(ctx, f, rec, gen)
		done <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for tr.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if stats.Calls != 1 {
		t.Errorf("stats.Calls = %d, want 1", stats.Calls)
	}

	h := tr.History()
	if len(h) != 1 {
		t.Fatalf("recorded %d breakdowns, want 1", len(h))
	}
	if h[0].OutputTokens != 20 || h[0].BilledInput != 100 {
		t.Fatalf("breakdown = %+v, want 100 billed input, 20 output", h[0])
	}
}
