package genai_test

import (
	"context"
	"errors"
	"iter"
	"math"
	"testing"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/session"
)

type fakeGenerator struct {
	resp      *genai.GenerateContentResponse
	chunks    []*genai.GenerateContentResponse
	streamErr error // yielded after chunks
	callErr   error
	consumed  int
}

func (f *fakeGenerator) GenerateContent(context.Context, *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.resp, nil
}

func (f *fakeGenerator) GenerateContentStream(context.Context, *genai.GenerateContentRequest) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			f.consumed++
			if !yield(c, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}, nil
}

func (f *fakeGenerator) CountTokens(context.Context, *genai.CountTokensRequest) (*genai.CountTokensResponse, error) {
	return &genai.CountTokensResponse{TotalTokens: 42}, nil
}

func (f *fakeGenerator) EmbedContent(context.Context, *genai.EmbedContentRequest) (*genai.EmbedContentResponse, error) {
	return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 2}}}}, nil
}

func usageChunk(text string, prompt, candidates int64) *genai.GenerateContentResponse {
	r := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: genai.TextContent("model", text)}}}
	if prompt > 0 {
		r.UsageMetadata = &genai.UsageMetadata{PromptTokenCount: prompt, CandidatesTokenCount: candidates}
	}
	return r
}

func newTracked(inner genai.ContentGenerator) (*genai.CostTrackingGenerator, *session.Tracker) {
	tr := session.New()
	return genai.NewCostTracking(inner, "gemini-1.5-pro", pipeline.NewCalculator(config.DefaultTable()), tr), tr
}

func TestStream_RecordsOnlyUsageChunks(t *testing.T) {
	chunks := []*genai.GenerateContentResponse{
		usageChunk("a", 0, 0),
		usageChunk("b", 100, 10),
		usageChunk("c", 100, 20),
	}
	g, tr := newTracked(&fakeGenerator{chunks: chunks})

	stream, err := g.GenerateContentStream(context.Background(), &genai.GenerateContentRequest{})
	if err != nil {
		t.Fatalf("GenerateContentStream: %v", err)
	}

	var got []*genai.GenerateContentResponse
	for chunk, err := range stream {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		got = append(got, chunk)
	}

	if len(got) != 3 {
		t.Fatalf("yielded %d chunks, want 3", len(got))
	}
	for i := range chunks {
		if got[i] != chunks[i] {
			t.Fatalf("chunk %d not passed through unmodified", i)
		}
	}
	if tr.Len() != 2 {
		t.Fatalf("recorded %d breakdowns, want 2", tr.Len())
	}
	h := tr.History()
	if h[0].OutputTokens != 10 || h[1].OutputTokens != 20 {
		t.Fatalf("recorded output tokens = %d,%d, want 10,20", h[0].OutputTokens, h[1].OutputTokens)
	}
}

func TestStream_RecordsBeforeYield(t *testing.T) {
	g, tr := newTracked(&fakeGenerator{chunks: []*genai.GenerateContentResponse{usageChunk("x", 10, 1)}})

	stream, _ := g.GenerateContentStream(context.Background(), &genai.GenerateContentRequest{})
	for range stream {
		if tr.Len() != 1 {
			t.Fatalf("breakdown not recorded before chunk was yielded")
		}
	}
}

func TestStream_EarlyBreakStopsConsumption(t *testing.T) {
	inner := &fakeGenerator{chunks: []*genai.GenerateContentResponse{
		usageChunk("a", 10, 1),
		usageChunk("b", 10, 1),
		usageChunk("c", 10, 1),
	}}
	g, tr := newTracked(inner)

	stream, _ := g.GenerateContentStream(context.Background(), &genai.GenerateContentRequest{})
	for range stream {
		break
	}

	if inner.consumed != 1 {
		t.Fatalf("wrapped stream consumed %d chunks, want 1", inner.consumed)
	}
	if tr.Len() != 1 {
		t.Fatalf("recorded %d, want 1", tr.Len())
	}
}

func TestStream_ErrorPassthrough(t *testing.T) {
	boom := errors.New("boom")
	g, tr := newTracked(&fakeGenerator{
		chunks:    []*genai.GenerateContentResponse{usageChunk("a", 10, 1)},
		streamErr: boom,
	})

	stream, _ := g.GenerateContentStream(context.Background(), &genai.GenerateContentRequest{})
	var gotErr error
	for _, err := range stream {
		if err != nil {
			gotErr = err
		}
	}
	if gotErr != boom {
		t.Fatalf("stream error = %v, want original error", gotErr)
	}
	if tr.Len() != 1 {
		t.Fatalf("recorded %d, want 1", tr.Len())
	}
}

func TestCallErrorPassthrough(t *testing.T) {
	boom := errors.New("upstream down")
	g, tr := newTracked(&fakeGenerator{callErr: boom})

	if _, err := g.GenerateContent(context.Background(), &genai.GenerateContentRequest{}); err != boom {
		t.Fatalf("GenerateContent error = %v, want original", err)
	}
	if _, err := g.GenerateContentStream(context.Background(), &genai.GenerateContentRequest{}); err != boom {
		t.Fatalf("GenerateContentStream error = %v, want original", err)
	}
	if tr.Len() != 0 {
		t.Fatalf("recorded %d on failure, want 0", tr.Len())
	}
}

func TestGenerateContent_RecordsUsage(t *testing.T) {
	g, tr := newTracked(&fakeGenerator{resp: usageChunk("hi", 1_000_000, 0)})

	resp, err := g.GenerateContent(context.Background(), &genai.GenerateContentRequest{})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if resp.Text() != "hi" {
		t.Fatalf("Text = %q, want hi", resp.Text())
	}
	if tr.Len() != 1 {
		t.Fatalf("recorded %d, want 1", tr.Len())
	}
	// gemini-1.5-pro input is 7.00 per MTok
	if c := tr.TotalCost(); c < 6.999999 || c > 7.000001 {
		t.Fatalf("TotalCost = %v, want 7", c)
	}
}

func TestGenerateContent_NoUsageNoRecord(t *testing.T) {
	g, tr := newTracked(&fakeGenerator{resp: usageChunk("hi", 0, 0)})
	if _, err := g.GenerateContent(context.Background(), nil); err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if tr.Len() != 0 {
		t.Fatalf("recorded %d, want 0", tr.Len())
	}
}

func TestRequestModelOverridesDefault(t *testing.T) {
	g, tr := newTracked(&fakeGenerator{resp: usageChunk("hi", 10, 1)})

	if _, err := g.GenerateContent(context.Background(), &genai.GenerateContentRequest{Model: "gemini-2.5-pro"}); err != nil {
		t.Fatal(err)
	}
	if got := tr.History()[0].Model; got != "gemini-2.5-pro" {
		t.Fatalf("Model = %q, want gemini-2.5-pro", got)
	}
}

func TestUnknownModelNotRecorded(t *testing.T) {
	g, tr := newTracked(&fakeGenerator{resp: usageChunk("hi", 10, 1)})

	resp, err := g.GenerateContent(context.Background(), &genai.GenerateContentRequest{Model: "mystery-1"})
	if err != nil || resp == nil {
		t.Fatalf("GenerateContent = %v, %v; want response", resp, err)
	}
	if tr.Len() != 0 {
		t.Fatalf("recorded %d for unknown model, want 0", tr.Len())
	}
}

func TestCountAndEmbedUntracked(t *testing.T) {
	g, tr := newTracked(&fakeGenerator{})

	ct, err := g.CountTokens(context.Background(), &genai.CountTokensRequest{})
	if err != nil || ct.TotalTokens != 42 {
		t.Fatalf("CountTokens = %+v, %v", ct, err)
	}
	emb, err := g.EmbedContent(context.Background(), &genai.EmbedContentRequest{})
	if err != nil || len(emb.Embeddings) != 1 {
		t.Fatalf("EmbedContent = %+v, %v", emb, err)
	}
	if tr.Len() != 0 {
		t.Fatalf("recorded %d, want 0", tr.Len())
	}
}

func TestUsageMetadata_NegativeCountersZeroed(t *testing.T) {
	u := (&genai.UsageMetadata{PromptTokenCount: -5, CandidatesTokenCount: 3, TotalTokenCount: -1}).Usage()
	want := model.TokenUsage{CandidatesTokenCount: 3}
	if u != want {
		t.Fatalf("Usage = %+v, want %+v", u, want)
	}
	var nilMeta *genai.UsageMetadata
	if !nilMeta.Usage().IsZero() {
		t.Fatal("nil metadata usage not zero")
	}
}

func TestStream_TieredTotals(t *testing.T) {
	scenario := func(text string) *genai.GenerateContentResponse {
		r := usageChunk(text, 0, 0)
		r.UsageMetadata = &genai.UsageMetadata{
			PromptTokenCount:        100_000,
			CandidatesTokenCount:    400,
			ThinkingTokensCount:     100,
			CachedContentTokenCount: 20_000,
			TotalTokenCount:         100_500,
		}
		return r
	}
	chunks := []*genai.GenerateContentResponse{usageChunk("a", 0, 0), scenario("b"), scenario("c")}
	g, tr := newTracked(&fakeGenerator{chunks: chunks})

	stream, err := g.GenerateContentStream(context.Background(), &genai.GenerateContentRequest{Model: "gemini-2.5-pro"})
	if err != nil {
		t.Fatalf("GenerateContentStream: %v", err)
	}
	i := 0
	for chunk, err := range stream {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if chunk != chunks[i] {
			t.Fatalf("chunk %d out of order or modified", i)
		}
		i++
	}
	if i != 3 {
		t.Fatalf("yielded %d chunks, want 3", i)
	}
	if tr.Len() != 2 {
		t.Fatalf("recorded %d breakdowns, want 2", tr.Len())
	}
	if c := tr.TotalCost(); math.Abs(c-0.2224) > 1e-9 {
		t.Fatalf("TotalCost = %v, want 0.2224", c)
	}
}

func TestGenerateContent_TierBoundary(t *testing.T) {
	tests := []struct {
		prompt int64
		want   string
	}{
		{200_000, "small_prompt"},
		{200_001, "large_prompt"},
	}
	for _, tt := range tests {
		g, tr := newTracked(&fakeGenerator{resp: usageChunk("x", tt.prompt, 1)})
		if _, err := g.GenerateContent(context.Background(), &genai.GenerateContentRequest{Model: "gemini-2.5-pro"}); err != nil {
			t.Fatal(err)
		}
		if got := tr.History()[0].TierName; got != tt.want {
			t.Errorf("prompt %d: TierName = %q, want %q", tt.prompt, got, tt.want)
		}
	}
}

func TestModel_Default(t *testing.T) {
	g, _ := newTracked(&fakeGenerator{})
	if got := g.Model(); got != "gemini-1.5-pro" {
		t.Fatalf("Model = %q, want gemini-1.5-pro", got)
	}
}
