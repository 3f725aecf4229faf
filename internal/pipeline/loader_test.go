package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/store"
)

func writeTranscripts(t testing.TB, dir string, files map[string][]string) {
	t.Helper()
	for name, lines := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func sampleTranscripts() map[string][]string {
	return map[string][]string{
		"a.jsonl": {
			`{"type":"response","timestamp":"2026-05-01T10:00:00Z","callId":"c1","model":"gemini-1.5-flash","response":{"usageMetadata":{"promptTokenCount":1000000,"candidatesTokenCount":1000000}}}`,
			`{"type":"chunk","timestamp":"2026-05-01T10:02:00Z","callId":"c2","model":"gemini-1.5-flash","response":{"candidates":[]}}`,
			`{"type":"chunk","timestamp":"2026-05-01T10:02:01Z","callId":"c2","model":"gemini-1.5-flash","response":{"usageMetadata":{"promptTokenCount":1000000}}}`,
			`{"type":"response","timestamp":"2026-05-01T10:03:00Z","callId":"c3","model":"unpriced","response":{"usageMetadata":{"promptTokenCount":5}}}`,
			`garbage`,
		},
		"nested/b.jsonl": {
			`{"type":"response","timestamp":"2026-05-02T08:00:00Z","callId":"x","model":"gemini-2.5-pro","response":{"usageMetadata":{"promptTokenCount":300000}}}`,
		},
		"empty.jsonl": {
			`{"type":"response","callId":"nousage","model":"gemini-2.5-pro","response":{}}`,
		},
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeTranscripts(t, dir, sampleTranscripts())

	calc := NewCalculator(config.DefaultTable())
	var progressCalls int
	result, err := Load(dir, calc, func(current, total int) {
		progressCalls++
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if result.TotalFiles != 3 || result.ParsedFiles != 3 || progressCalls != 3 {
		t.Fatalf("result = %+v, progress calls = %d", result, progressCalls)
	}
	if result.ParseErrors != 1 {
		t.Fatalf("ParseErrors = %d, want 1", result.ParseErrors)
	}
	if len(result.Sessions) != 2 {
		t.Fatalf("Sessions = %d, want 2 (empty transcript dropped)", len(result.Sessions))
	}

	a := result.Sessions[0]
	if a.SessionID != "a" || a.Calls != 3 || a.Records != 3 || a.Unpriced != 1 {
		t.Fatalf("session a = %+v", a)
	}
	// 0.70 + 2.10 for c1, 0.70 for c2
	if !near(a.TotalCost, 3.5) {
		t.Fatalf("session a TotalCost = %v, want 3.5", a.TotalCost)
	}

	b := result.Sessions[1]
	if b.SessionID != "nested/b" || len(b.Breakdowns) != 1 || b.Breakdowns[0].TierName != "large_prompt" {
		t.Fatalf("session b = %+v", b)
	}
}

func TestLoadWithCache(t *testing.T) {
	dir := t.TempDir()
	writeTranscripts(t, dir, sampleTranscripts())

	cache, err := store.Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer cache.Close()

	calc := NewCalculator(config.DefaultTable())

	first, err := LoadWithCache(dir, calc, cache, nil)
	if err != nil {
		t.Fatalf("LoadWithCache: %v", err)
	}
	if first.CacheHits != 0 || first.Reparsed != 3 {
		t.Fatalf("first load hits=%d reparsed=%d", first.CacheHits, first.Reparsed)
	}

	second, err := LoadWithCache(dir, calc, cache, nil)
	if err != nil {
		t.Fatalf("LoadWithCache: %v", err)
	}
	if second.CacheHits != 3 || second.Reparsed != 0 {
		t.Fatalf("second load hits=%d reparsed=%d", second.CacheHits, second.Reparsed)
	}
	if len(second.Sessions) != len(first.Sessions) {
		t.Fatalf("cached sessions = %d, want %d", len(second.Sessions), len(first.Sessions))
	}
	if second.ParseErrors != first.ParseErrors {
		t.Fatalf("cached ParseErrors = %d, want %d", second.ParseErrors, first.ParseErrors)
	}

	// Costs are recomputed from current pricing, not read from the cache.
	cheap, err := config.NewTable(config.DefaultPricing, config.PricingOverrides{Models: map[string]config.ModelPricingOverride{
		"gemini-1.5-flash": {Tiers: []config.TierOverride{{InputPerMTok: 0, OutputPerMTok: 0}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	third, err := LoadWithCache(dir, NewCalculator(cheap), cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range third.Sessions {
		if s.SessionID == "a" && s.TotalCost != 0 {
			t.Fatalf("session a TotalCost = %v with zero pricing, want 0", s.TotalCost)
		}
	}
}

func TestLoadWithCache_PrunesRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	writeTranscripts(t, dir, sampleTranscripts())

	cache, err := store.Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer cache.Close()

	calc := NewCalculator(config.DefaultTable())
	if _, err := LoadWithCache(dir, calc, cache, nil); err != nil {
		t.Fatalf("LoadWithCache: %v", err)
	}
	before, err := cache.TranscriptCount()
	if err != nil {
		t.Fatal(err)
	}
	if before != 3 {
		t.Fatalf("TranscriptCount = %d, want 3", before)
	}

	if err := os.Remove(filepath.Join(dir, "nested", "b.jsonl")); err != nil {
		t.Fatal(err)
	}

	got, err := LoadWithCache(dir, calc, cache, nil)
	if err != nil {
		t.Fatalf("LoadWithCache: %v", err)
	}
	if got.Pruned != 1 || got.CacheHits != 2 || got.Reparsed != 0 {
		t.Fatalf("pruned=%d hits=%d reparsed=%d, want 1/2/0", got.Pruned, got.CacheHits, got.Reparsed)
	}
	for _, s := range got.Sessions {
		if s.SessionID == "nested/b" {
			t.Fatal("removed transcript still reported")
		}
	}

	after, err := cache.TranscriptCount()
	if err != nil {
		t.Fatal(err)
	}
	if after != 2 {
		t.Fatalf("TranscriptCount after removal = %d, want 2", after)
	}
	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tracked[filepath.Join(dir, "nested", "b.jsonl")]; ok {
		t.Fatal("file tracker still lists removed transcript")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	result, err := Load(filepath.Join(t.TempDir(), "none"), NewCalculator(config.DefaultTable()), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.TotalFiles != 0 || len(result.Sessions) != 0 {
		t.Fatalf("result = %+v, want empty", result)
	}
}
