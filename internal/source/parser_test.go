package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTranscript creates a temp JSONL file and returns a DiscoveredFile for it.
func writeTranscript(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return DiscoveredFile{Path: path, SessionID: "test-session"}
}

func TestParseFile_SingleShotAndStream(t *testing.T) {
	df := writeTranscript(t,
		`{"type":"response","timestamp":"2026-05-01T10:00:00Z","callId":"c1","model":"gemini-2.5-pro","response":{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]}}],"usageMetadata":{"promptTokenCount":100,"candidatesTokenCount":5,"totalTokenCount":105}}}`,
		`{"type":"chunk","timestamp":"2026-05-01T10:01:00Z","callId":"c2","model":"gemini-2.5-pro","response":{"candidates":[{"content":{"parts":[{"text":"a"}]}}]}}`,
		`{"type":"chunk","timestamp":"2026-05-01T10:01:01Z","callId":"c2","model":"gemini-2.5-pro","response":{"usageMetadata":{"promptTokenCount":50,"candidatesTokenCount":1}}}`,
		`{"type":"chunk","timestamp":"2026-05-01T10:01:02Z","callId":"c2","model":"gemini-2.5-pro","response":{"usageMetadata":{"promptTokenCount":50,"candidatesTokenCount":3}}}`,
	)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Calls) != 2 {
		t.Fatalf("Calls = %d, want 2", len(result.Calls))
	}

	single := result.Calls[0]
	if single.Stream || single.ID != "c1" || len(single.Responses) != 1 {
		t.Fatalf("single call = %+v", single)
	}
	if single.Responses[0].Text() != "hello" {
		t.Fatalf("Text = %q, want hello", single.Responses[0].Text())
	}

	stream := result.Calls[1]
	if !stream.Stream || stream.ID != "c2" || len(stream.Responses) != 3 {
		t.Fatalf("stream call = %+v", stream)
	}
	if recs := stream.UsageRecords(); len(recs) != 2 {
		t.Fatalf("UsageRecords = %d, want 2", len(recs))
	}

	wantStart := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if !result.StartTime.Equal(wantStart) {
		t.Fatalf("StartTime = %v, want %v", result.StartTime, wantStart)
	}
	if !result.EndTime.Equal(wantStart.Add(62 * time.Second)) {
		t.Fatalf("EndTime = %v", result.EndTime)
	}
}

func TestParseFile_MalformedLinesCounted(t *testing.T) {
	df := writeTranscript(t,
		`{"type":"response","callId":"c1","model":"m","response":{}}`,
		`{not json`,
		`{"type":"response","callId":"c2","model":"m","response":"oops"}`,
		`{"type":"request","callId":"c3","model":"m"}`,
		``,
		`{"type":"response","callId":"c4","model":"m","response":{}}`,
	)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ParseErrors != 2 {
		t.Fatalf("ParseErrors = %d, want 2", result.ParseErrors)
	}
	if len(result.Calls) != 2 {
		t.Fatalf("Calls = %d, want 2", len(result.Calls))
	}
}

func TestParseFile_ThoughtsAlias(t *testing.T) {
	df := writeTranscript(t,
		`{"type":"response","callId":"c1","response":{"modelVersion":"gemini-2.5-flash","usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":2,"thoughtsTokenCount":7}}}`,
	)

	result := ParseFile(df)
	if len(result.Calls) != 1 {
		t.Fatalf("Calls = %d, want 1", len(result.Calls))
	}
	c := result.Calls[0]
	if c.Model != "gemini-2.5-flash" {
		t.Fatalf("Model = %q, want modelVersion fallback", c.Model)
	}
	if got := c.Responses[0].UsageMetadata.ThinkingTokensCount; got != 7 {
		t.Fatalf("ThinkingTokensCount = %d, want 7", got)
	}
}

func TestParseFile_StreamsSplitByCallID(t *testing.T) {
	df := writeTranscript(t,
		`{"type":"chunk","callId":"a","model":"m","response":{}}`,
		`{"type":"chunk","callId":"b","model":"m","response":{}}`,
		`{"type":"chunk","callId":"b","model":"m","response":{}}`,
		`{"type":"response","callId":"b","model":"m","response":{}}`,
	)

	result := ParseFile(df)
	if len(result.Calls) != 3 {
		t.Fatalf("Calls = %d, want 3", len(result.Calls))
	}
	if n := len(result.Calls[1].Responses); n != 2 {
		t.Fatalf("call b chunks = %d, want 2", n)
	}
	if result.Calls[2].Stream {
		t.Fatal("trailing response line should be a single-shot call")
	}
}

func TestParseFile_Missing(t *testing.T) {
	result := ParseFile(DiscoveredFile{Path: filepath.Join(t.TempDir(), "gone.jsonl")})
	if result.Err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"a.jsonl", "nested/b.jsonl", "notes.txt"} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ScanDir found %d files, want 2", len(files))
	}
	if files[0].SessionID != "a" || files[1].SessionID != "nested/b" {
		t.Fatalf("session ids = %q, %q", files[0].SessionID, files[1].SessionID)
	}

	missing, err := ScanDir(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Fatalf("ScanDir(missing) = %v, %v; want nil, nil", missing, err)
	}
}
