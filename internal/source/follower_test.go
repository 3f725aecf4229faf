package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func appendLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := f.WriteString(l); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFollower_Poll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	appendLines(t, path, `{"type":"response","callId":"old","model":"m","response":{}}`+"\n")

	f, err := NewFollower(path, false)
	if err != nil {
		t.Fatalf("NewFollower: %v", err)
	}
	if calls, _ := f.Poll(); len(calls) != 0 {
		t.Fatalf("existing content returned %d calls, want 0", len(calls))
	}

	// A partial line is held back until its newline arrives.
	appendLines(t, path, `{"type":"response","callId":"c1","model":"m",`)
	if calls, _ := f.Poll(); len(calls) != 0 {
		t.Fatalf("partial line returned %d calls", len(calls))
	}
	appendLines(t, path, `"response":{}}`+"\n")
	calls, err := f.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(calls) != 1 || calls[0].ID != "c1" {
		t.Fatalf("Poll = %+v, want c1", calls)
	}

	// Truncation rereads from the start.
	if err := os.WriteFile(path, []byte(`{"type":"response","callId":"new","model":"m","response":{}}`+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	calls, _ = f.Poll()
	if len(calls) != 1 || calls[0].ID != "new" {
		t.Fatalf("after truncate Poll = %+v, want new", calls)
	}
}

func TestFollower_FromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	appendLines(t, path,
		`{"type":"chunk","callId":"s","model":"m","response":{}}`+"\n",
		`{"type":"chunk","callId":"s","model":"m","response":{}}`+"\n",
	)

	f, _ := NewFollower(path, true)
	calls, err := f.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(calls) != 1 || len(calls[0].Responses) != 2 {
		t.Fatalf("Poll = %+v, want one call with two chunks", calls)
	}
}

func TestFollower_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	f, err := NewFollower(path, true)
	if err != nil {
		t.Fatalf("NewFollower: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan Call, 64)
	done := make(chan error, 1)
	go func() {
		done <- f.Run(ctx, func(calls []Call) {
			for _, c := range calls {
				got <- c
			}
		})
	}()

	// Keep appending until the watcher picks a write up.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case c := <-got:
			if c.ID != "live" {
				t.Fatalf("call id = %q, want live", c.ID)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Run: %v", err)
			}
			return
		case <-ticker.C:
			appendLines(t, path, `{"type":"response","callId":"live","model":"m","response":{}}`+"\n")
		case <-ctx.Done():
			t.Fatal("timed out waiting for followed call")
		}
	}
}
