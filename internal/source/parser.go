// Package source discovers, parses and follows JSONL model transcripts.
//
// Each transcript line is one entry:
//
//	{"type":"chunk","timestamp":"...","callId":"c1","model":"gemini-2.5-pro","response":{...}}
//
// Consecutive lines sharing a callId form one call. Lines of any other type
// are ignored.
package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/theirongolddev/agentcost/internal/genai"
)

var errNotObject = errors.New("response is not a JSON object")

// ParseResult holds the output of parsing a single transcript.
type ParseResult struct {
	Calls       []Call
	ParseErrors int
	StartTime   time.Time
	EndTime     time.Time
	Err         error
}

// ParseFile reads a transcript file.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads transcript entries from r until EOF.
func Parse(r io.Reader) ParseResult {
	var (
		dec    Decoder
		result ParseResult
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 2*1024*1024)

	for scanner.Scan() {
		result.Calls = append(result.Calls, dec.Feed(scanner.Bytes())...)
	}
	if err := scanner.Err(); err != nil {
		return ParseResult{Err: err}
	}
	result.Calls = append(result.Calls, dec.Flush()...)

	result.ParseErrors = dec.ParseErrors
	result.StartTime = dec.StartTime
	result.EndTime = dec.EndTime
	return result
}

// Decoder groups transcript lines into calls. The zero value is ready to use.
type Decoder struct {
	ParseErrors int
	StartTime   time.Time
	EndTime     time.Time

	pending *Call
}

// Feed decodes one line and returns any calls it completed.
func (d *Decoder) Feed(line []byte) []Call {
	if len(line) == 0 {
		return nil
	}
	if !gjson.ValidBytes(line) {
		d.ParseErrors++
		return nil
	}

	root := gjson.ParseBytes(line)
	entryType := root.Get("type").String()
	if entryType != EntryResponse && entryType != EntryChunk {
		return nil
	}

	resp, err := decodeResponse(root.Get("response"))
	if err != nil {
		d.ParseErrors++
		return nil
	}

	var ts time.Time
	if raw := root.Get("timestamp").String(); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ts = parsed
			updateTimeRange(&d.StartTime, &d.EndTime, ts)
		}
	}

	callID := root.Get("callId").String()
	modelName := root.Get("model").String()
	if modelName == "" {
		modelName = resp.ModelVersion
	}
	stream := entryType == EntryChunk

	var done []Call
	if d.pending != nil && (!stream || !d.pending.Stream || d.pending.ID != callID) {
		done = append(done, *d.pending)
		d.pending = nil
	}

	if d.pending == nil {
		d.pending = &Call{ID: callID, Model: modelName, Timestamp: ts, Stream: stream}
	}
	d.pending.Responses = append(d.pending.Responses, resp)

	if !stream {
		done = append(done, *d.pending)
		d.pending = nil
	}
	return done
}

// Flush returns the call still being assembled, if any.
func (d *Decoder) Flush() []Call {
	if d.pending == nil {
		return nil
	}
	c := *d.pending
	d.pending = nil
	return []Call{c}
}

// decodeResponse unmarshals a response object. thoughtsTokenCount is
// accepted as an alias of thinkingTokensCount.
func decodeResponse(v gjson.Result) (*genai.GenerateContentResponse, error) {
	if !v.IsObject() {
		return nil, errNotObject
	}
	var resp genai.GenerateContentResponse
	if err := json.Unmarshal([]byte(v.Raw), &resp); err != nil {
		return nil, err
	}
	if resp.UsageMetadata != nil && resp.UsageMetadata.ThinkingTokensCount == 0 {
		if alias := v.Get("usageMetadata.thoughtsTokenCount"); alias.Exists() {
			resp.UsageMetadata.ThinkingTokensCount = alias.Int()
		}
	}
	return &resp, nil
}

func updateTimeRange(minTime, maxTime *time.Time, ts time.Time) {
	if minTime.IsZero() || ts.Before(*minTime) {
		*minTime = ts
	}
	if maxTime.IsZero() || ts.After(*maxTime) {
		*maxTime = ts
	}
}
