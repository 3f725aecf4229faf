package source

import (
	"time"

	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/model"
)

// Transcript entry types.
const (
	EntryResponse = "response" // complete single-shot response
	EntryChunk    = "chunk"    // one streamed chunk
)

// DiscoveredFile is a transcript found on disk.
type DiscoveredFile struct {
	Path      string
	SessionID string
}

// Call is one model invocation reconstructed from a transcript.
// Single-shot calls hold exactly one response.
type Call struct {
	ID        string
	Model     string
	Timestamp time.Time
	Stream    bool
	Responses []*genai.GenerateContentResponse
}

// UsageRecords returns one record per response carrying usage metadata.
func (c Call) UsageRecords() []model.UsageRecord {
	var out []model.UsageRecord
	for _, r := range c.Responses {
		if r == nil || r.UsageMetadata == nil {
			continue
		}
		out = append(out, model.UsageRecord{
			CallID:    c.ID,
			Model:     c.Model,
			Timestamp: c.Timestamp,
			Stream:    c.Stream,
			Usage:     r.UsageMetadata.Usage(),
		})
	}
	return out
}
