package replay

import (
	"context"
	"fmt"

	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/source"
)

// Stats summarizes a replay run.
type Stats struct {
	Calls     int
	Chunks    int
	Responses int // responses carrying usage metadata
}

// Drive queues each call on rec and issues the matching request through
// gen, which is normally a decorator wrapping rec. Streamed calls are
// consumed as streams so every chunk is observed.
func Drive(ctx context.Context, rec *Generator, gen genai.ContentGenerator, calls []source.Call) (Stats, error) {
	var stats Stats
	for _, c := range calls {
		rec.Push(c)
		stats.Responses += len(c.UsageRecords())
		req := &genai.GenerateContentRequest{Model: c.Model}

		if !c.Stream {
			if _, err := gen.GenerateContent(ctx, req); err != nil {
				return stats, fmt.Errorf("replaying call %s: %w", c.ID, err)
			}
			stats.Calls++
			stats.Chunks++
			continue
		}

		stream, err := gen.GenerateContentStream(ctx, req)
		if err != nil {
			return stats, fmt.Errorf("replaying stream %s: %w", c.ID, err)
		}
		for _, err := range stream {
			if err != nil {
				return stats, fmt.Errorf("replaying stream %s: %w", c.ID, err)
			}
			stats.Chunks++
		}
		stats.Calls++
	}
	return stats, nil
}
