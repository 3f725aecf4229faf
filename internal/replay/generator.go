// Package replay serves recorded transcript calls through the content
// generator contract so recorded sessions can be priced like live ones.
package replay

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/source"
)

// ErrExhausted is returned when no recorded call is queued.
var ErrExhausted = errors.New("replay: no recorded calls left")

// charsPerToken is the ratio used to estimate token counts from text.
const charsPerToken = 4.0

// Generator answers requests with queued recorded calls, oldest first.
type Generator struct {
	mu    sync.Mutex
	queue []source.Call

	// Delay is slept before each chunk is yielded.
	Delay time.Duration
}

var _ genai.ContentGenerator = (*Generator)(nil)

// New returns a generator with calls queued.
func New(calls ...source.Call) *Generator {
	g := &Generator{}
	g.Push(calls...)
	return g
}

// Push queues calls for later requests.
func (g *Generator) Push(calls ...source.Call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, calls...)
}

// Pending returns the number of queued calls.
func (g *Generator) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

func (g *Generator) next() (source.Call, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return source.Call{}, ErrExhausted
	}
	c := g.queue[0]
	g.queue = g.queue[1:]
	return c, nil
}

// GenerateContent returns the next recorded call as one response. A recorded
// stream is merged: text is concatenated and the last usage metadata wins.
func (g *Generator) GenerateContent(ctx context.Context, _ *genai.GenerateContentRequest) (*genai.GenerateContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := g.next()
	if err != nil {
		return nil, err
	}
	if len(c.Responses) == 1 {
		return c.Responses[0], nil
	}
	return merge(c.Responses), nil
}

// GenerateContentStream yields the chunks of the next recorded call.
// The sequence stops with ctx.Err() when ctx is cancelled.
func (g *Generator) GenerateContentStream(ctx context.Context, _ *genai.GenerateContentRequest) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := g.next()
	if err != nil {
		return nil, err
	}

	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range c.Responses {
			if g.Delay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(g.Delay):
				}
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}, nil
}

// CountTokens estimates the token count of the request text.
func (g *Generator) CountTokens(_ context.Context, req *genai.CountTokensRequest) (*genai.CountTokensResponse, error) {
	var chars int
	if req != nil {
		for _, c := range req.Contents {
			if c == nil {
				continue
			}
			for _, p := range c.Parts {
				if p != nil {
					chars += len(p.Text)
				}
			}
		}
	}
	return &genai.CountTokensResponse{TotalTokens: EstimateTokens(chars)}, nil
}

// EmbedContent is not recorded in transcripts.
func (g *Generator) EmbedContent(context.Context, *genai.EmbedContentRequest) (*genai.EmbedContentResponse, error) {
	return nil, genai.ErrUnsupported
}

// EstimateTokens converts a character count to an approximate token count.
// Non-empty text is at least one token.
func EstimateTokens(chars int) int64 {
	if chars <= 0 {
		return 0
	}
	tokens := float64(chars) / charsPerToken
	if tokens < 1 {
		tokens = 1
	}
	return int64(tokens + 0.5)
}

func merge(chunks []*genai.GenerateContentResponse) *genai.GenerateContentResponse {
	out := &genai.GenerateContentResponse{}
	var text strings.Builder
	var finish string
	for _, c := range chunks {
		if c == nil {
			continue
		}
		text.WriteString(c.Text())
		if c.UsageMetadata != nil {
			out.UsageMetadata = c.UsageMetadata
		}
		if c.ModelVersion != "" {
			out.ModelVersion = c.ModelVersion
		}
		if c.ResponseID != "" {
			out.ResponseID = c.ResponseID
		}
		if len(c.Candidates) > 0 && c.Candidates[0].FinishReason != "" {
			finish = c.Candidates[0].FinishReason
		}
	}
	out.Candidates = []*genai.Candidate{{
		Content:      genai.TextContent("model", text.String()),
		FinishReason: finish,
	}}
	return out
}
