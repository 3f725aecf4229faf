package genai

import (
	"context"
	"iter"

	log "github.com/sirupsen/logrus"

	"github.com/theirongolddev/agentcost/internal/model"
)

// Pricer converts usage into a cost breakdown. It returns false when the
// model has no pricing.
type Pricer interface {
	Breakdown(modelName string, usage model.TokenUsage) (model.CostBreakdown, bool)
}

// Recorder accepts priced usage, typically a session.Tracker.
type Recorder interface {
	Record(b model.CostBreakdown)
}

// CostTrackingGenerator wraps a ContentGenerator and records a cost
// breakdown for every response or chunk that carries usage metadata.
// Responses, chunks and errors are passed through unchanged.
type CostTrackingGenerator struct {
	wrapped  ContentGenerator
	model    string
	pricer   Pricer
	recorder Recorder
}

var _ ContentGenerator = (*CostTrackingGenerator)(nil)

// NewCostTracking returns a decorator over wrapped. defaultModel prices
// requests that do not name a model.
func NewCostTracking(wrapped ContentGenerator, defaultModel string, pricer Pricer, recorder Recorder) *CostTrackingGenerator {
	return &CostTrackingGenerator{
		wrapped:  wrapped,
		model:    defaultModel,
		pricer:   pricer,
		recorder: recorder,
	}
}

// GenerateContent forwards the request and records the usage of the result.
func (g *CostTrackingGenerator) GenerateContent(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	resp, err := g.wrapped.GenerateContent(ctx, req)
	if err != nil {
		return resp, err
	}
	g.track(g.modelFor(req), resp)
	return resp, nil
}

// GenerateContentStream forwards the request and returns a sequence that
// records each chunk's usage before yielding it.
func (g *CostTrackingGenerator) GenerateContentStream(ctx context.Context, req *GenerateContentRequest) (iter.Seq2[*GenerateContentResponse, error], error) {
	stream, err := g.wrapped.GenerateContentStream(ctx, req)
	if err != nil {
		return stream, err
	}
	modelName := g.modelFor(req)

	return func(yield func(*GenerateContentResponse, error) bool) {
		for chunk, err := range stream {
			if err == nil {
				g.track(modelName, chunk)
			}
			if !yield(chunk, err) {
				return
			}
		}
	}, nil
}

// CountTokens is forwarded untracked.
func (g *CostTrackingGenerator) CountTokens(ctx context.Context, req *CountTokensRequest) (*CountTokensResponse, error) {
	return g.wrapped.CountTokens(ctx, req)
}

// EmbedContent is forwarded untracked.
func (g *CostTrackingGenerator) EmbedContent(ctx context.Context, req *EmbedContentRequest) (*EmbedContentResponse, error) {
	return g.wrapped.EmbedContent(ctx, req)
}

// Model returns the default model used for pricing.
func (g *CostTrackingGenerator) Model() string { return g.model }

func (g *CostTrackingGenerator) modelFor(req *GenerateContentRequest) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return g.model
}

func (g *CostTrackingGenerator) track(modelName string, resp *GenerateContentResponse) {
	if resp == nil || resp.UsageMetadata == nil {
		return
	}
	b, ok := g.pricer.Breakdown(modelName, resp.UsageMetadata.Usage())
	if !ok {
		log.WithField("model", modelName).Debug("genai: usage not recorded, model has no pricing")
		return
	}
	g.recorder.Record(b)
}
