// Package genai defines the content generator contract used by the agent and
// a decorator that prices the usage metadata of every response.
package genai

import (
	"strings"

	"github.com/theirongolddev/agentcost/internal/model"
)

// Part is one piece of content. Only text parts are modeled.
type Part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts,omitempty"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
	Index        int      `json:"index,omitempty"`
}

// UsageMetadata is the token accounting attached to a response.
type UsageMetadata struct {
	PromptTokenCount        int64 `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    int64 `json:"candidatesTokenCount,omitempty"`
	ThinkingTokensCount     int64 `json:"thinkingTokensCount,omitempty"`
	CachedContentTokenCount int64 `json:"cachedContentTokenCount,omitempty"`
	TotalTokenCount         int64 `json:"totalTokenCount,omitempty"`
}

// Usage converts the metadata to token usage. Negative counters become zero.
func (m *UsageMetadata) Usage() model.TokenUsage {
	if m == nil {
		return model.TokenUsage{}
	}
	return model.TokenUsage{
		PromptTokenCount:        nonNegative(m.PromptTokenCount),
		CandidatesTokenCount:    nonNegative(m.CandidatesTokenCount),
		ThinkingTokensCount:     nonNegative(m.ThinkingTokensCount),
		CachedContentTokenCount: nonNegative(m.CachedContentTokenCount),
		TotalTokenCount:         nonNegative(m.TotalTokenCount),
	}
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

// GenerateContentRequest asks the model for a response.
// An empty Model means the generator's default.
type GenerateContentRequest struct {
	Model             string     `json:"model,omitempty"`
	Contents          []*Content `json:"contents,omitempty"`
	SystemInstruction *Content   `json:"systemInstruction,omitempty"`
}

// GenerateContentResponse is a complete response or one streamed chunk.
type GenerateContentResponse struct {
	Candidates    []*Candidate   `json:"candidates,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

// Text concatenates the non-thought text parts of the first candidate.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// CountTokensRequest asks for the token count of contents.
type CountTokensRequest struct {
	Model    string     `json:"model,omitempty"`
	Contents []*Content `json:"contents,omitempty"`
}

// CountTokensResponse is the result of CountTokens.
type CountTokensResponse struct {
	TotalTokens             int64 `json:"totalTokens"`
	CachedContentTokenCount int64 `json:"cachedContentTokenCount,omitempty"`
}

// EmbedContentRequest asks for embeddings of contents.
type EmbedContentRequest struct {
	Model    string     `json:"model,omitempty"`
	Contents []*Content `json:"contents,omitempty"`
}

// ContentEmbedding is one embedding vector.
type ContentEmbedding struct {
	Values []float32 `json:"values"`
}

// EmbedContentResponse is the result of EmbedContent.
type EmbedContentResponse struct {
	Embeddings []*ContentEmbedding `json:"embeddings"`
}

// TextContent builds a single-part user content.
func TextContent(role, text string) *Content {
	return &Content{Role: role, Parts: []*Part{{Text: text}}}
}
