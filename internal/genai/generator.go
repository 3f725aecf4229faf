package genai

import (
	"context"
	"errors"
	"iter"
)

// ErrUnsupported is returned by generators that cannot serve an operation.
var ErrUnsupported = errors.New("genai: operation not supported")

// ContentGenerator is the model client contract.
//
// GenerateContentStream returns a lazy sequence of chunks. A non-nil error
// from the sequence ends the stream.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, req *GenerateContentRequest) (iter.Seq2[*GenerateContentResponse, error], error)
	CountTokens(ctx context.Context, req *CountTokensRequest) (*CountTokensResponse, error)
	EmbedContent(ctx context.Context, req *EmbedContentRequest) (*EmbedContentResponse, error)
}
