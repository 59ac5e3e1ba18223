// Package provider wraps language-model backends behind a streaming
// completion interface, built on the Eino framework.
package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/arbor-chat/arbor/pkg/types"
)

// Provider is one language-model backend.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the models this provider serves.
	Models() []types.Model

	// CreateCompletion opens a streaming completion.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest describes one model invocation.
type CompletionRequest struct {
	Model     string             `json:"model"`
	Messages  []*schema.Message  `json:"messages"`
	Tools     []*schema.ToolInfo `json:"tools,omitempty"`
	MaxTokens int                `json:"maxTokens,omitempty"`

	// ReasoningBudget enables extended thinking with the given token
	// budget. Zero means thinking disabled.
	ReasoningBudget int `json:"reasoningBudget,omitempty"`
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a completion stream from a reader.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv returns the next message chunk; io.EOF ends the stream.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close releases the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// bindAndStream applies tools and opens the stream on an Eino chat
// model. Shared by the concrete providers.
func bindAndStream(ctx context.Context, chatModel model.ToolCallingChatModel, req *CompletionRequest) (*CompletionStream, error) {
	if len(req.Tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(req.Tools)
		if err != nil {
			return nil, err
		}
	}

	opts := []model.Option{}
	if req.MaxTokens > 0 {
		// The response cap must stay above the thinking budget;
		// Anthropic rejects max_tokens <= thinking.budget_tokens.
		opts = append(opts, model.WithMaxTokens(req.MaxTokens+req.ReasoningBudget))
	}

	stream, err := chatModel.Stream(ctx, req.Messages, opts...)
	if err != nil {
		return nil, err
	}
	return NewCompletionStream(stream), nil
}
