package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/arbor-chat/arbor/pkg/types"
)

// reasoningBudgetTokens is the thinking budget handed to reasoning
// model variants.
const reasoningBudgetTokens = 10_000

// ClaudeProvider serves Anthropic Claude models. Two chat models are
// held: a plain one and one constructed with extended thinking, since
// thinking is a construction-time option in the Eino claude component.
type ClaudeProvider struct {
	chatModel     model.ToolCallingChatModel
	thinkingModel model.ToolCallingChatModel
	models        []types.Model
}

// ClaudeConfig configures the Claude provider.
type ClaudeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewClaudeProvider creates a Claude provider.
func NewClaudeProvider(ctx context.Context, config *ClaudeConfig) (*ClaudeProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = "claude-sonnet-4-20250514"
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	cfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = &config.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create claude model: %w", err)
	}

	thinkingCfg := *cfg
	thinkingCfg.MaxTokens = maxTokens + reasoningBudgetTokens
	thinkingCfg.Thinking = &claude.Thinking{
		Enable:       true,
		BudgetTokens: reasoningBudgetTokens,
	}
	thinkingModel, err := claude.NewChatModel(ctx, &thinkingCfg)
	if err != nil {
		return nil, fmt.Errorf("create claude thinking model: %w", err)
	}

	return &ClaudeProvider{
		chatModel:     chatModel,
		thinkingModel: thinkingModel,
		models:        claudeModels(modelID),
	}, nil
}

// ID returns the provider identifier.
func (p *ClaudeProvider) ID() string { return "anthropic" }

// Name returns the human-readable provider name.
func (p *ClaudeProvider) Name() string { return "Anthropic" }

// Models returns the models this provider serves.
func (p *ClaudeProvider) Models() []types.Model { return p.models }

// CreateCompletion opens a streaming completion, routing to the
// thinking model when a reasoning budget is requested.
func (p *ClaudeProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	chatModel := p.chatModel
	if req.ReasoningBudget > 0 {
		chatModel = p.thinkingModel
	}
	return bindAndStream(ctx, chatModel, req)
}

func claudeModels(baseModelID string) []types.Model {
	return []types.Model{
		{
			ID:              "chat-model",
			Name:            "Claude Sonnet",
			ProviderID:      "anthropic",
			MaxOutputTokens: 8192,
			SupportsTools:   true,
		},
		{
			ID:              "chat-model-reasoning",
			Name:            "Claude Sonnet (reasoning)",
			ProviderID:      "anthropic",
			MaxOutputTokens: 8192,
			Reasoning:       true,
		},
		{
			ID:              baseModelID,
			Name:            "Claude Sonnet",
			ProviderID:      "anthropic",
			MaxOutputTokens: 8192,
			SupportsTools:   true,
		},
	}
}
