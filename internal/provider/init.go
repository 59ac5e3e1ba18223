package provider

import (
	"context"
	"os"

	"github.com/arbor-chat/arbor/internal/config"
	"github.com/arbor-chat/arbor/internal/logging"
)

// InitializeProviders builds a registry from configuration. Providers
// whose credentials are missing are skipped with a warning rather than
// failing startup.
func InitializeProviders(ctx context.Context, cfg *config.Config) *Registry {
	reg := NewRegistry()

	if pc, ok := cfg.Provider["anthropic"]; ok || envKeySet("ANTHROPIC_API_KEY") {
		p, err := NewClaudeProvider(ctx, &ClaudeConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL})
		if err != nil {
			logging.Warn().Err(err).Msg("skipping anthropic provider")
		} else {
			reg.Register(p)
		}
	}

	if pc, ok := cfg.Provider["openai"]; ok || envKeySet("OPENAI_API_KEY") {
		p, err := NewOpenAIProvider(ctx, &OpenAIConfig{APIKey: pc.APIKey, BaseURL: pc.BaseURL})
		if err != nil {
			logging.Warn().Err(err).Msg("skipping openai provider")
		} else {
			reg.Register(p)
		}
	}

	return reg
}

func envKeySet(name string) bool {
	// Config env overrides already copy these in, but a bare
	// environment with no config file still works.
	return os.Getenv(name) != ""
}
