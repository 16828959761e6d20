package llm

import (
	"context"
	"fmt"

	"github.com/avatarctic/requirements-evaluator/configs"
	"github.com/avatarctic/requirements-evaluator/internal/core/ports"
)

// NewModelClient builds the configured provider, throttled when MaxRPS is set.
func NewModelClient(ctx context.Context, cfg *configs.ModelConfig) (ports.ModelClient, error) {
	var client ports.ModelClient
	switch cfg.Provider {
	case configs.ProviderBedrock:
		c, err := NewBedrockClient(ctx, cfg.Region, cfg.ModelID, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		client = c
	case configs.ProviderOpenAI:
		client = NewOpenAIClient(nil, cfg.BaseURL, cfg.APIKey, cfg.ModelID, cfg.Temperature, cfg.MaxTokens)
	case configs.ProviderOllama:
		c, err := NewOllamaClient(cfg.BaseURL, cfg.ModelID, cfg.Temperature, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		client = c
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	if cfg.MaxRPS > 0 {
		client = NewThrottled(client, cfg.MaxRPS, cfg.Burst)
	}
	return client, nil
}
