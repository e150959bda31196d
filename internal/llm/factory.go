package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/patrace/internal/model"
)

// NewProvider creates a new provider based on configuration.
// An empty provider name means inference is disabled: (nil, nil).
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(ctx, config)

	case "":
		// No provider configured - return nil (baseline only)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown model provider: %s (supported: openai, anthropic, ollama, gemini)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config.
// An empty API key or base URL is filled from the provider's usual
// environment variable.
func ConfigFromModel(mc model.LLMConfig) Config {
	cfg := Config{
		Provider:    mc.Provider,
		Model:       mc.Model,
		APIKey:      mc.APIKey,
		BaseURL:     mc.BaseURL,
		Timeout:     mc.Timeout,
		MaxTokens:   mc.MaxTokens,
		Temperature: float32(mc.Temperature),
		HTTPProxy:   mc.HTTPProxy,
		HTTPSProxy:  mc.HTTPSProxy,
		NoProxy:     mc.NoProxy,
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
	case "anthropic", "claude":
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
	case "gemini", "google":
		cfg.APIKey = firstNonEmpty(cfg.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	case "ollama":
		cfg.BaseURL = firstNonEmpty(cfg.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
	}

	return cfg
}
