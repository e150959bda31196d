package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when no usable model backend exists
var ErrUnavailable = errors.New("model provider unavailable")

// Provider defines the interface for model inference backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Infer runs one completion: a system instruction plus a user prompt in,
	// raw model text out
	Infer(ctx context.Context, req InferRequest) (*InferResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// InferRequest contains the input for one completion
type InferRequest struct {
	// System is the fixed system instruction
	System string

	// Prompt is the rendered user prompt
	Prompt string

	// Model is the specific model to use (provider-specific, empty = config default)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; extraction runs near zero
	Temperature float32
}

// InferResponse contains the raw model output
type InferResponse struct {
	// Text is the unparsed completion text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int

	// Cached is true when the response came from the response cache
	Cached bool
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible servers)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for response generation
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Timeout:     60,
		MaxTokens:   1024,
		Temperature: 0.1,
	}
}

// Unavailable stands in for a provider that could not be constructed.
// It keeps the name for logs and fails every call with ErrUnavailable.
type Unavailable struct {
	ProviderName string
	Reason       error
}

// Name returns the configured provider name
func (u *Unavailable) Name() string {
	return u.ProviderName
}

// IsAvailable always reports false
func (u *Unavailable) IsAvailable(_ context.Context) bool {
	return false
}

// Infer always fails with ErrUnavailable
func (u *Unavailable) Infer(_ context.Context, _ InferRequest) (*InferResponse, error) {
	if u.Reason != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, u.ProviderName, u.Reason)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, u.ProviderName)
}
