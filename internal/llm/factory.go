package llm

import (
	"context"
	"fmt"
	"time"
)

// ProviderConfig selects and configures one backend.
type ProviderConfig struct {
	// Provider is one of "anthropic", "openai", "gemini", "mock" or "none".
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Retry    RetryConfig
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetry is short on purpose: a scenario is waiting on the reply.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		InitialWait: 250 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// NewProvider builds the configured provider wrapped with retry. Provider
// "none" (or empty) returns ErrNotConfigured.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "", "none":
		return nil, ErrNotConfigured
	case "anthropic":
		base, err = NewAnthropicProvider(cfg)
	case "openai":
		base, err = NewOpenAIProvider(cfg)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetry()
	}
	return WithRetry(base, retry), nil
}
