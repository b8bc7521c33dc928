package narrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"case-reasons-training/internal/llm"
	"go.uber.org/zap"
)

// Narrator turns a scenario description into the message shown to the agent.
type Narrator interface {
	Narrate(ctx context.Context, description string) (string, error)
}

const noDescription = "No description available for this scenario."

// Fallback is the deterministic narrator. It never fails.
type Fallback struct{}

func (Fallback) Narrate(_ context.Context, description string) (string, error) {
	return FallbackText(description), nil
}

// FallbackText renders a description without any external call.
func FallbackText(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return noDescription
	}
	return "Customer Inquiry: " + description
}

const systemPrompt = `You write realistic customer support emails for agent training.
Rewrite the scenario as a short first-person message from the customer.
Do not name the category, do not add a subject line, keep it under 80 words.`

// LLM asks a text-generation provider to phrase the scenario as a customer email.
type LLM struct {
	provider  llm.Provider
	maxTokens int
}

func NewLLM(provider llm.Provider) *LLM {
	return &LLM{provider: provider, maxTokens: 200}
}

func (n *LLM) Narrate(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", errors.New("narrator: empty description")
	}
	resp, err := n.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      "Scenario: " + description,
		MaxTokens:   n.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("narrate with %s: %w", n.provider.ModelID(), err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("narrator: provider returned empty text")
	}
	return text, nil
}

// Resilient uses primary and falls back to the deterministic text on any
// error or timeout, so callers never see a narration failure.
type Resilient struct {
	primary Narrator
	timeout time.Duration
	logger  *zap.Logger
}

// NewResilient wraps primary. A nil primary always uses the fallback text.
func NewResilient(primary Narrator, timeout time.Duration, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resilient{primary: primary, timeout: timeout, logger: logger}
}

func (r *Resilient) Narrate(ctx context.Context, description string) (string, error) {
	if r.primary == nil || strings.TrimSpace(description) == "" {
		return FallbackText(description), nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	text, err := r.primary.Narrate(ctx, description)
	if err != nil {
		r.logger.Debug("narration fell back to plain description", zap.Error(err))
		return FallbackText(description), nil
	}
	return text, nil
}

// Key is the cache key for a description.
func Key(description string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(description)))
	return hex.EncodeToString(sum[:])
}
