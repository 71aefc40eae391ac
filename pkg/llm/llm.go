// Package llm wraps the chat completion providers used by the user simulator.
package llm

import (
	"context"
	"strings"

	"github.com/go-go-golems/dialbench/pkg/retry"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Params are the sampling parameters sent with every completion request.
type Params struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Completion is the generated text plus the token usage reported by the provider.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Backend requests a single chat completion for an ordered list of messages.
type Backend interface {
	Complete(ctx context.Context, messages []Message, params Params) (*Completion, error)
}

// Settings holds provider credentials. Empty base URLs use the provider default.
type Settings struct {
	OpenAIAPIKey  string          `mapstructure:"openai-api-key" yaml:"openai-api-key"`
	OpenAIBaseURL string          `mapstructure:"openai-base-url" yaml:"openai-base-url"`
	GeminiAPIKey  string          `mapstructure:"gemini-api-key" yaml:"gemini-api-key"`
	GeminiBaseURL string          `mapstructure:"gemini-base-url" yaml:"gemini-base-url"`
	Safety        []SafetySetting `mapstructure:"safety" yaml:"safety"`
}

func IsOpenAIModel(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "gpt") ||
		strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4")
}

func IsGeminiModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gemini")
}

// NewBackend picks the provider from the model name.
func NewBackend(model string, s Settings) (Backend, error) {
	switch {
	case IsOpenAIModel(model):
		return NewOpenAIBackend(s.OpenAIAPIKey, s.OpenAIBaseURL), nil
	case IsGeminiModel(model):
		return NewGeminiBackend(s.GeminiAPIKey, s.GeminiBaseURL, s.Safety), nil
	default:
		return nil, errors.Errorf("unsupported user model %q", model)
	}
}

type retryingBackend struct {
	backend Backend
	policy  retry.Policy
}

// WithRetry wraps b so that every completion runs under policy.
func WithRetry(b Backend, policy retry.Policy) Backend {
	if !policy.Enabled {
		return b
	}
	return &retryingBackend{backend: b, policy: policy}
}

func (r *retryingBackend) Complete(ctx context.Context, messages []Message, params Params) (*Completion, error) {
	var ret *Completion
	err := retry.Do(ctx, r.policy, func() error {
		c, err := r.backend.Complete(ctx, messages, params)
		if err != nil {
			return err
		}
		ret = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
