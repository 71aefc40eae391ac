// Package user simulates the customer side of a benchmark conversation.
package user

import (
	"context"

	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/llm"
	"github.com/go-go-golems/dialbench/pkg/retry"
	"github.com/pkg/errors"
)

// StopToken is emitted by a simulated user once the task goal is satisfied.
const StopToken = env.StopToken

// Simulator produces the next user utterance of a conversation.
type Simulator interface {
	// Reset starts a new conversation for the given instruction and returns the opening utterance.
	Reset(ctx context.Context, instruction string) (string, error)
	// Step answers the agent's latest message.
	Step(ctx context.Context, content string) (string, error)
	TotalCost() float64
}

var _ env.User = Simulator(nil)

type Mode string

const (
	ModeHuman Mode = "human"
	ModeNaive Mode = "naive"
)

var ErrUnknownUserMode = errors.New("unknown user mode")

// Settings configures the simulated user.
type Settings struct {
	Mode            Mode    `mapstructure:"mode" yaml:"mode"`
	Model           string  `mapstructure:"model" yaml:"model"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens int     `mapstructure:"max-output-tokens" yaml:"max-output-tokens"`
	// PromptTemplate replaces the built-in system prompt. It is a text/template
	// receiving .Instruction and .StopToken.
	PromptTemplate string `mapstructure:"prompt-template" yaml:"prompt-template"`
}

func DefaultSettings() Settings {
	return Settings{
		Mode:            ModeNaive,
		Model:           "gpt-4",
		Temperature:     1.0,
		MaxOutputTokens: 150,
	}
}

// Dependencies are the collaborators needed by the LLM simulator.
type Dependencies struct {
	LLM    llm.Settings
	Prices llm.PriceTable
	Retry  retry.Policy
	// Backend overrides the backend derived from the model name.
	Backend llm.Backend
}

// New builds the simulator selected by s.Mode.
func New(s Settings, deps Dependencies) (Simulator, error) {
	switch s.Mode {
	case ModeHuman:
		return NewHuman(nil), nil
	case ModeNaive:
		backend := deps.Backend
		if backend == nil {
			b, err := llm.NewBackend(s.Model, deps.LLM)
			if err != nil {
				return nil, err
			}
			backend = b
		}
		return NewLLM(llm.WithRetry(backend, deps.Retry), s, deps.Prices), nil
	default:
		return nil, errors.Wrapf(ErrUnknownUserMode, "mode %q", s.Mode)
	}
}
