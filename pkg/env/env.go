// Package env describes the benchmark environment an agent talks to and provides
// an implementation that combines a task set, a tool server and a simulated user.
package env

import (
	"context"

	go_openai "github.com/sashabaranov/go-openai"
)

// ActionRespond is the action name used for replies addressed to the user.
const ActionRespond = "respond"

// StopToken ends an episode when it appears in the user's reply, or when an agent
// responds with exactly this content.
const StopToken = "###STOP###"

// Action is the normalized instruction an agent hands to the environment.
type Action struct {
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments" yaml:"arguments"`
}

// RespondAction builds a respond action carrying content.
func RespondAction(content string) Action {
	return Action{Name: ActionRespond, Arguments: map[string]any{"content": content}}
}

func (a Action) IsRespond() bool {
	return a.Name == ActionRespond
}

// Content returns the respond content, or "" for tool actions.
func (a Action) Content() string {
	s, _ := a.Arguments["content"].(string)
	return s
}

type StepResult struct {
	Observation string
	Reward      float64
	Done        bool
	Info        map[string]any
}

// User is the simulated customer behind a UserEnv.
type User interface {
	Reset(ctx context.Context, instruction string) (string, error)
	Step(ctx context.Context, content string) (string, error)
	TotalCost() float64
}

// Environment is the collaborator that a conversation driver steps through.
type Environment interface {
	Reset(ctx context.Context, index int) (string, map[string]any, error)
	Step(ctx context.Context, action Action) (*StepResult, error)
	// Tools lists the function-calling schemas of the tools the agent may invoke.
	Tools(ctx context.Context) ([]go_openai.Tool, error)
}
