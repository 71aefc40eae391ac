// Package toolcalling implements an agent that plays the assistant itself with an
// OpenAI-compatible chat model and native function calling.
package toolcalling

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/dialbench/pkg/agent"
	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/llm"
	"github.com/go-go-golems/dialbench/pkg/retry"
	"github.com/go-go-golems/dialbench/pkg/transcript"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the part of the go-openai client the agent needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
}

type Config struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTurns    int     `mapstructure:"max-turns" yaml:"max-turns"`
	// Wiki is the domain policy given to the model as its system prompt.
	Wiki string `mapstructure:"wiki" yaml:"wiki"`
}

func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o",
		Temperature: 0.0,
		MaxTurns:    agent.DefaultMaxTurns,
	}
}

type Agent struct {
	client ChatClient
	config Config
	ledger *llm.Ledger
	retry  retry.Policy
}

type Option func(*Agent)

func WithPrices(prices llm.PriceTable) Option {
	return func(a *Agent) { a.ledger = llm.NewLedger(prices) }
}

func WithRetry(p retry.Policy) Option {
	return func(a *Agent) { a.retry = p }
}

func New(client ChatClient, config Config, opts ...Option) *Agent {
	a := &Agent{
		client: client,
		config: config,
		ledger: llm.NewLedger(nil),
		retry:  retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.config.MaxTurns <= 0 {
		a.config.MaxTurns = agent.DefaultMaxTurns
	}
	return a
}

func (a *Agent) Act(ctx context.Context, e env.Environment, index int) (*agent.Result, error) {
	a.ledger.Reset()

	tools, err := e.Tools(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not list environment tools")
	}
	obs, info, err := e.Reset(ctx, index)
	if err != nil {
		return nil, errors.Wrapf(err, "could not reset environment for task %d", index)
	}
	info = agent.MergeInfo(nil, info)

	messages := []go_openai.ChatCompletionMessage{
		{Role: go_openai.ChatMessageRoleSystem, Content: a.config.Wiki},
		{Role: go_openai.ChatMessageRoleUser, Content: obs},
	}

	reward := 0.0
	for turn := 0; turn < a.config.MaxTurns; turn++ {
		msg, err := a.complete(ctx, messages, tools)
		if err != nil {
			log.Error().Stack().Err(err).Int("turn", turn).Msg("completion failed")
			info["error"] = err.Error()
			break
		}

		action := toAction(msg)
		res, err := e.Step(ctx, action)
		if err != nil {
			return nil, errors.Wrapf(err, "environment step failed for action %s", action.Name)
		}
		reward = res.Reward
		info = agent.MergeInfo(info, res.Info)

		if len(msg.ToolCalls) > 0 {
			// only the first tool call is executed, so only that one is kept
			msg.ToolCalls = msg.ToolCalls[:1]
			call := msg.ToolCalls[0]
			messages = append(messages, msg, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    res.Observation,
			})
		} else {
			messages = append(messages, msg, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: res.Observation,
			})
		}
		if res.Done {
			break
		}
	}

	return &agent.Result{
		Reward:    reward,
		Info:      info,
		Messages:  toEntries(messages),
		TotalCost: a.ledger.Total(),
	}, nil
}

func (a *Agent) complete(ctx context.Context, messages []go_openai.ChatCompletionMessage, tools []go_openai.Tool) (go_openai.ChatCompletionMessage, error) {
	req := go_openai.ChatCompletionRequest{
		Model:       a.config.Model,
		Messages:    messages,
		Temperature: float32(a.config.Temperature),
	}
	if len(tools) > 0 {
		req.Tools = tools
	}

	var resp go_openai.ChatCompletionResponse
	err := retry.Do(ctx, a.retry, func() error {
		var err error
		resp, err = a.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return go_openai.ChatCompletionMessage{}, errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return go_openai.ChatCompletionMessage{}, errors.New("chat completion returned no choices")
	}

	a.ledger.Add(a.config.Model, &llm.Completion{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	})
	return resp.Choices[0].Message, nil
}

// toAction maps the first tool call to a tool action, or the text to a respond action.
func toAction(msg go_openai.ChatCompletionMessage) env.Action {
	if len(msg.ToolCalls) == 0 {
		return env.RespondAction(msg.Content)
	}
	call := msg.ToolCalls[0]
	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			log.Warn().Err(err).Str("tool", call.Function.Name).Msg("could not decode tool arguments")
			args = map[string]any{}
		}
	}
	return env.Action{Name: call.Function.Name, Arguments: args}
}

func toEntries(messages []go_openai.ChatCompletionMessage) []transcript.Entry {
	ret := make([]transcript.Entry, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Role == go_openai.ChatMessageRoleTool:
			ret = append(ret, transcript.Entry{Role: transcript.RoleTool, ToolResult: m.Content})
		case len(m.ToolCalls) > 0:
			calls := make([]any, 0, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				calls = append(calls, map[string]any{
					"id":        c.ID,
					"name":      c.Function.Name,
					"arguments": c.Function.Arguments,
				})
			}
			ret = append(ret, transcript.Entry{
				Role:               transcript.RoleAssistant,
				Content:            m.Content,
				DetectIntentResult: map[string]any{"tool_calls": calls},
			})
		default:
			ret = append(ret, transcript.Entry{Role: transcript.Role(m.Role), Content: m.Content})
		}
	}
	return ret
}

var _ agent.Agent = (*Agent)(nil)
