// Package dfagent drives a conversation between a hosted dialogue agent and a
// benchmark environment, relaying user turns and tool results turn by turn.
package dfagent

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/dialbench/pkg/agent"
	"github.com/go-go-golems/dialbench/pkg/dialogue"
	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/transcript"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Config controls a single conversation of the driver.
type Config struct {
	MaxTurns int `mapstructure:"max-turns" yaml:"max-turns"`
	// PendingCapacity bounds outstanding tool calls; 0 means unbounded.
	PendingCapacity int    `mapstructure:"pending-capacity" yaml:"pending-capacity"`
	LanguageCode    string `mapstructure:"language-code" yaml:"language-code"`
	Verbose         bool   `mapstructure:"verbose" yaml:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		MaxTurns:        agent.DefaultMaxTurns,
		PendingCapacity: 1,
		LanguageCode:    "en",
	}
}

// Agent drives one conversation per Act against a hosted dialogue agent, relaying
// user utterances and tool results until the environment is done or MaxTurns is hit.
type Agent struct {
	service  dialogue.Service
	config   Config
	tools    dialogue.ToolNameMap
	renderer *transcript.Renderer
	newID    func() string

	transcript *transcript.Transcript
	pending    *dialogue.PendingCalls
	resolver   *dialogue.Resolver
	session    string
}

type Option func(*Agent)

func WithConfig(c Config) Option {
	return func(a *Agent) { a.config = c }
}

// WithMaxTurns overrides the turn cap. Values <= 0 fall back to agent.DefaultMaxTurns.
func WithMaxTurns(n int) Option {
	return func(a *Agent) { a.config.MaxTurns = n }
}

func WithPendingCapacity(n int) Option {
	return func(a *Agent) { a.config.PendingCapacity = n }
}

func WithVerbose(verbose bool) Option {
	return func(a *Agent) { a.config.Verbose = verbose }
}

// WithRenderer sets where verbose turn output goes. Defaults to stdout.
func WithRenderer(r *transcript.Renderer) Option {
	return func(a *Agent) { a.renderer = r }
}

// WithSessionIDGenerator replaces the uuid used for the session path segment.
func WithSessionIDGenerator(f func() string) Option {
	return func(a *Agent) { a.newID = f }
}

// New fetches the tool registry of the hosted agent once; the resulting name
// map does not change for the lifetime of the Agent.
func New(ctx context.Context, service dialogue.Service, opts ...Option) (*Agent, error) {
	a := &Agent{
		service:    service,
		config:     DefaultConfig(),
		newID:      func() string { return uuid.NewString() },
		transcript: transcript.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.config.MaxTurns <= 0 {
		a.config.MaxTurns = agent.DefaultMaxTurns
	}
	if a.renderer == nil {
		a.renderer = transcript.NewRenderer(os.Stdout)
	}

	tools, err := service.ListTools(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not list dialogue agent tools")
	}
	a.tools = dialogue.NewToolNameMap(tools)
	log.Debug().Int("tools", a.tools.Len()).Msg("loaded dialogue agent tools")

	return a, nil
}

func (a *Agent) ToolNames() dialogue.ToolNameMap {
	return a.tools
}

func (a *Agent) Transcript() []transcript.Entry {
	return a.transcript.Entries()
}

// Session is the session of the current or last conversation.
func (a *Agent) Session() string {
	return a.session
}

// Render prints the last n transcript entries, or all of them when n <= 0.
func (a *Agent) Render(w io.Writer, n int) {
	transcript.NewRenderer(w).RenderTranscript(a.transcript, n)
}

func (a *Agent) reset() {
	a.transcript.Reset()
	a.pending = dialogue.NewPendingCalls(a.config.PendingCapacity)
	a.resolver = dialogue.NewResolver(a.tools, a.pending)
	a.session = fmt.Sprintf("%s/sessions/%s", a.service.SessionPrefix(), a.newID())
}

// Act runs one conversation for task index. Protocol errors of the dialogue
// service end the conversation and are reported in Result.Info["error"];
// environment errors are returned.
func (a *Agent) Act(ctx context.Context, e env.Environment, index int) (*agent.Result, error) {
	a.reset()

	obs, info, err := e.Reset(ctx, index)
	if err != nil {
		return nil, errors.Wrapf(err, "could not reset environment for task %d", index)
	}
	info = agent.MergeInfo(nil, info)
	a.transcript.AppendText(transcript.RoleUser, obs)

	reward := 0.0
	for turn := 0; turn < a.config.MaxTurns; turn++ {
		resp, action, err := a.nextAction(ctx)
		if err != nil {
			log.Error().Stack().Err(err).Str("session", a.session).Int("turn", turn).
				Msg("dialogue agent failed")
			info["error"] = err.Error()
			break
		}
		a.transcript.AppendDetectIntentResult(resp.Raw)

		log.Debug().Str("action", action.Name).Interface("arguments", action.Arguments).Msg("dialogue agent returned action")
		res, err := e.Step(ctx, action)
		if err != nil {
			return nil, errors.Wrapf(err, "environment step failed for action %s", action.Name)
		}
		reward = res.Reward
		info = agent.MergeInfo(info, res.Info)

		if action.IsRespond() {
			a.transcript.AppendText(transcript.RoleUser, res.Observation)
		} else {
			a.transcript.AppendToolResult(res.Observation)
		}

		if a.config.Verbose {
			a.renderer.RenderTranscript(a.transcript, 2)
		}
		if res.Done {
			break
		}
	}

	return &agent.Result{
		Reward:    reward,
		Info:      info,
		Messages:  a.transcript.Entries(),
		TotalCost: agent.UserCost(info),
	}, nil
}

// nextAction sends the next request (a pending tool result, or the last text) and
// resolves the service response into an action.
func (a *Agent) nextAction(ctx context.Context) (*dialogue.Response, env.Action, error) {
	last, _ := a.transcript.Last()
	req := &dialogue.Request{
		Session:      a.session,
		LanguageCode: a.config.LanguageCode,
	}
	if call, ok := a.pending.Pop(); ok {
		req.ToolResult = toolResult(call, last.ToolResult)
	} else {
		req.Text = last.Content
	}

	resp, err := a.service.DetectIntent(ctx, req)
	if err != nil {
		return nil, env.Action{}, err
	}
	action, err := a.resolver.Resolve(resp)
	if err != nil {
		return nil, env.Action{}, err
	}
	return resp, action, nil
}

func toolResult(call dialogue.ToolCall, result string) *dialogue.ToolResult {
	ret := &dialogue.ToolResult{Tool: call.Tool, Action: call.Action}
	if strings.Contains(strings.ToLower(result), "error") {
		ret.Error = &dialogue.ToolError{Message: result}
	} else {
		ret.Output = map[string]any{"result": result}
	}
	return ret
}

var _ agent.Agent = (*Agent)(nil)
