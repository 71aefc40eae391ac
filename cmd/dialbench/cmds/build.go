package cmds

import (
	"context"

	"github.com/go-go-golems/dialbench/pkg/agent"
	"github.com/go-go-golems/dialbench/pkg/agent/dfagent"
	"github.com/go-go-golems/dialbench/pkg/agent/toolcalling"
	"github.com/go-go-golems/dialbench/pkg/dialogue"
	"github.com/go-go-golems/dialbench/pkg/dialogue/dialogflow"
	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/llm"
	"github.com/go-go-golems/dialbench/pkg/settings"
	"github.com/go-go-golems/dialbench/pkg/user"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

func loadSettings() (*settings.Settings, error) {
	s, err := settings.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := s.ResolveFiles(); err != nil {
		return nil, err
	}
	return s, nil
}

func newToolBackend(s *settings.Settings) env.ToolBackend {
	var tools env.ToolBackend = env.NewRemoteTools(s.Env.ToolServerURL, s.Env.ToolTimeout)
	if s.Env.ValidateArguments {
		tools = env.NewValidatingTools(tools)
	}
	return tools
}

func newEnvironment(s *settings.Settings) (*env.UserEnv, error) {
	tasks, err := env.LoadTaskSet(s.Env.TasksDir, s.Env.Name, s.Env.Split)
	if err != nil {
		return nil, err
	}
	sim, err := user.New(s.User, user.Dependencies{
		LLM:    s.LLM,
		Prices: s.PriceTable(),
		Retry:  s.Retry,
	})
	if err != nil {
		return nil, err
	}
	return env.NewUserEnv(tasks, newToolBackend(s), sim), nil
}

// newAgent returns the agent selected by the settings and a function releasing its clients.
func newAgent(ctx context.Context, s *settings.Settings) (agent.Agent, func() error, error) {
	switch s.Agent.Strategy {
	case settings.StrategyDialogflow:
		svc, err := dialogflow.NewService(ctx, s.Dialogflow)
		if err != nil {
			return nil, nil, err
		}
		a, err := dfagent.New(ctx, dialogue.WithRetry(svc, s.Retry), dfagent.WithConfig(s.Agent.Dialogflow))
		if err != nil {
			_ = svc.Close()
			return nil, nil, err
		}
		return a, svc.Close, nil

	case settings.StrategyToolCalling:
		client := llm.MakeOpenAIClient(s.LLM.OpenAIAPIKey, s.LLM.OpenAIBaseURL)
		a := toolcalling.New(client, s.Agent.ToolCalling,
			toolcalling.WithPrices(s.PriceTable()),
			toolcalling.WithRetry(s.Retry),
		)
		return a, func() error { return nil }, nil

	default:
		return nil, nil, errors.Errorf("unknown agent strategy %q", s.Agent.Strategy)
	}
}
