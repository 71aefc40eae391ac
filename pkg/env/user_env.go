package env

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// UserEnv plays the customer with a User and executes tools through a ToolBackend.
type UserEnv struct {
	tasks *TaskSet
	tools ToolBackend
	user  User

	task Task
	done bool
}

func NewUserEnv(tasks *TaskSet, tools ToolBackend, sim User) *UserEnv {
	return &UserEnv{tasks: tasks, tools: tools, user: sim}
}

func (e *UserEnv) Tasks() *TaskSet {
	return e.tasks
}

func (e *UserEnv) Tools(ctx context.Context) ([]go_openai.Tool, error) {
	return e.tools.Tools(ctx)
}

func (e *UserEnv) Reset(ctx context.Context, index int) (string, map[string]any, error) {
	task, err := e.tasks.Get(index)
	if err != nil {
		return "", nil, err
	}
	e.task = task
	e.done = false

	if err := e.tools.Reset(ctx, task); err != nil {
		return "", nil, errors.Wrap(err, "could not reset tools")
	}
	obs, err := e.user.Reset(ctx, task.Instruction)
	if err != nil {
		return "", nil, err
	}
	log.Debug().Str("task", task.ID).Int("index", index).Msg("environment reset")
	return obs, e.info(), nil
}

func (e *UserEnv) Step(ctx context.Context, action Action) (*StepResult, error) {
	if e.done {
		return nil, errors.New("step called on a finished episode")
	}

	ret := &StepResult{}
	if action.IsRespond() {
		content := action.Content()
		if content == StopToken {
			ret.Done = true
		} else {
			obs, err := e.user.Step(ctx, content)
			if err != nil {
				return nil, err
			}
			ret.Observation = obs
			ret.Done = strings.Contains(obs, StopToken)
		}
	} else {
		obs, err := e.tools.Invoke(ctx, action)
		if err != nil {
			// tool failures are observations the agent has to deal with
			log.Warn().Err(err).Str("tool", action.Name).Msg("tool invocation failed")
			obs = "Error: " + err.Error()
		}
		ret.Observation = obs
	}

	ret.Info = e.info()
	if ret.Done {
		e.done = true
		reward, info, err := e.tools.Reward(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not compute reward")
		}
		ret.Reward = reward
		for k, v := range info {
			ret.Info[k] = v
		}
	}
	return ret, nil
}

func (e *UserEnv) info() map[string]any {
	return map[string]any{
		"task":      e.task,
		"user_cost": e.user.TotalCost(),
	}
}

var _ Environment = (*UserEnv)(nil)
