// Package settings holds the configuration of a benchmark run, loaded through viper
// from flags, environment variables and the config file.
package settings

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-go-golems/dialbench/pkg/agent/dfagent"
	"github.com/go-go-golems/dialbench/pkg/agent/toolcalling"
	"github.com/go-go-golems/dialbench/pkg/dialogue/dialogflow"
	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/llm"
	"github.com/go-go-golems/dialbench/pkg/retry"
	"github.com/go-go-golems/dialbench/pkg/user"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Strategy string

const (
	StrategyDialogflow  Strategy = "dialogflow"
	StrategyToolCalling Strategy = "tool-calling"
)

type AgentSettings struct {
	Strategy    Strategy           `mapstructure:"strategy" yaml:"strategy"`
	Dialogflow  dfagent.Config     `mapstructure:"dialogflow" yaml:"dialogflow"`
	ToolCalling toolcalling.Config `mapstructure:"tool-calling" yaml:"tool-calling"`
	// WikiFile is read into ToolCalling.Wiki when set.
	WikiFile string `mapstructure:"wiki-file" yaml:"wiki-file"`
}

type EnvSettings struct {
	Name              string        `mapstructure:"name" yaml:"name"`
	Split             string        `mapstructure:"split" yaml:"split"`
	TasksDir          string        `mapstructure:"tasks-dir" yaml:"tasks-dir"`
	ToolServerURL     string        `mapstructure:"tool-server-url" yaml:"tool-server-url"`
	ToolTimeout       time.Duration `mapstructure:"tool-timeout" yaml:"tool-timeout"`
	ValidateArguments bool          `mapstructure:"validate-arguments" yaml:"validate-arguments"`
}

// PriceEntry overrides or adds the price of one model, in dollars per million tokens.
type PriceEntry struct {
	Model  string  `mapstructure:"model" yaml:"model"`
	Input  float64 `mapstructure:"input" yaml:"input"`
	Output float64 `mapstructure:"output" yaml:"output"`
}

type Settings struct {
	Agent      AgentSettings     `mapstructure:"agent" yaml:"agent"`
	Dialogflow dialogflow.Config `mapstructure:"dialogflow" yaml:"dialogflow"`
	User       user.Settings     `mapstructure:"user" yaml:"user"`
	LLM        llm.Settings      `mapstructure:"llm" yaml:"llm"`
	Prices     []PriceEntry      `mapstructure:"prices" yaml:"prices"`
	Retry      retry.Policy      `mapstructure:"retry" yaml:"retry"`
	Env        EnvSettings       `mapstructure:"env" yaml:"env"`
}

func Default() *Settings {
	return &Settings{
		Agent: AgentSettings{
			Strategy:    StrategyDialogflow,
			Dialogflow:  dfagent.DefaultConfig(),
			ToolCalling: toolcalling.DefaultConfig(),
		},
		Dialogflow: dialogflow.DefaultConfig(),
		User:       user.DefaultSettings(),
		LLM: llm.Settings{
			Safety: llm.DefaultSafetySettings(),
		},
		Retry: retry.DefaultPolicy(),
		Env: EnvSettings{
			Name:          "retail",
			Split:         "test",
			TasksDir:      "tasks",
			ToolServerURL: "http://localhost:8000",
			ToolTimeout:   120 * time.Second,
		},
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// PriceTable is the default price table with the configured entries applied on top.
func (s *Settings) PriceTable() llm.PriceTable {
	ret := llm.DefaultPriceTable()
	for _, p := range s.Prices {
		ret[p.Model] = llm.ModelPrice{Input: p.Input, Output: p.Output}
	}
	return ret
}

func (s *Settings) Validate() error {
	if err := env.ValidateName(s.Env.Name, s.Env.Split); err != nil {
		return err
	}
	switch s.Agent.Strategy {
	case StrategyDialogflow:
		if err := s.Dialogflow.Validate(); err != nil {
			return err
		}
	case StrategyToolCalling:
	default:
		return errors.Errorf("unknown agent strategy %q", s.Agent.Strategy)
	}
	switch s.User.Mode {
	case user.ModeHuman, user.ModeNaive:
	default:
		return errors.Wrapf(user.ErrUnknownUserMode, "mode %q", s.User.Mode)
	}
	for _, p := range s.Prices {
		if p.Model == "" {
			return errors.New("price entry without model")
		}
	}
	return nil
}

// ResolveFiles reads the files referenced by the settings.
func (s *Settings) ResolveFiles() error {
	if s.Agent.WikiFile == "" {
		return nil
	}
	b, err := os.ReadFile(s.Agent.WikiFile)
	if err != nil {
		return errors.Wrapf(err, "could not read wiki file %s", s.Agent.WikiFile)
	}
	s.Agent.ToolCalling.Wiki = string(b)
	return nil
}

func (s *Settings) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// SetDefaults registers every leaf of Default() with v, so that nested keys can be
// overridden from the environment (e.g. DIALBENCH_DIALOGFLOW_PROJECT_ID).
func SetDefaults(v *viper.Viper) error {
	b, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "could not marshal default settings")
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return errors.Wrap(err, "could not decode default settings")
	}
	for k, val := range flatten("", m) {
		v.SetDefault(k, val)
	}
	return nil
}

func flatten(prefix string, m map[string]any) map[string]any {
	ret := map[string]any{}
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			for sk, sv := range flatten(key, sub) {
				ret[sk] = sv
			}
			continue
		}
		ret[key] = v
	}
	return ret
}

// ConfigureEnv makes v read DIALBENCH_* variables, dashes and dots becoming underscores.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix("dialbench")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings known to v on top of the defaults.
func Load(v *viper.Viper) (*Settings, error) {
	s := Default()
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	// decoding a list over the default slice keeps the trailing default elements
	if v.IsSet("llm.safety") {
		var safety []llm.SafetySetting
		if err := v.UnmarshalKey("llm.safety", &safety); err != nil {
			return nil, errors.Wrap(err, "could not decode safety settings")
		}
		s.LLM.Safety = safety
	}
	return s, nil
}

// ConfigPaths are the directories searched for config.yaml.
func ConfigPaths() []string {
	ret := []string{".", "$HOME/.dialbench"}
	if xdg, err := os.UserConfigDir(); err == nil {
		ret = append(ret, fmt.Sprintf("%s/dialbench", xdg))
	}
	return ret
}
