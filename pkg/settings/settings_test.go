package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/dialbench/pkg/user"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, StrategyDialogflow, s.Agent.Strategy)
	assert.Equal(t, 30, s.Agent.Dialogflow.MaxTurns)
	assert.Equal(t, 1, s.Agent.Dialogflow.PendingCapacity)
	assert.Equal(t, "global", s.Dialogflow.Location)
	assert.Equal(t, "en", s.Dialogflow.LanguageCode)
	assert.Equal(t, user.ModeNaive, s.User.Mode)
	assert.Equal(t, 1.0, s.User.Temperature)
	assert.Equal(t, 150, s.User.MaxOutputTokens)
	assert.False(t, s.Retry.Enabled)
	assert.Len(t, s.LLM.Safety, 4)
	assert.Equal(t, "retail", s.Env.Name)
	assert.Equal(t, "test", s.Env.Split)
}

func TestClone(t *testing.T) {
	s := Default()
	s.Prices = []PriceEntry{{Model: "m", Input: 1, Output: 2}}
	c := s.Clone()
	require.Equal(t, s, c)

	c.Prices[0].Input = 100
	c.LLM.Safety[0].Threshold = "BLOCK_ALL"
	assert.Equal(t, 1.0, s.Prices[0].Input)
	assert.Equal(t, "BLOCK_NONE", s.LLM.Safety[0].Threshold)
}

func TestPriceTable(t *testing.T) {
	s := Default()
	s.Prices = []PriceEntry{
		{Model: "gpt-4o", Input: 2.5, Output: 10},
		{Model: "gemini-1.5-flash", Input: 0.35, Output: 1.05},
	}
	prices := s.PriceTable()
	assert.Equal(t, 2.5, prices["gpt-4o"].Input)
	assert.Equal(t, 1.05, prices["gemini-1.5-flash"].Output)
	assert.Equal(t, 30.0, prices["gpt-4"].Input)
}

func TestValidate(t *testing.T) {
	s := Default()
	assert.Error(t, s.Validate(), "dialogflow project is required")

	s.Dialogflow.ProjectID = "p"
	s.Dialogflow.AgentID = "a"
	assert.NoError(t, s.Validate())

	c := s.Clone()
	c.User.Mode = "expert"
	assert.True(t, errors.Is(c.Validate(), user.ErrUnknownUserMode))

	c = s.Clone()
	c.Agent.Strategy = "oracle"
	assert.Error(t, c.Validate())

	c = s.Clone()
	c.Env.Split = "holdout"
	assert.Error(t, c.Validate())

	c = Default()
	c.Agent.Strategy = StrategyToolCalling
	assert.NoError(t, c.Validate())
}

const configYAML = `
agent:
  strategy: tool-calling
  tool-calling:
    model: gpt-4-turbo
dialogflow:
  project-id: my-project
  agent-id: my-agent
user:
  temperature: 0.7
llm:
  safety:
    - category: HARM_CATEGORY_HARASSMENT
      threshold: BLOCK_ONLY_HIGH
prices:
  - model: gemini-1.5-pro
    input: 1.25
    output: 5
retry:
  enabled: true
  max-interval: 10s
env:
  name: airline
`

func TestLoad(t *testing.T) {
	v := viper.New()
	require.NoError(t, SetDefaults(v))
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(configYAML)))

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, StrategyToolCalling, s.Agent.Strategy)
	assert.Equal(t, "gpt-4-turbo", s.Agent.ToolCalling.Model)
	assert.Equal(t, 30, s.Agent.ToolCalling.MaxTurns)
	assert.Equal(t, "my-project", s.Dialogflow.ProjectID)
	assert.Equal(t, "global", s.Dialogflow.Location)
	assert.Equal(t, 0.7, s.User.Temperature)
	assert.Equal(t, 150, s.User.MaxOutputTokens)
	require.Len(t, s.LLM.Safety, 1)
	assert.Equal(t, "BLOCK_ONLY_HIGH", s.LLM.Safety[0].Threshold)
	assert.Equal(t, 1.25, s.PriceTable()["gemini-1.5-pro"].Input)
	assert.True(t, s.Retry.Enabled)
	assert.Equal(t, 10*time.Second, s.Retry.MaxInterval)
	assert.Equal(t, 3, s.Retry.MaxAttempts)
	assert.Equal(t, "airline", s.Env.Name)
	assert.Equal(t, "test", s.Env.Split)
	assert.Equal(t, 120*time.Second, s.Env.ToolTimeout)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DIALBENCH_DIALOGFLOW_PROJECT_ID", "from-env")
	t.Setenv("DIALBENCH_AGENT_DIALOGFLOW_MAX_TURNS", "5")

	v := viper.New()
	require.NoError(t, SetDefaults(v))
	ConfigureEnv(v)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Dialogflow.ProjectID)
	assert.Equal(t, 5, s.Agent.Dialogflow.MaxTurns)
}

func TestResolveFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiki.md")
	require.NoError(t, os.WriteFile(path, []byte("# Retail policy"), 0o644))

	s := Default()
	s.Agent.WikiFile = path
	require.NoError(t, s.ResolveFiles())
	assert.Equal(t, "# Retail policy", s.Agent.ToolCalling.Wiki)

	s.Agent.WikiFile = filepath.Join(t.TempDir(), "missing.md")
	assert.Error(t, s.ResolveFiles())
}

func TestYAML(t *testing.T) {
	b, err := Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(b), "strategy: dialogflow")
	assert.Contains(t, string(b), "pending-capacity: 1")
}
