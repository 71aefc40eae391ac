package user

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/llm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcnksm/go-input"
)

type scriptedBackend struct {
	replies  []*llm.Completion
	requests [][]llm.Message
	params   []llm.Params
}

func (s *scriptedBackend) Complete(ctx context.Context, messages []llm.Message, params llm.Params) (*llm.Completion, error) {
	s.requests = append(s.requests, append([]llm.Message(nil), messages...))
	s.params = append(s.params, params)
	if len(s.replies) == 0 {
		return nil, errors.New("no more replies")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func TestLLM_ResetSeedsHistoryAndReturnsFirstUtterance(t *testing.T) {
	backend := &scriptedBackend{replies: []*llm.Completion{
		{Content: "I'd like to cancel my order.", PromptTokens: 200, CompletionTokens: 10},
	}}
	u := NewLLM(backend, DefaultSettings(), llm.PriceTable{"gpt-4": {Input: 30, Output: 60}})

	out, err := u.Reset(context.Background(), "You are Mia. Cancel order #W1.")
	require.NoError(t, err)
	assert.Equal(t, "I'd like to cancel my order.", out)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	require.Len(t, req, 2)
	assert.Equal(t, llm.RoleSystem, req[0].Role)
	assert.Contains(t, req[0].Content, "Instruction: You are Mia. Cancel order #W1.")
	assert.Contains(t, req[0].Content, StopToken)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: OpeningLine}, req[1])

	assert.Equal(t, llm.Params{Model: "gpt-4", Temperature: 1.0, MaxOutputTokens: 150}, backend.params[0])
	assert.InDelta(t, 30*200/1e6+60*10/1e6, u.TotalCost(), 1e-12)
}

func TestLLM_StepAppendsAndAccumulatesCost(t *testing.T) {
	backend := &scriptedBackend{replies: []*llm.Completion{
		{Content: "hello", PromptTokens: 100, CompletionTokens: 5},
		{Content: "my order is #W1", PromptTokens: 150, CompletionTokens: 7},
	}}
	prices := llm.PriceTable{"gpt-4": {Input: 30, Output: 60}}
	u := NewLLM(backend, DefaultSettings(), prices)

	_, err := u.Reset(context.Background(), "task")
	require.NoError(t, err)
	out, err := u.Step(context.Background(), "What is your order id?")
	require.NoError(t, err)
	assert.Equal(t, "my order is #W1", out)

	msgs := u.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What is your order id?"}, msgs[3])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "my order is #W1"}, msgs[4])

	expected := 30*100/1e6 + 60*5/1e6 + 30*150/1e6 + 60*7/1e6
	assert.InDelta(t, expected, u.TotalCost(), 1e-12)
}

func TestLLM_ResetClearsCost(t *testing.T) {
	backend := &scriptedBackend{replies: []*llm.Completion{
		{Content: "a", PromptTokens: 1000, CompletionTokens: 1000},
		{Content: "b", PromptTokens: 0, CompletionTokens: 0},
	}}
	u := NewLLM(backend, DefaultSettings(), nil)
	_, err := u.Reset(context.Background(), "first")
	require.NoError(t, err)
	assert.Greater(t, u.TotalCost(), 0.0)

	_, err = u.Reset(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, 0.0, u.TotalCost())
}

func TestLLM_UnknownModelPriceIsZero(t *testing.T) {
	backend := &scriptedBackend{replies: []*llm.Completion{{Content: "hi", PromptTokens: 10, CompletionTokens: 10}}}
	s := DefaultSettings()
	s.Model = "unpriced-model"
	u := NewLLM(backend, s, llm.DefaultPriceTable())
	out, err := u.Reset(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, 0.0, u.TotalCost())
}

func TestLLM_StepBeforeReset(t *testing.T) {
	u := NewLLM(&scriptedBackend{}, DefaultSettings(), nil)
	_, err := u.Step(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNew_UnknownModeFails(t *testing.T) {
	s := DefaultSettings()
	s.Mode = "telepathic"
	_, err := New(s, Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownUserMode))
}

func TestNew_Modes(t *testing.T) {
	s := DefaultSettings()
	sim, err := New(s, Dependencies{Backend: &scriptedBackend{}})
	require.NoError(t, err)
	assert.IsType(t, &LLM{}, sim)

	s.Mode = ModeHuman
	sim, err = New(s, Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &Human{}, sim)
}

func TestHuman_ReadsAnswer(t *testing.T) {
	var out bytes.Buffer
	h := NewHuman(&input.UI{
		Reader: strings.NewReader("I want to exchange a keyboard\n"),
		Writer: &out,
	})
	answer, err := h.Reset(context.Background(), "You are Yusuf.")
	require.NoError(t, err)
	assert.Equal(t, "I want to exchange a keyboard", answer)
	assert.Contains(t, out.String(), "You are Yusuf.")
	assert.Equal(t, 0.0, h.TotalCost())
}

func TestRenderSystemPrompt(t *testing.T) {
	prompt, err := RenderSystemPrompt("", "  Cancel order #W1.\n")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Instruction: Cancel order #W1.\n")
	assert.Contains(t, prompt, "'###STOP###'")

	prompt, err = RenderSystemPrompt("{{ .Instruction | upper }} then say {{ .StopToken }}", "cancel")
	require.NoError(t, err)
	assert.Equal(t, "CANCEL then say ###STOP###", prompt)

	_, err = RenderSystemPrompt("{{ .Instruction", "x")
	assert.Error(t, err)
}

func TestSimulatorDrivesUserEnv(t *testing.T) {
	sim, err := New(Settings{Mode: ModeNaive, Model: "gpt-4o"}, Dependencies{Backend: &scriptedBackend{
		replies: []*llm.Completion{{Content: "hi, I need help"}, {Content: env.StopToken}},
	}})
	require.NoError(t, err)

	var u env.User = sim
	first, err := u.Reset(context.Background(), "cancel the order")
	require.NoError(t, err)
	assert.Equal(t, "hi, I need help", first)

	reply, err := u.Step(context.Background(), "done, anything else?")
	require.NoError(t, err)
	assert.Equal(t, StopToken, reply)
	assert.Equal(t, "###STOP###", StopToken)
}
