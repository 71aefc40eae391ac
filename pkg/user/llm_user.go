package user

import (
	"bytes"
	"context"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/go-go-golems/dialbench/pkg/llm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const OpeningLine = "Hi! How can I help you today?"

const systemPromptTemplate = `You are an user interacting with an agent.

Instruction: {{ .Instruction | trim }}

Rules:
- Just generate one line at a time to simulate the user's message.
- Do not give away all the instruction at once. Only provide the information that is necessary for the current step.
- Do not hallucinate information that is not provided in the instruction. For example, if the agent asks for the order id but it is not mentioned in the instruction, do not make up an order id, just say you do not remember or have it.
- If the instruction goal is satisified, generate '{{ .StopToken }}' as a standalone message without anything else to end the conversation.
- Do not repeat the exact instruction in the conversation. Instead, use your own words to convey the same information.
- Try to make the conversation as natural as possible, and stick to the personalities in the instruction.
`

// RenderSystemPrompt interpolates the instruction into the simulator's system prompt.
// text overrides the built-in template when not empty; sprig functions are available.
func RenderSystemPrompt(text, instruction string) (string, error) {
	if text == "" {
		text = systemPromptTemplate
	}
	t, err := template.New("user-system-prompt").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse user system prompt")
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, map[string]string{
		"Instruction": instruction,
		"StopToken":   StopToken,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render user system prompt")
	}
	return buf.String(), nil
}

// LLM is a user played by a chat model. Roles are from the model's point of view:
// the agent speaks as "user" and the simulated customer answers as "assistant".
type LLM struct {
	backend  llm.Backend
	settings Settings
	ledger   *llm.Ledger
	messages []llm.Message
}

func NewLLM(backend llm.Backend, s Settings, prices llm.PriceTable) *LLM {
	return &LLM{
		backend:  backend,
		settings: s,
		ledger:   llm.NewLedger(prices),
	}
}

func (u *LLM) Reset(ctx context.Context, instruction string) (string, error) {
	u.ledger.Reset()
	prompt, err := RenderSystemPrompt(u.settings.PromptTemplate, instruction)
	if err != nil {
		return "", err
	}
	u.messages = []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
		{Role: llm.RoleUser, Content: OpeningLine},
	}
	return u.generate(ctx)
}

func (u *LLM) Step(ctx context.Context, content string) (string, error) {
	if u.messages == nil {
		return "", errors.New("user simulator used before Reset")
	}
	u.messages = append(u.messages, llm.Message{Role: llm.RoleUser, Content: content})
	return u.generate(ctx)
}

func (u *LLM) TotalCost() float64 {
	return u.ledger.Total()
}

// Messages returns the simulator's private history.
func (u *LLM) Messages() []llm.Message {
	return append([]llm.Message(nil), u.messages...)
}

func (u *LLM) generate(ctx context.Context) (string, error) {
	c, err := u.backend.Complete(ctx, u.messages, llm.Params{
		Model:           u.settings.Model,
		Temperature:     u.settings.Temperature,
		MaxOutputTokens: u.settings.MaxOutputTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "user simulator completion failed")
	}
	u.messages = append(u.messages, llm.Message{Role: llm.RoleAssistant, Content: c.Content})
	cost := u.ledger.Add(u.settings.Model, c)
	log.Debug().
		Str("model", u.settings.Model).
		Int("prompt_tokens", c.PromptTokens).
		Int("completion_tokens", c.CompletionTokens).
		Float64("cost", cost).
		Msg("simulated user replied")
	return c.Content, nil
}

var _ Simulator = (*LLM)(nil)
