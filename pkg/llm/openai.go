package llm

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend requests chat completions from an OpenAI compatible endpoint.
type OpenAIBackend struct {
	client *go_openai.Client
}

func NewOpenAIBackend(apiKey, baseURL string) *OpenAIBackend {
	return &OpenAIBackend{client: MakeOpenAIClient(apiKey, baseURL)}
}

// MakeOpenAIClient builds a client, keeping the library default base URL when baseURL is empty.
func MakeOpenAIClient(apiKey, baseURL string) *go_openai.Client {
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return go_openai.NewClientWithConfig(config)
}

func (o *OpenAIBackend) Complete(ctx context.Context, messages []Message, params Params) (*Completion, error) {
	req := go_openai.ChatCompletionRequest{
		Model:       params.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(params.Temperature),
		MaxTokens:   params.MaxOutputTokens,
	}

	log.Debug().Str("model", params.Model).Int("num_messages", len(messages)).Msg("OpenAI completion request")
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "openai chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	ret := &Completion{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	estimateUsage(params.Model, messages, ret)
	return ret, nil
}

func toOpenAIMessages(messages []Message) []go_openai.ChatCompletionMessage {
	ret := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		ret = append(ret, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return ret
}

var _ Backend = (*OpenAIBackend)(nil)
