package llm

import (
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

func getCodec(model string) tokenizer.Codec {
	c, err := tokenizer.ForModel(tokenizer.Model(model))
	if err == nil {
		return c
	}
	c, err = tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warn().Err(err).Msg("could not load cl100k_base codec")
		return nil
	}
	return c
}

// CountTokens estimates the token count of text for model. Unknown models use cl100k_base.
func CountTokens(model string, text string) int {
	if text == "" {
		return 0
	}
	c := getCodec(model)
	if c == nil {
		return 0
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("could not count tokens")
		return 0
	}
	return len(ids)
}

// estimateUsage fills in token counts for endpoints that do not report usage.
func estimateUsage(model string, messages []Message, completion *Completion) {
	if completion.PromptTokens != 0 || completion.CompletionTokens != 0 {
		return
	}
	for _, m := range messages {
		completion.PromptTokens += CountTokens(model, m.Content)
	}
	completion.CompletionTokens = CountTokens(model, completion.Content)
	log.Debug().
		Str("model", model).
		Int("prompt_tokens", completion.PromptTokens).
		Int("completion_tokens", completion.CompletionTokens).
		Msg("estimated token usage")
}
