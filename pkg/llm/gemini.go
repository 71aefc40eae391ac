package llm

import (
	"context"
	"math"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// SafetySetting names a Gemini harm category and the threshold to block at,
// using the API's enum names (e.g. HARM_CATEGORY_HARASSMENT / BLOCK_NONE).
type SafetySetting struct {
	Category  string `mapstructure:"category" yaml:"category"`
	Threshold string `mapstructure:"threshold" yaml:"threshold"`
}

// DefaultSafetySettings disables blocking for the four configurable categories so
// simulated customers are never refused mid-conversation.
func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	}
}

var harmCategories = map[string]genai.HarmCategory{
	"HARM_CATEGORY_DANGEROUS_CONTENT": genai.HarmCategoryDangerousContent,
	"HARM_CATEGORY_HARASSMENT":        genai.HarmCategoryHarassment,
	"HARM_CATEGORY_HATE_SPEECH":       genai.HarmCategoryHateSpeech,
	"HARM_CATEGORY_SEXUALLY_EXPLICIT": genai.HarmCategorySexuallyExplicit,
}

var harmThresholds = map[string]genai.HarmBlockThreshold{
	"BLOCK_NONE":             genai.HarmBlockNone,
	"BLOCK_ONLY_HIGH":        genai.HarmBlockOnlyHigh,
	"BLOCK_MEDIUM_AND_ABOVE": genai.HarmBlockMediumAndAbove,
	"BLOCK_LOW_AND_ABOVE":    genai.HarmBlockLowAndAbove,
}

// GeminiBackend requests completions from the Gemini API. A client is created per call.
type GeminiBackend struct {
	apiKey  string
	baseURL string
	safety  []*genai.SafetySetting
}

func NewGeminiBackend(apiKey, baseURL string, safety []SafetySetting) *GeminiBackend {
	if safety == nil {
		safety = DefaultSafetySettings()
	}
	return &GeminiBackend{
		apiKey:  apiKey,
		baseURL: baseURL,
		safety:  toGenAISafety(safety),
	}
}

func toGenAISafety(settings []SafetySetting) []*genai.SafetySetting {
	ret := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		cat, ok := harmCategories[strings.ToUpper(s.Category)]
		if !ok {
			log.Warn().Str("category", s.Category).Msg("unknown gemini harm category, skipping")
			continue
		}
		th, ok := harmThresholds[strings.ToUpper(s.Threshold)]
		if !ok {
			log.Warn().Str("threshold", s.Threshold).Msg("unknown gemini block threshold, skipping")
			continue
		}
		ret = append(ret, &genai.SafetySetting{Category: cat, Threshold: th})
	}
	return ret
}

func (g *GeminiBackend) Complete(ctx context.Context, messages []Message, params Params) (*Completion, error) {
	if g.apiKey == "" {
		return nil, errors.New("missing gemini API key")
	}
	opts := []option.ClientOption{option.WithAPIKey(g.apiKey)}
	if g.baseURL != "" {
		opts = append(opts, option.WithEndpoint(g.baseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close gemini client")
		}
	}()

	model := client.GenerativeModel(params.Model)
	model.SetTemperature(float32(params.Temperature))
	model.SetMaxOutputTokens(clampInt32(params.MaxOutputTokens))
	model.SafetySettings = g.safety

	system, history, last, err := splitForGemini(messages)
	if err != nil {
		return nil, err
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	log.Debug().Str("model", params.Model).Int("history", len(history)).Msg("Gemini completion request")
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, errors.Wrap(err, "gemini generate content failed")
	}

	ret := &Completion{}
	if resp.UsageMetadata != nil {
		ret.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		ret.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	ret.Content = b.String()
	return ret, nil
}

// splitForGemini maps our message list onto a system instruction, a chat history and
// the final user turn that is sent. The first system message becomes the instruction.
func splitForGemini(messages []Message) (string, []*genai.Content, string, error) {
	system := ""
	rest := messages
	if len(rest) > 0 && rest[0].Role == RoleSystem {
		system = rest[0].Content
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", nil, "", errors.New("no messages to send to gemini")
	}
	last := rest[len(rest)-1]
	if last.Role != RoleUser {
		return "", nil, "", errors.Errorf("last gemini message must be from the user, got %s", last.Role)
	}

	history := make([]*genai.Content, 0, len(rest)-1)
	for _, m := range rest[:len(rest)-1] {
		role := "user"
		switch m.Role {
		case RoleAssistant:
			role = "model"
		case RoleUser:
			role = "user"
		case RoleSystem:
			return "", nil, "", errors.New("gemini only supports a leading system message")
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return system, history, last.Content, nil
}

func clampInt32(v int) int32 {
	if v < 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v) // #nosec G115
}

var _ Backend = (*GeminiBackend)(nil)
