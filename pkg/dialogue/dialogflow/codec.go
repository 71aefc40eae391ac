package dialogflow

import (
	"cloud.google.com/go/dialogflow/cx/apiv3beta1/cxpb"
	"github.com/go-go-golems/dialbench/pkg/dialogue"
	"github.com/go-go-golems/dialbench/pkg/normalize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeRequest builds the detect-intent request for a text turn or a tool result relay.
func EncodeRequest(req *dialogue.Request) (*cxpb.DetectIntentRequest, error) {
	if req.Session == "" {
		return nil, errors.New("session is required")
	}

	input := &cxpb.QueryInput{LanguageCode: req.LanguageCode}
	if req.ToolResult == nil {
		input.Input = &cxpb.QueryInput_Text{Text: &cxpb.TextInput{Text: req.Text}}
	} else {
		result, err := encodeToolResult(req.ToolResult)
		if err != nil {
			return nil, err
		}
		input.Input = &cxpb.QueryInput_ToolCallResult{ToolCallResult: result}
	}

	return &cxpb.DetectIntentRequest{
		Session:    req.Session,
		QueryInput: input,
	}, nil
}

func encodeToolResult(r *dialogue.ToolResult) (*cxpb.ToolCallResult, error) {
	ret := &cxpb.ToolCallResult{Tool: r.Tool, Action: r.Action}
	if r.Error != nil {
		ret.Result = &cxpb.ToolCallResult_Error_{
			Error: &cxpb.ToolCallResult_Error{Message: r.Error.Message},
		}
		return ret, nil
	}

	output, err := structpb.NewStruct(normalize.Map(r.Output))
	if err != nil {
		return nil, errors.Wrapf(err, "tool result for %s is not representable as a struct", r.Tool)
	}
	ret.Result = &cxpb.ToolCallResult_OutputParameters{OutputParameters: output}
	return ret, nil
}

// DecodeResult converts a query result into the tagged response messages.
// Message kinds other than text, end interaction and tool call decode to Unsupported.
func DecodeResult(qr *cxpb.QueryResult) *dialogue.Response {
	ret := &dialogue.Response{Raw: map[string]any{}}
	if qr == nil {
		return ret
	}
	ret.Raw = normalize.Map(qr)
	if gen, ok := ret.Raw["generative_info"].(map[string]any); ok {
		ret.Generative = gen
	}

	for _, m := range qr.GetResponseMessages() {
		switch {
		case m.GetToolCall() != nil:
			tc := m.GetToolCall()
			ret.Messages = append(ret.Messages, dialogue.ToolCall{
				Tool:   tc.GetTool(),
				Action: tc.GetAction(),
				Input:  normalize.Map(tc.GetInputParameters()),
			})
		case m.GetEndInteraction() != nil:
			ret.Messages = append(ret.Messages, dialogue.EndInteraction{})
		case m.GetText() != nil:
			ret.Messages = append(ret.Messages, dialogue.Text{Alternatives: m.GetText().GetText()})
		default:
			raw := normalize.Map(m)
			log.Debug().Interface("message", raw).Msg("unsupported response message")
			ret.Messages = append(ret.Messages, dialogue.Unsupported{Raw: raw})
		}
	}
	return ret
}
