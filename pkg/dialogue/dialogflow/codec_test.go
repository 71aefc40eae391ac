package dialogflow

import (
	"testing"

	"cloud.google.com/go/dialogflow/cx/apiv3beta1/cxpb"
	"github.com/go-go-golems/dialbench/pkg/dialogue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEncodeRequest_Text(t *testing.T) {
	req, err := EncodeRequest(&dialogue.Request{
		Session:      "projects/p/locations/global/agents/a/sessions/s1",
		LanguageCode: "en",
		Text:         "I want to return an item",
	})
	require.NoError(t, err)

	assert.Equal(t, "projects/p/locations/global/agents/a/sessions/s1", req.GetSession())
	assert.Equal(t, "en", req.GetQueryInput().GetLanguageCode())
	assert.Equal(t, "I want to return an item", req.GetQueryInput().GetText().GetText())
	assert.Nil(t, req.GetQueryInput().GetToolCallResult())
}

func TestEncodeRequest_ToolOutput(t *testing.T) {
	req, err := EncodeRequest(&dialogue.Request{
		Session:      "s",
		LanguageCode: "en",
		ToolResult: &dialogue.ToolResult{
			Tool:   "tools/t1",
			Action: "get_order_details",
			Output: map[string]any{"result": `{"order_id": "#W1"}`},
		},
	})
	require.NoError(t, err)

	tcr := req.GetQueryInput().GetToolCallResult()
	require.NotNil(t, tcr)
	assert.Equal(t, "tools/t1", tcr.GetTool())
	assert.Equal(t, "get_order_details", tcr.GetAction())
	assert.Nil(t, tcr.GetError())
	assert.Equal(t, `{"order_id": "#W1"}`, tcr.GetOutputParameters().GetFields()["result"].GetStringValue())
}

func TestEncodeRequest_ToolError(t *testing.T) {
	req, err := EncodeRequest(&dialogue.Request{
		Session: "s",
		ToolResult: &dialogue.ToolResult{
			Tool:   "tools/t1",
			Action: "get_order_details",
			Error:  &dialogue.ToolError{Message: "Error: order not found"},
		},
	})
	require.NoError(t, err)

	tcr := req.GetQueryInput().GetToolCallResult()
	require.NotNil(t, tcr)
	assert.Equal(t, "Error: order not found", tcr.GetError().GetMessage())
	assert.Nil(t, tcr.GetOutputParameters())
}

func TestEncodeRequest_MissingSession(t *testing.T) {
	_, err := EncodeRequest(&dialogue.Request{Text: "hi"})
	assert.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	input, err := structpb.NewStruct(map[string]any{
		"order_id": "#W123",
		"items":    []any{"a", "b"},
	})
	require.NoError(t, err)

	qr := &cxpb.QueryResult{
		ResponseMessages: []*cxpb.ResponseMessage{
			{Message: &cxpb.ResponseMessage_Text_{Text: &cxpb.ResponseMessage_Text{Text: []string{"hello"}}}},
			{Message: &cxpb.ResponseMessage_EndInteraction_{EndInteraction: &cxpb.ResponseMessage_EndInteraction{}}},
			{Message: &cxpb.ResponseMessage_ToolCall{ToolCall: &cxpb.ToolCall{
				Tool:            "tools/t1",
				Action:          "get_order_details",
				InputParameters: input,
			}}},
			{Message: &cxpb.ResponseMessage_Payload{Payload: &structpb.Struct{}}},
		},
	}

	resp := DecodeResult(qr)
	require.Len(t, resp.Messages, 4)
	assert.Equal(t, dialogue.Text{Alternatives: []string{"hello"}}, resp.Messages[0])
	assert.Equal(t, dialogue.EndInteraction{}, resp.Messages[1])
	assert.Equal(t, dialogue.ToolCall{
		Tool:   "tools/t1",
		Action: "get_order_details",
		Input:  map[string]any{"order_id": "#W123", "items": []any{"a", "b"}},
	}, resp.Messages[2])
	assert.IsType(t, dialogue.Unsupported{}, resp.Messages[3])

	msgs, ok := resp.Raw["response_messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 4)
	assert.Nil(t, resp.Generative)
}

func TestDecodeResult_Nil(t *testing.T) {
	resp := DecodeResult(nil)
	assert.Empty(t, resp.Messages)
	assert.NotNil(t, resp.Raw)
}

func TestConfig_AgentName(t *testing.T) {
	c := DefaultConfig()
	c.ProjectID = "proj"
	c.AgentID = "agent"
	assert.Equal(t, "projects/proj/locations/global/agents/agent", c.AgentName())
	assert.NoError(t, c.Validate())
	assert.Len(t, c.clientOptions(), 0)

	c.Location = "us-central1"
	c.CredentialsFile = "/tmp/creds.json"
	assert.Equal(t, "projects/proj/locations/us-central1/agents/agent", c.AgentName())
	assert.Len(t, c.clientOptions(), 2)

	assert.Error(t, Config{AgentID: "a"}.Validate())
	assert.Error(t, Config{ProjectID: "p"}.Validate())
}
