package toolexport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tools = []go_openai.Tool{
	{
		Type: go_openai.ToolTypeFunction,
		Function: &go_openai.FunctionDefinition{
			Name:        "get_user_details",
			Description: "Get the details of a user.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": map[string]any{"type": "string", "description": "The user id"},
				},
				"required": []string{"user_id"},
			},
		},
	},
	{
		Type: go_openai.ToolTypeFunction,
		Function: &go_openai.FunctionDefinition{
			Name:        "think",
			Description: "Think out loud.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"thought":{"type":"string"}}}`),
		},
	},
	{Type: "retrieval"},
}

func TestBuild(t *testing.T) {
	docs, err := Build(tools)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "get_user_details", docs[0].DisplayName)
	assert.Equal(t, "Get the details of a user.", docs[0].Description)
	assert.Equal(t, "object", docs[0].InputSchema.Type)
	assert.Equal(t, []string{"user_id"}, docs[0].InputSchema.Required)
	prop, ok := docs[0].InputSchema.Properties.Get("user_id")
	require.True(t, ok)
	assert.Equal(t, "string", prop.Type)

	_, ok = docs[1].InputSchema.Properties.Get("thought")
	assert.True(t, ok)
}

func TestOutputSchemaIsFixed(t *testing.T) {
	docs, err := Build(tools)
	require.NoError(t, err)

	for _, d := range docs {
		b, err := json.Marshal(d.OutputSchema)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"object","properties":{"result":{"type":"string"}}}`, string(b))
	}
}

func TestWriteFile(t *testing.T) {
	docs, err := Build(tools[:1])
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), FileName("retail"))
	require.NoError(t, WriteFile(path, docs))
	assert.Equal(t, "retail_tools_info.txt", filepath.Base(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "get_user_details", out[0]["display_name"])
	assert.Contains(t, out[0], "input_schema")
	assert.Contains(t, out[0], "output_schema")
}

func TestBuild_InvalidParameters(t *testing.T) {
	_, err := Build([]go_openai.Tool{{
		Type:     go_openai.ToolTypeFunction,
		Function: &go_openai.FunctionDefinition{Name: "broken", Parameters: "not json"},
	}})
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	got, err := Filter(tools, "get_*")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "get_user_details", got[0].Function.Name)

	got, err = Filter(tools, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	ok, err := MatchName("*_details", "get_user_details")
	require.NoError(t, err)
	assert.True(t, ok)
}
