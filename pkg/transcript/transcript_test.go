package transcript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_AppendAndReset(t *testing.T) {
	tr := New()
	_, ok := tr.Last()
	assert.False(t, ok)

	tr.AppendText(RoleUser, "Hi, I need help")
	tr.AppendDetectIntentResult(map[string]any{"response_messages": []any{}})
	tr.AppendToolResult("order not found")

	require.Equal(t, 3, tr.Len())
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, Entry{Role: RoleTool, ToolResult: "order not found"}, last)

	assert.Len(t, tr.Tail(2), 2)
	assert.Len(t, tr.Tail(0), 3)
	assert.Len(t, tr.Tail(10), 3)

	entries := tr.Entries()
	entries[0].Content = "mutated"
	assert.Equal(t, "Hi, I need help", tr.Entries()[0].Content)

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

func TestRenderer_PlainOutput(t *testing.T) {
	tr := New()
	tr.AppendText(RoleSystem, "policy")
	tr.AppendText(RoleUser, "Hi")
	tr.AppendDetectIntentResult(map[string]any{"text": "How can I help?"})
	tr.AppendToolResult(`{"status": "ok"}`)

	var buf bytes.Buffer
	NewRenderer(&buf).RenderTranscript(tr, 0)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"system: policy",
		"user: Hi",
		`assistant: {"text":"How can I help?"}`,
		`tool: {"status": "ok"}`,
	}, lines)
}

func TestRenderer_LastN(t *testing.T) {
	tr := New()
	tr.AppendText(RoleUser, "one")
	tr.AppendText(RoleUser, "two")
	tr.AppendText(RoleUser, "three")

	var buf bytes.Buffer
	NewRenderer(&buf, WithColor(false)).RenderTranscript(tr, 2)
	assert.Equal(t, "user: two\nuser: three\n", buf.String())
}
