// Package transcript records and renders the turns of a benchmark conversation.
package transcript

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Entry is one record of a conversation. Exactly one payload field is set:
// Content for text, ToolResult for tool observations, DetectIntentResult for the
// normalized response of the dialogue service.
type Entry struct {
	Role               Role           `json:"role" yaml:"role"`
	Content            string         `json:"content,omitempty" yaml:"content,omitempty"`
	ToolResult         string         `json:"tool_result,omitempty" yaml:"tool_result,omitempty"`
	DetectIntentResult map[string]any `json:"detect_intent_result,omitempty" yaml:"detect_intent_result,omitempty"`
}

// Transcript is append-only for the duration of a conversation.
type Transcript struct {
	entries []Entry
}

func New() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(e Entry) {
	t.entries = append(t.entries, e)
}

func (t *Transcript) AppendText(role Role, content string) {
	t.Append(Entry{Role: role, Content: content})
}

func (t *Transcript) AppendToolResult(result string) {
	t.Append(Entry{Role: RoleTool, ToolResult: result})
}

func (t *Transcript) AppendDetectIntentResult(result map[string]any) {
	t.Append(Entry{Role: RoleAssistant, DetectIntentResult: result})
}

// Last returns the most recent entry.
func (t *Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

func (t *Transcript) Len() int {
	return len(t.entries)
}

// Entries returns a copy of all entries.
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Tail returns a copy of the last n entries; n <= 0 returns everything.
func (t *Transcript) Tail(n int) []Entry {
	if n <= 0 || n >= len(t.entries) {
		return t.Entries()
	}
	return append([]Entry(nil), t.entries[len(t.entries)-n:]...)
}

func (t *Transcript) Reset() {
	t.entries = nil
}
