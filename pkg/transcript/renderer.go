package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var roleColors = map[Role]lipgloss.Color{
	RoleSystem:    lipgloss.Color("1"),
	RoleUser:      lipgloss.Color("2"),
	RoleAssistant: lipgloss.Color("4"),
	RoleTool:      lipgloss.Color("5"),
}

// Renderer prints transcript entries, one "<role>: <payload>" line each.
type Renderer struct {
	w      io.Writer
	color  bool
	styles map[Role]lipgloss.Style
}

type RendererOption func(*Renderer)

// WithColor forces color on or off regardless of the writer.
func WithColor(color bool) RendererOption {
	return func(r *Renderer) { r.color = color }
}

// NewRenderer enables color when w is a terminal.
func NewRenderer(w io.Writer, opts ...RendererOption) *Renderer {
	r := &Renderer{w: w, styles: map[Role]lipgloss.Style{}}
	if f, ok := w.(*os.File); ok {
		r.color = isatty.IsTerminal(f.Fd())
	}
	for _, opt := range opts {
		opt(r)
	}
	for role, c := range roleColors {
		r.styles[role] = lipgloss.NewStyle().Foreground(c)
	}
	return r
}

func (r *Renderer) Render(entries []Entry) {
	for _, e := range entries {
		line := fmt.Sprintf("%s: %s", e.Role, payload(e))
		if style, ok := r.styles[e.Role]; ok && r.color {
			line = style.Render(line)
		}
		fmt.Fprintln(r.w, line)
	}
}

// RenderTranscript renders the last n entries of t, or all of them when n <= 0.
func (r *Renderer) RenderTranscript(t *Transcript, n int) {
	r.Render(t.Tail(n))
}

func payload(e Entry) string {
	switch {
	case e.DetectIntentResult != nil:
		return toOneLineJSON(e.DetectIntentResult)
	case e.ToolResult != "":
		return e.ToolResult
	default:
		return e.Content
	}
}

func toOneLineJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
