package dialogue

import (
	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/normalize"
	"github.com/pkg/errors"
)

// ToolNameMap maps service tool identifiers to display names. It is fixed at construction.
type ToolNameMap struct {
	names map[string]string
}

func NewToolNameMap(tools []ToolInfo) ToolNameMap {
	names := make(map[string]string, len(tools))
	for _, t := range tools {
		names[t.Name] = t.DisplayName
	}
	return ToolNameMap{names: names}
}

func (m ToolNameMap) Lookup(tool string) (string, bool) {
	name, ok := m.names[tool]
	return name, ok
}

func (m ToolNameMap) Len() int {
	return len(m.names)
}

// Names returns a copy of the mapping.
func (m ToolNameMap) Names() map[string]string {
	ret := make(map[string]string, len(m.names))
	for k, v := range m.names {
		ret[k] = v
	}
	return ret
}

// Resolver turns service responses into environment actions and remembers the
// tool calls that still need a result.
type Resolver struct {
	tools   ToolNameMap
	pending *PendingCalls
}

func NewResolver(tools ToolNameMap, pending *PendingCalls) *Resolver {
	return &Resolver{tools: tools, pending: pending}
}

// Resolve maps the single response message of resp to an action.
func (r *Resolver) Resolve(resp *Response) (env.Action, error) {
	if resp == nil || len(resp.Messages) != 1 {
		n := 0
		if resp != nil {
			n = len(resp.Messages)
		}
		return env.Action{}, errors.Wrapf(ErrResponseMessageCount, "got %d", n)
	}

	switch m := resp.Messages[0].(type) {
	case Text:
		if len(m.Alternatives) == 0 {
			return env.Action{}, ErrEmptyText
		}
		return env.RespondAction(m.Alternatives[0]), nil

	case EndInteraction:
		return env.RespondAction(EndInteractionContent), nil

	case ToolCall:
		name, ok := r.tools.Lookup(m.Tool)
		if !ok {
			return env.Action{}, errors.Wrapf(ErrUnknownTool, "tool %q in response %v", m.Tool, resp.Raw)
		}
		if err := r.pending.Push(m); err != nil {
			return env.Action{}, err
		}
		return env.Action{Name: name, Arguments: normalize.Map(m.Input)}, nil

	case Unsupported:
		return env.Action{}, errors.Errorf("unsupported response message %v", m.Raw)

	default:
		return env.Action{}, errors.Errorf("unsupported response message %T", m)
	}
}
