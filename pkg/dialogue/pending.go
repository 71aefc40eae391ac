package dialogue

import (
	"github.com/pkg/errors"
)

// PendingCalls holds tool calls whose results have not been relayed yet.
// Calls are popped last-in-first-out. A positive capacity bounds the number of
// outstanding calls; capacity 1 makes it a single slot.
type PendingCalls struct {
	capacity int
	calls    []ToolCall
}

// NewPendingCalls creates a queue; capacity <= 0 means unbounded.
func NewPendingCalls(capacity int) *PendingCalls {
	return &PendingCalls{capacity: capacity}
}

func (p *PendingCalls) Push(c ToolCall) error {
	if p.capacity > 0 && len(p.calls) >= p.capacity {
		return errors.Wrapf(ErrPendingCallOverflow, "tool %s, %d already pending", c.Tool, len(p.calls))
	}
	p.calls = append(p.calls, c)
	return nil
}

func (p *PendingCalls) Pop() (ToolCall, bool) {
	if len(p.calls) == 0 {
		return ToolCall{}, false
	}
	c := p.calls[len(p.calls)-1]
	p.calls = p.calls[:len(p.calls)-1]
	return c, true
}

func (p *PendingCalls) Len() int {
	return len(p.calls)
}

func (p *PendingCalls) Reset() {
	p.calls = nil
}
