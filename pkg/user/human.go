package user

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tcnksm/go-input"
)

// Human asks a person on the terminal to play the user.
type Human struct {
	ui *input.UI
}

// NewHuman uses ui for prompting, or the default stdin/stdout UI when ui is nil.
func NewHuman(ui *input.UI) *Human {
	if ui == nil {
		ui = input.DefaultUI()
	}
	return &Human{ui: ui}
}

func (h *Human) Reset(ctx context.Context, instruction string) (string, error) {
	return h.ask(instruction)
}

func (h *Human) Step(ctx context.Context, content string) (string, error) {
	return h.ask(content)
}

func (h *Human) TotalCost() float64 {
	return 0
}

func (h *Human) ask(query string) (string, error) {
	answer, err := h.ui.Ask(query, &input.Options{
		HideOrder: true,
		Required:  false,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to read user input")
	}
	return answer, nil
}

var _ Simulator = (*Human)(nil)
