// Package agent defines the contract shared by the agents that can be evaluated
// against an environment.
package agent

import (
	"context"

	"github.com/go-go-golems/dialbench/pkg/env"
	"github.com/go-go-golems/dialbench/pkg/transcript"
)

// DefaultMaxTurns caps the number of agent turns per conversation.
const DefaultMaxTurns = 30

// Agent runs one whole conversation against e, starting from task index.
type Agent interface {
	Act(ctx context.Context, e env.Environment, index int) (*Result, error)
}

type Result struct {
	Reward    float64            `json:"reward" yaml:"reward"`
	Info      map[string]any     `json:"info" yaml:"info"`
	Messages  []transcript.Entry `json:"messages" yaml:"messages"`
	TotalCost float64            `json:"total_cost" yaml:"total_cost"`
}

// MergeInfo copies src into dst, later keys overriding earlier ones.
func MergeInfo(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// UserCost extracts the simulated user's cost that environments report under "user_cost".
func UserCost(info map[string]any) float64 {
	switch v := info["user_cost"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
