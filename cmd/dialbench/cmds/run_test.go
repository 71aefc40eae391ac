package cmds

import (
	"bytes"
	"testing"

	"github.com/go-go-golems/dialbench/pkg/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskIndices(t *testing.T) {
	got, err := taskIndices(0, -1, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)

	got, err = taskIndices(1, 2, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)

	got, err = taskIndices(0, 10, nil, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = taskIndices(0, -1, []int{2, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, got)

	_, err = taskIndices(0, -1, []int{5}, 3)
	assert.Error(t, err)
	_, err = taskIndices(3, 1, nil, 3)
	assert.Error(t, err)
}

func TestRunSummary(t *testing.T) {
	s := &runSummary{}
	s.add(&agent.Result{Reward: 1, TotalCost: 0.5, Info: map[string]any{}})
	s.add(&agent.Result{Reward: 0, TotalCost: 0.25, Info: map[string]any{"error": "boom"}})
	s.failed++

	var buf bytes.Buffer
	s.print(&buf)
	assert.Equal(t, "tasks: 2, failed: 1, agent errors: 1, average reward: 0.500, total cost: $0.7500\n", buf.String())

	buf.Reset()
	printResult(&buf, 4, &agent.Result{Reward: 0, Info: map[string]any{"error": "boom"}})
	assert.Contains(t, buf.String(), "task 4: reward 0.0, cost $0.0000 (error: boom)")
}
