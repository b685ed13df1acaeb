package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbhealth/internal/model"
)

func testCommands() []model.AdvisoryCommand {
	return []model.AdvisoryCommand{
		{ID: "c1", Action: "flush_query_cache", Priority: model.PriorityLow, TargetService: "mysql", Parameters: map[string]any{}, Rationale: "fragmented"},
		{ID: "c2", Action: "increase_buffer_pool", Priority: model.PriorityHigh, TargetService: "mysql", Parameters: map[string]any{"size": "2G"}, Rationale: "hit ratio low"},
		{ID: "c3", Action: "optimize_table", Priority: model.PriorityMedium, TargetService: "mysql", Parameters: map[string]any{}, Rationale: "free space"},
	}
}

func ids(commands []model.AdvisoryCommand) []string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		out = append(out, c.ID)
	}
	return out
}

func TestConsoleApprover_Answers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"all yes", "Y\nY\nY\n", []string{"c1", "c2", "c3"}},
		{"mixed case and spaces", " y \nn\nY\n", []string{"c1", "c3"}},
		{"invalid answers are re-asked", "maybe\nyes\nN\nY\nN\n", []string{"c2"}},
		{"input ends early", "Y\n", []string{"c1"}},
		{"last answer without newline", "N\nN\nY", []string{"c3"}},
		{"no input", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			a := NewConsoleApprover(strings.NewReader(tt.input), &out)

			approved, err := a.Approve(context.Background(), testCommands())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(approved))
		})
	}
}

func TestConsoleApprover_PrintsCommand(t *testing.T) {
	var out bytes.Buffer
	a := NewConsoleApprover(strings.NewReader("maybe\nN\nN\nN\n"), &out)

	_, err := a.Approve(context.Background(), testCommands())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Command ID: c2")
	assert.Contains(t, text, "Action: increase_buffer_pool")
	assert.Contains(t, text, `"size": "2G"`)
	assert.Contains(t, text, "Please enter Y or N.")
}

func TestConsoleApprover_NoCommands(t *testing.T) {
	var out bytes.Buffer
	approved, err := NewConsoleApprover(strings.NewReader(""), &out).Approve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, approved)
	assert.Contains(t, out.String(), "No optimization commands suggested.")
}

func TestConsoleApprover_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := NewConsoleApprover(strings.NewReader("Y\nY\nY\n"), &out).Approve(ctx, testCommands())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoAndNoopApprovers(t *testing.T) {
	approved, err := AutoApprover{}.Approve(context.Background(), testCommands())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(approved))

	approved, err = NoopApprover{}.Approve(context.Background(), testCommands())
	require.NoError(t, err)
	assert.Empty(t, approved)
}

func TestRecordExecutions(t *testing.T) {
	commands := testCommands()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	records := RecordExecutions(commands, commands[1:2], at)

	require.Len(t, records, 3)
	assert.Equal(t, model.ExecutionSkipped, records[0].Status)
	assert.Equal(t, model.ExecutionApproved, records[1].Status)
	assert.Equal(t, "increase_buffer_pool", records[1].Action)
	assert.Equal(t, model.ExecutionSkipped, records[2].Status)
	assert.Equal(t, at, records[2].DecidedAt)
}
