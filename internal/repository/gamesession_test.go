package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T {
	return &v
}

func TestUpdateGameSessionSetClause(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		params UpdateGameSessionParams
		clause string
		args   []string
	}{
		{
			name:   "empty",
			params: UpdateGameSessionParams{},
			clause: "updated_at = now()",
		},
		{
			name: "counters",
			params: UpdateGameSessionParams{
				Status:         ptr("running"),
				TotalFlips:     ptr(int32(3)),
				ElapsedSeconds: ptr(int32(9)),
			},
			clause: "updated_at = now(), status = @status, total_flips = @total_flips, elapsed_seconds = @elapsed_seconds",
			args:   []string{"status", "total_flips", "elapsed_seconds"},
		},
		{
			name: "clear times",
			params: UpdateGameSessionParams{
				Dimension:  ptr(int32(6)),
				State:      ptr([]byte{1}),
				ClearTimes: true,
			},
			clause: "updated_at = now(), dimension = @dimension, state = @state, started_at = NULL, ended_at = NULL",
			args:   []string{"dimension", "state"},
		},
		{
			name: "set start keeps end cleared",
			params: UpdateGameSessionParams{
				StartedAt:  &started,
				ClearTimes: true,
			},
			clause: "updated_at = now(), started_at = @started_at, ended_at = NULL",
			args:   []string{"started_at"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clause, args := test.params.SetClause()
			assert.Equal(t, test.clause, clause)
			assert.Len(t, args, len(test.args))
			for _, name := range test.args {
				assert.Contains(t, args, name)
			}
		})
	}
}
