package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentcal/pkg/cerr"
)

func ptr[T any](v T) *T { return &v }

func TestTask_IsAssigned(t *testing.T) {
	day := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "fully assigned", task: Task{AgentID: "1", StartDate: &day, EndDate: &day}, want: true},
		{name: "no agent", task: Task{StartDate: &day, EndDate: &day}},
		{name: "no dates", task: Task{AgentID: "1"}},
		{name: "missing end", task: Task{AgentID: "1", StartDate: &day}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsAssigned())
		})
	}
}

func TestPatch_Apply(t *testing.T) {
	day := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	next := day.AddDate(0, 0, 1)
	base := &Task{ID: "t1", Title: "Task 1", StartDate: &day, EndDate: &day, AgentID: "1"}

	tests := []struct {
		name  string
		patch Patch
		want  *Task
	}{
		{
			name:  "empty patch keeps everything",
			patch: Patch{},
			want:  &Task{ID: "t1", Title: "Task 1", StartDate: &day, EndDate: &day, AgentID: "1"},
		},
		{
			name:  "title only",
			patch: Patch{Title: ptr("Renamed")},
			want:  &Task{ID: "t1", Title: "Renamed", StartDate: &day, EndDate: &day, AgentID: "1"},
		},
		{
			name:  "move to another cell",
			patch: Patch{StartDate: &next, EndDate: &next, AgentID: ptr("2")},
			want:  &Task{ID: "t1", Title: "Task 1", StartDate: &next, EndDate: &next, AgentID: "2"},
		},
		{
			name:  "unassign",
			patch: Patch{ClearDates: true, AgentID: ptr("")},
			want:  &Task{ID: "t1", Title: "Task 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.patch.Apply(base)
			assert.Equal(t, tt.want, got)
		})
	}

	// The receiver is never modified.
	assert.Equal(t, "1", base.AgentID)
	assert.Equal(t, day, *base.StartDate)
}

func TestPatch_ApplyDoesNotAlias(t *testing.T) {
	day := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	p := Patch{StartDate: &day, EndDate: &day}
	got := p.Apply(&Task{ID: "t1"})
	day = day.AddDate(1, 0, 0)
	assert.Equal(t, 2025, got.StartDate.Year())
}

func TestPatch_Validate(t *testing.T) {
	day := time.Now()
	require.NoError(t, Patch{ClearDates: true}.Validate())
	err := Patch{ClearDates: true, StartDate: &day}.Validate()
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}
