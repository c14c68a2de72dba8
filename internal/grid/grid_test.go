package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/task"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func TestVisibleDays(t *testing.T) {
	tests := []struct {
		name    string
		current time.Time
		view    board.ViewMode
		first   time.Time
		count   int
	}{
		{name: "week from a Tuesday", current: day(4, 29), view: board.ViewWeek, first: day(4, 28), count: 7},
		{name: "week from a Wednesday", current: day(4, 30).Add(9 * time.Hour), view: board.ViewWeek, first: day(4, 28), count: 7},
		{name: "week from a Monday", current: day(4, 28), view: board.ViewWeek, first: day(4, 28), count: 7},
		{name: "week from a Sunday", current: day(5, 4), view: board.ViewWeek, first: day(4, 28), count: 7},
		{name: "week across a month end", current: day(5, 1), view: board.ViewWeek, first: day(4, 28), count: 7},
		{name: "day", current: day(4, 29).Add(17 * time.Hour), view: board.ViewDay, first: day(4, 29), count: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := VisibleDays(tt.current, tt.view, time.UTC)
			require.Len(t, days, tt.count)
			assert.Equal(t, tt.first, days[0])
			if tt.view == board.ViewWeek {
				assert.Equal(t, time.Monday, days[0].Weekday())
			}
			for i := 1; i < len(days); i++ {
				assert.Equal(t, days[i-1].AddDate(0, 0, 1), days[i])
			}
		})
	}
}

func TestBuild(t *testing.T) {
	apr29, apr30, may6 := day(4, 29), day(4, 30), day(5, 6)
	snap := board.Snapshot{
		Agents: []agent.Agent{{ID: "1", Name: "Agent 1"}, {ID: "2", Name: "Agent 2"}},
		Tasks: []task.Task{
			{ID: "a", StartDate: &apr29, EndDate: &apr29, AgentID: "1"},
			{ID: "b", StartDate: &apr30, EndDate: &apr30, AgentID: "2"},
			{ID: "unassigned"},
			{ID: "orphan", StartDate: &apr29, EndDate: &apr29},
			{ID: "no-end", StartDate: &apr29, AgentID: "1"},
			{ID: "next-week", StartDate: &may6, EndDate: &may6, AgentID: "1"},
			{ID: "late", StartDate: ptrTime(apr29.Add(23 * time.Hour)), EndDate: &apr29, AgentID: "2"},
		},
		CurrentDate: apr29,
		View:        board.ViewWeek,
		Version:     9,
		Location:    time.UTC,
	}

	m := Build(snap)
	require.Len(t, m.Days, 7)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, uint64(9), m.Version)

	ids := func(ts []task.Task) []string {
		out := []string{}
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}

	// Monday is column 0, so the 29th is column 1.
	assert.Equal(t, []string{"a"}, ids(m.Rows[0].Cells[1].Tasks))
	assert.Equal(t, []string{"late"}, ids(m.Rows[1].Cells[1].Tasks))
	assert.Equal(t, []string{"b"}, ids(m.Rows[1].Cells[2].Tasks))
	assert.Equal(t, "cell-1__2025-04-29", m.Rows[0].Cells[1].TargetID)
	assert.Equal(t, []string{"unassigned", "orphan", "no-end"}, ids(m.Bucket.Tasks))
	assert.Equal(t, droptarget.BucketID, m.Bucket.TargetID)

	placed := 0
	for _, r := range m.Rows {
		for _, c := range r.Cells {
			placed += len(c.Tasks)
		}
	}
	assert.Equal(t, 3, placed, "next-week is off screen and placed nowhere")

	target, ok := m.LocateTask("a")
	require.True(t, ok)
	row, col, ok := m.Locate(target)
	require.True(t, ok)
	assert.Equal(t, 0, row)
	assert.Equal(t, 1, col)

	target, ok = m.LocateTask("orphan")
	require.True(t, ok)
	assert.Equal(t, droptarget.BucketID, target)
	_, _, ok = m.Locate(target)
	assert.False(t, ok)

	_, ok = m.CellAt(2, 0)
	assert.False(t, ok)
}

func TestBuild_DayView(t *testing.T) {
	apr29 := day(4, 29)
	m := Build(board.Snapshot{
		Agents:      []agent.Agent{{ID: "1"}},
		Tasks:       []task.Task{{ID: "a", StartDate: &apr29, EndDate: &apr29, AgentID: "1"}},
		CurrentDate: apr29,
		View:        board.ViewDay,
	})
	require.Len(t, m.Days, 1)
	require.Len(t, m.Rows[0].Cells, 1)
	assert.Len(t, m.Rows[0].Cells[0].Tasks, 1)
	assert.Empty(t, m.Bucket.Tasks)
}

func ptrTime(t time.Time) *time.Time { return &t }
