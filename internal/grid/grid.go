package grid

import (
	"slices"
	"time"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/calendar"
	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/task"
)

// VisibleDays returns the days shown for view around current: the
// Monday-start week containing it, or current alone.
func VisibleDays(current time.Time, view board.ViewMode, loc *time.Location) []time.Time {
	day := calendar.StartOfDay(current, loc)
	if view != board.ViewWeek {
		return []time.Time{day}
	}
	// Weekday counts from Sunday.
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

type Cell struct {
	AgentID  string      `json:"agent_id"`
	Date     time.Time   `json:"date"`
	TargetID string      `json:"target_id"`
	Tasks    []task.Task `json:"tasks"`
}

type Row struct {
	Agent agent.Agent `json:"agent"`
	Cells []Cell      `json:"cells"`
}

type Bucket struct {
	TargetID string      `json:"target_id"`
	Tasks    []task.Task `json:"tasks"`
}

// Matrix is the agent by day grid for one board version.
type Matrix struct {
	View        board.ViewMode `json:"view"`
	CurrentDate time.Time      `json:"current_date"`
	Days        []time.Time    `json:"days"`
	Rows        []Row          `json:"rows"`
	Bucket      Bucket         `json:"bucket"`
	Version     uint64         `json:"version"`
}

// Build derives the matrix from a snapshot. Assigned tasks land in the cell
// of their agent and start day; tasks without an agent or without both
// dates land in the bucket. Assigned tasks outside the visible days are not
// placed anywhere.
func Build(snap board.Snapshot) Matrix {
	loc := snap.Location
	if loc == nil {
		loc = time.UTC
	}
	days := VisibleDays(snap.CurrentDate, snap.View, loc)
	m := Matrix{
		View:        snap.View,
		CurrentDate: snap.CurrentDate,
		Days:        days,
		Rows:        make([]Row, 0, len(snap.Agents)),
		Bucket:      Bucket{TargetID: droptarget.BucketID, Tasks: []task.Task{}},
		Version:     snap.Version,
	}

	rowIndex := make(map[string]int, len(snap.Agents))
	for i, a := range snap.Agents {
		rowIndex[a.ID] = i
		row := Row{Agent: a, Cells: make([]Cell, len(days))}
		for j, d := range days {
			row.Cells[j] = Cell{
				AgentID:  a.ID,
				Date:     d,
				TargetID: droptarget.EncodeCell(a.ID, d),
				Tasks:    []task.Task{},
			}
		}
		m.Rows = append(m.Rows, row)
	}

	for _, t := range snap.Tasks {
		i, known := rowIndex[t.AgentID]
		if !t.IsAssigned() || !known {
			m.Bucket.Tasks = append(m.Bucket.Tasks, t)
			continue
		}
		j := slices.IndexFunc(days, func(d time.Time) bool { return calendar.SameDay(d, *t.StartDate, loc) })
		if j < 0 {
			continue
		}
		m.Rows[i].Cells[j].Tasks = append(m.Rows[i].Cells[j].Tasks, t)
	}
	return m
}

// CellAt returns the cell at (row, col), if both are in range.
func (m Matrix) CellAt(row, col int) (Cell, bool) {
	if row < 0 || row >= len(m.Rows) || col < 0 || col >= len(m.Days) {
		return Cell{}, false
	}
	return m.Rows[row].Cells[col], true
}

// Locate finds the cell whose target id is targetID. The bucket and unknown
// ids report false.
func (m Matrix) Locate(targetID string) (row, col int, ok bool) {
	for i, r := range m.Rows {
		for j, c := range r.Cells {
			if c.TargetID == targetID {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// LocateTask returns the target id currently holding the task.
func (m Matrix) LocateTask(taskID string) (string, bool) {
	has := func(ts []task.Task) bool {
		return slices.ContainsFunc(ts, func(t task.Task) bool { return t.ID == taskID })
	}
	if has(m.Bucket.Tasks) {
		return m.Bucket.TargetID, true
	}
	for _, r := range m.Rows {
		for _, c := range r.Cells {
			if has(c.Tasks) {
				return c.TargetID, true
			}
		}
	}
	return "", false
}
