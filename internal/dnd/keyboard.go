package dnd

import (
	"fmt"

	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/pkg/cerr"
)

type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionLeft, DirectionRight, DirectionUp, DirectionDown:
		return d, nil
	}
	return "", cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown direction %q", s), nil).
		WithViolation("direction", "must be one of left, right, up, down")
}

// Nudge moves the hover highlight one step across the grid, the keyboard
// counterpart of pointer movement. Left and right walk the visible days, up
// and down walk the agent rows, and moving up from the first row reaches the
// bucket. Like Hover it never touches the store.
func (c *Controller) Nudge(dir Direction) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record("nudge", Outcome{Kind: OutcomeIgnored, Reason: "no drag in progress"})
	}
	m := grid.Build(c.store.Snapshot())
	next := nudgeTarget(m, c.currentTargetLocked(m), dir)
	c.session.HoverTargetID = next
	return Outcome{Kind: OutcomeHovered, TaskID: c.session.ActiveTaskID, TargetID: next}
}

// DropHovered drops on the highlighted target, or cancels when nothing is
// highlighted.
func (c *Controller) DropHovered() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.HoverTargetID == "" {
		taskID := c.session.ActiveTaskID
		c.endSession()
		return c.record("drop_hovered", Outcome{Kind: OutcomeCancelled, TaskID: taskID, Reason: "nothing highlighted"})
	}
	var target string
	if c.session != nil {
		target = c.session.HoverTargetID
	}
	return c.dropLocked("drop_hovered", target, droptarget.Data{})
}

// currentTargetLocked is the highlighted target, falling back to wherever
// the dragged task currently sits.
func (c *Controller) currentTargetLocked(m grid.Matrix) string {
	if id := c.session.HoverTargetID; id != "" {
		if _, _, ok := m.Locate(id); ok || id == droptarget.BucketID {
			return id
		}
	}
	if id, ok := m.LocateTask(c.session.ActiveTaskID); ok {
		return id
	}
	return droptarget.BucketID
}

func nudgeTarget(m grid.Matrix, from string, dir Direction) string {
	row, col, ok := m.Locate(from)
	if !ok {
		// From the bucket only down leads into the grid.
		if cell, ok := m.CellAt(0, 0); ok && dir == DirectionDown {
			return cell.TargetID
		}
		return droptarget.BucketID
	}
	switch dir {
	case DirectionLeft:
		col--
	case DirectionRight:
		col++
	case DirectionUp:
		if row == 0 {
			return droptarget.BucketID
		}
		row--
	case DirectionDown:
		row++
	}
	if cell, ok := m.CellAt(row, col); ok {
		return cell.TargetID
	}
	return from
}
