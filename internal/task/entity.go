package task

import (
	"time"

	"github.com/kazz187/agentcal/pkg/cerr"
)

// Task is a single-day work item. A nil date or an empty AgentID leaves the
// task in the unassigned bucket.
type Task struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	StartDate *time.Time `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate   *time.Time `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	AgentID   string     `yaml:"agent_id,omitempty" json:"agent_id,omitempty"`
}

// IsAssigned reports whether the task belongs in a grid cell.
func (t *Task) IsAssigned() bool {
	return t.AgentID != "" && t.StartDate != nil && t.EndDate != nil
}

func (t *Task) Clone() *Task {
	c := *t
	c.StartDate = cloneTime(t.StartDate)
	c.EndDate = cloneTime(t.EndDate)
	return &c
}

// Patch is a shallow partial update. Nil fields are left untouched.
// An AgentID pointing at "" unassigns the task and ClearDates removes both
// dates.
type Patch struct {
	Title      *string    `json:"title,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	AgentID    *string    `json:"agent_id,omitempty"`
	ClearDates bool       `json:"clear_dates,omitempty"`
}

func (p Patch) Validate() error {
	if p.ClearDates && (p.StartDate != nil || p.EndDate != nil) {
		return cerr.NewError(cerr.InvalidArgument, "invalid patch", nil).
			WithViolation("clear_dates", "cannot be combined with start_date or end_date")
	}
	return nil
}

// Apply returns a copy of t with the patch merged in. t is not modified.
func (p Patch) Apply(t *Task) *Task {
	n := t.Clone()
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.ClearDates {
		n.StartDate = nil
		n.EndDate = nil
	}
	if p.StartDate != nil {
		n.StartDate = cloneTime(p.StartDate)
	}
	if p.EndDate != nil {
		n.EndDate = cloneTime(p.EndDate)
	}
	if p.AgentID != nil {
		n.AgentID = *p.AgentID
	}
	return n
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
