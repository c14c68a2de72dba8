package dnd

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/task"
)

// Phase is the controller's coarse state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDragging Phase = "dragging"
)

// Session is the ephemeral record of one drag. It exists only between
// BeginDrag and the terminal event.
type Session struct {
	ActiveTaskID  string     `json:"active_task_id"`
	OriginAgentID string     `json:"origin_agent_id,omitempty"`
	OriginDate    *time.Time `json:"origin_date,omitempty"`
	HoverTargetID string     `json:"hover_target_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
}

// State is a snapshot of the controller. Session is nil while idle.
type State struct {
	Phase   Phase    `json:"phase"`
	Session *Session `json:"session,omitempty"`
}

type OutcomeKind string

const (
	OutcomeStarted   OutcomeKind = "started"
	OutcomeHovered   OutcomeKind = "hovered"
	OutcomeCommitted OutcomeKind = "committed"
	OutcomeCancelled OutcomeKind = "cancelled"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomeIgnored   OutcomeKind = "ignored"
)

// Outcome reports what an event did. Interaction failures are outcomes,
// not errors.
type Outcome struct {
	Kind     OutcomeKind     `json:"kind"`
	TaskID   string          `json:"task_id,omitempty"`
	TargetID string          `json:"target_id,omitempty"`
	Target   droptarget.Kind `json:"target,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

// Controller is the drag state machine: Idle, or Dragging one task. Every
// successful drop is exactly one Store.UpdateTask call; cancels and
// unresolved drops make none.
type Controller struct {
	mu       sync.Mutex
	store    *board.Store
	resolver *droptarget.Resolver
	metrics  *Metrics
	now      func() time.Time
	session  *Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records drag outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController returns an idle controller that commits drops to store.
func NewController(store *board.Store, resolver *droptarget.Resolver, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	if c.session == nil {
		return State{Phase: PhaseIdle}
	}
	s := *c.session
	if s.OriginDate != nil {
		d := *s.OriginDate
		s.OriginDate = &d
	}
	return State{Phase: PhaseDragging, Session: &s}
}

// BeginDrag opens a session for taskID. It only works from Idle and only for
// a task the store knows.
func (c *Controller) BeginDrag(taskID string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.record("begin", Outcome{Kind: OutcomeIgnored, TaskID: taskID, Reason: "a drag is already in progress"})
	}
	t, ok := c.store.Task(taskID)
	if !ok {
		return c.record("begin", Outcome{Kind: OutcomeIgnored, TaskID: taskID, Reason: "task not found"})
	}
	c.session = &Session{
		ActiveTaskID:  t.ID,
		OriginAgentID: t.AgentID,
		OriginDate:    t.StartDate,
		StartedAt:     c.now(),
	}
	c.metrics.sessionStarted()
	return c.record("begin", Outcome{Kind: OutcomeStarted, TaskID: t.ID})
}

// Hover only moves the highlight. Repeating it with the same id changes
// nothing.
func (c *Controller) Hover(targetID string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record("hover", Outcome{Kind: OutcomeIgnored, TargetID: targetID, Reason: "no drag in progress"})
	}
	c.session.HoverTargetID = targetID
	return Outcome{Kind: OutcomeHovered, TaskID: c.session.ActiveTaskID, TargetID: targetID}
}

// Drop ends the drag over targetID and commits the move it resolves to.
func (c *Controller) Drop(targetID string, data droptarget.Data) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked("drop", targetID, data)
}

// CancelDrop ends the drag without a target.
func (c *Controller) CancelDrop() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return c.record("cancel", Outcome{Kind: OutcomeIgnored, Reason: "no drag in progress"})
	}
	taskID := c.session.ActiveTaskID
	c.endSession()
	return c.record("cancel", Outcome{Kind: OutcomeCancelled, TaskID: taskID, Reason: "dropped outside any target"})
}

func (c *Controller) dropLocked(event, targetID string, data droptarget.Data) Outcome {
	if c.session == nil {
		return c.record(event, Outcome{Kind: OutcomeIgnored, TargetID: targetID, Reason: "no drag in progress"})
	}
	taskID := c.session.ActiveTaskID
	c.endSession()

	out := Outcome{TaskID: taskID, TargetID: targetID}
	var patch task.Patch
	switch target := c.resolver.Resolve(targetID, data).(type) {
	case droptarget.CellTarget:
		out.Target = droptarget.KindCell
		if !c.store.HasAgent(target.AgentID) {
			out.Kind, out.Reason = OutcomeRejected, "agent not found"
			return c.record(event, out)
		}
		date := target.Date
		patch = task.Patch{StartDate: &date, EndDate: &date, AgentID: &target.AgentID}
	case droptarget.BucketTarget:
		out.Target = droptarget.KindBucket
		unassigned := ""
		patch = task.Patch{ClearDates: true, AgentID: &unassigned}
	case droptarget.Unresolved:
		out.Target = droptarget.KindUnresolved
		out.Kind, out.Reason = OutcomeCancelled, target.Reason
		return c.record(event, out)
	}

	updated, err := c.store.UpdateTask(taskID, patch)
	switch {
	case err != nil:
		// The agent can vanish between the check above and the commit.
		out.Kind, out.Reason = OutcomeRejected, err.Error()
	case !updated:
		out.Kind, out.Reason = OutcomeIgnored, "task no longer exists"
	default:
		out.Kind = OutcomeCommitted
	}
	return c.record(event, out)
}

func (c *Controller) endSession() {
	c.metrics.sessionEnded(c.now().Sub(c.session.StartedAt))
	c.session = nil
}

func (c *Controller) record(event string, o Outcome) Outcome {
	c.metrics.observeEvent(event, o)
	slog.Debug("drag event",
		"event", event,
		"outcome", o.Kind,
		"task_id", o.TaskID,
		"target_id", o.TargetID,
		"reason", o.Reason,
	)
	return o
}
