package board

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/calendar"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/panicerr"
)

// Change describes one committed mutation.
type Change struct {
	Type       eventbus.EventType
	ResourceID string
	// TaskIDs lists tasks touched as a side effect, e.g. unassigned by an
	// agent removal.
	TaskIDs []string
	Version uint64
}

// Observer is called synchronously after a mutation commits. Observers may
// read the store but must not mutate it.
type Observer func(Change)

type observerEntry struct {
	id uint64
	fn Observer
}

// Snapshot is a deep copy of the store state at one version.
type Snapshot struct {
	Agents      []agent.Agent  `json:"agents"`
	Tasks       []task.Task    `json:"tasks"`
	CurrentDate time.Time      `json:"current_date"`
	View        ViewMode       `json:"view"`
	Version     uint64         `json:"version"`
	Location    *time.Location `json:"-"`
}

// Store is the single owner of agents, tasks and the view state. Mutations
// are serialized; every reader sees either the state before or after a
// mutation, never a partial write.
type Store struct {
	// writeMu serializes mutations together with their notifications so
	// observers see changes in commit order.
	writeMu sync.Mutex
	mu      sync.RWMutex

	loc *time.Location
	now func() time.Time
	bus *eventbus.Bus

	agents      []*agent.Agent
	tasks       []*task.Task
	currentDate time.Time
	view        ViewMode
	version     uint64

	observers      []observerEntry
	nextObserverID uint64
}

type Option func(*Store)

func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		s.loc = loc
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

func WithView(v ViewMode) Option {
	return func(s *Store) {
		s.view = v
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		loc:  time.UTC,
		now:  time.Now,
		view: ViewWeek,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.currentDate = calendar.StartOfDay(s.now(), s.loc)
	return s
}

func (s *Store) Location() *time.Location {
	return s.loc
}

// Subscribe registers fn for every future commit. The returned function
// removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextObserverID++
	id := s.nextObserverID
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(e observerEntry) bool { return e.id == id })
	}
}

// commit runs mutate under the write lock. mutate reports whether state
// changed; only changes bump the version and reach observers.
func (s *Store) commit(mutate func() (*Change, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	change, err := mutate()
	if err != nil || change == nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	change.Version = s.version
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		if err := panicerr.Try(func() { o.fn(*change) }); err != nil {
			slog.Error("board observer panicked", "event", change.Type, "error", err)
		}
	}
	if s.bus != nil {
		var metadata map[string]string
		if len(change.TaskIDs) > 0 {
			metadata = map[string]string{"task_ids": strings.Join(change.TaskIDs, ",")}
		}
		s.bus.PublishNew(change.Type, change.ResourceID, change.Version, metadata)
	}
	return nil
}

func (s *Store) AddAgent(a agent.Agent) error {
	if a.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "agent id is required", nil).WithViolation("id", "must not be empty")
	}
	return s.commit(func() (*Change, error) {
		if s.agentIndex(a.ID) >= 0 {
			return nil, cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("agent %q already exists", a.ID), nil)
		}
		s.agents = append(s.agents, &a)
		return &Change{Type: eventbus.EventAgentAdded, ResourceID: a.ID}, nil
	})
}

// RemoveAgent deletes the agent and unassigns its tasks. Dates are kept, so
// those tasks land in the bucket with their old schedule. Removing an
// unknown agent is a no-op.
func (s *Store) RemoveAgent(id string) (bool, error) {
	removed := false
	err := s.commit(func() (*Change, error) {
		i := s.agentIndex(id)
		if i < 0 {
			return nil, nil
		}
		s.agents = slices.Delete(s.agents, i, i+1)
		var unassigned []string
		for j, t := range s.tasks {
			if t.AgentID != id {
				continue
			}
			n := t.Clone()
			n.AgentID = ""
			s.tasks[j] = n
			unassigned = append(unassigned, n.ID)
		}
		removed = true
		return &Change{Type: eventbus.EventAgentRemoved, ResourceID: id, TaskIDs: unassigned}, nil
	})
	return removed, err
}

func (s *Store) AddTask(t task.Task) error {
	if t.ID == "" {
		return cerr.NewError(cerr.InvalidArgument, "task id is required", nil).WithViolation("id", "must not be empty")
	}
	n := t.Clone()
	return s.commit(func() (*Change, error) {
		if s.taskIndex(n.ID) >= 0 {
			return nil, cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("task %q already exists", n.ID), nil)
		}
		if err := s.checkAgentRef(n.AgentID); err != nil {
			return nil, err
		}
		s.tasks = append(s.tasks, n)
		return &Change{Type: eventbus.EventTaskAdded, ResourceID: n.ID}, nil
	})
}

// UpdateTask merges p into the task in a single commit. A missing task is
// not an error: it reports false and leaves the store untouched.
func (s *Store) UpdateTask(id string, p task.Patch) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	updated := false
	err := s.commit(func() (*Change, error) {
		i := s.taskIndex(id)
		if i < 0 {
			return nil, nil
		}
		if p.AgentID != nil {
			if err := s.checkAgentRef(*p.AgentID); err != nil {
				return nil, err
			}
		}
		s.tasks[i] = p.Apply(s.tasks[i])
		updated = true
		return &Change{Type: eventbus.EventTaskUpdated, ResourceID: id}, nil
	})
	return updated, err
}

// MoveTask schedules the task on agentID between start and end.
func (s *Store) MoveTask(id string, start, end time.Time, agentID string) (bool, error) {
	return s.UpdateTask(id, task.Patch{StartDate: &start, EndDate: &end, AgentID: &agentID})
}

func (s *Store) RemoveTask(id string) (bool, error) {
	removed := false
	err := s.commit(func() (*Change, error) {
		i := s.taskIndex(id)
		if i < 0 {
			return nil, nil
		}
		s.tasks = slices.Delete(s.tasks, i, i+1)
		removed = true
		return &Change{Type: eventbus.EventTaskRemoved, ResourceID: id}, nil
	})
	return removed, err
}

// SetInitialTasks replaces the whole task collection. Either every task is
// accepted or the store is left as it was.
func (s *Store) SetInitialTasks(tasks []task.Task) error {
	next := make([]*task.Task, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return cerr.NewError(cerr.InvalidArgument, "task id is required", nil).WithViolation("tasks.id", "must not be empty")
		}
		if _, ok := seen[t.ID]; ok {
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("task %q is listed twice", t.ID), nil)
		}
		seen[t.ID] = struct{}{}
		next = append(next, t.Clone())
	}
	return s.commit(func() (*Change, error) {
		for _, t := range next {
			if err := s.checkAgentRef(t.AgentID); err != nil {
				return nil, err
			}
		}
		s.tasks = next
		return &Change{Type: eventbus.EventTasksReplaced}, nil
	})
}

func (s *Store) SetView(v ViewMode) error {
	if _, err := ParseViewMode(string(v)); err != nil {
		return err
	}
	return s.commit(func() (*Change, error) {
		s.view = v
		return &Change{Type: eventbus.EventViewChanged, ResourceID: string(v)}, nil
	})
}

// SetCurrentDate moves the view window. The time of day is dropped.
func (s *Store) SetCurrentDate(d time.Time) error {
	day := calendar.StartOfDay(d, s.loc)
	return s.commit(func() (*Change, error) {
		s.currentDate = day
		return &Change{Type: eventbus.EventDateChanged, ResourceID: day.Format(time.DateOnly)}, nil
	})
}

// Previous moves the window back by one view step (a week or a day).
func (s *Store) Previous() error {
	return s.shiftDate(-1)
}

// Next moves the window forward by one view step.
func (s *Store) Next() error {
	return s.shiftDate(1)
}

func (s *Store) Today() error {
	return s.SetCurrentDate(s.now())
}

func (s *Store) shiftDate(dir int) error {
	return s.commit(func() (*Change, error) {
		s.currentDate = s.currentDate.AddDate(0, 0, dir*s.view.Step())
		return &Change{Type: eventbus.EventDateChanged, ResourceID: s.currentDate.Format(time.DateOnly)}, nil
	})
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Agents:      make([]agent.Agent, 0, len(s.agents)),
		Tasks:       make([]task.Task, 0, len(s.tasks)),
		CurrentDate: s.currentDate,
		View:        s.view,
		Version:     s.version,
		Location:    s.loc,
	}
	for _, a := range s.agents {
		snap.Agents = append(snap.Agents, *a)
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, *t.Clone())
	}
	return snap
}

func (s *Store) Task(id string) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.taskIndex(id)
	if i < 0 {
		return nil, false
	}
	return s.tasks[i].Clone(), true
}

func (s *Store) Agent(id string) (agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.agentIndex(id)
	if i < 0 {
		return agent.Agent{}, false
	}
	return *s.agents[i], true
}

func (s *Store) HasAgent(id string) bool {
	_, ok := s.Agent(id)
	return ok
}

func (s *Store) agentIndex(id string) int {
	return slices.IndexFunc(s.agents, func(a *agent.Agent) bool { return a.ID == id })
}

func (s *Store) taskIndex(id string) int {
	return slices.IndexFunc(s.tasks, func(t *task.Task) bool { return t.ID == id })
}

func (s *Store) checkAgentRef(id string) error {
	if id == "" || s.agentIndex(id) >= 0 {
		return nil
	}
	return cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf("agent %q does not exist", id), nil).
		WithViolation("agent_id", "must reference an existing agent")
}
