package selection

import (
	"fmt"
	"sync"
	"time"

	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/cerr"
)

// View is what the detail panel renders. Task is read from the store on
// every call, so it always reflects the latest commit.
type View struct {
	Open bool       `json:"open"`
	Task *task.Task `json:"task,omitempty"`
}

// Edit holds the detail panel fields. Nil fields keep their value.
type Edit struct {
	Title     *string    `json:"title,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Surface holds at most one selected task and whether the panel is open.
// A selection whose task disappears from the store is cleared.
type Surface struct {
	mu          sync.Mutex
	store       *board.Store
	taskID      string
	open        bool
	unsubscribe func()
}

func New(store *board.Store) *Surface {
	s := &Surface{store: store}
	s.unsubscribe = store.Subscribe(s.onChange)
	return s
}

// Close detaches the surface from the store.
func (s *Surface) Close() {
	s.unsubscribe()
}

func (s *Surface) onChange(c board.Change) {
	switch c.Type {
	case eventbus.EventTaskRemoved, eventbus.EventTasksReplaced:
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskID == "" {
		return
	}
	if _, ok := s.store.Task(s.taskID); !ok {
		s.taskID, s.open = "", false
	}
}

// Select replaces the selection with taskID and opens the panel.
func (s *Surface) Select(taskID string) (View, error) {
	t, ok := s.store.Task(taskID)
	if !ok {
		return View{}, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %q not found", taskID), nil)
	}
	s.mu.Lock()
	s.taskID, s.open = t.ID, true
	s.mu.Unlock()
	return View{Open: true, Task: t}, nil
}

// SetOpen shows or hides the panel without touching the selection.
func (s *Surface) SetOpen(open bool) View {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
	return s.Current()
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskID, s.open = "", false
}

func (s *Surface) Current() View {
	s.mu.Lock()
	id, open := s.taskID, s.open
	s.mu.Unlock()
	if id == "" {
		return View{Open: open}
	}
	t, ok := s.store.Task(id)
	if !ok {
		return View{Open: open}
	}
	return View{Open: open, Task: t}
}

// Save writes the edit to the selected task in one store update. An end
// before the start is refused.
func (s *Surface) Save(e Edit) (*task.Task, error) {
	s.mu.Lock()
	id := s.taskID
	s.mu.Unlock()
	if id == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "no task selected", nil)
	}
	current, ok := s.store.Task(id)
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %q not found", id), nil)
	}

	p := task.Patch{Title: e.Title, StartDate: e.StartDate, EndDate: e.EndDate}
	merged := p.Apply(current)
	if merged.StartDate != nil && merged.EndDate != nil && merged.EndDate.Before(*merged.StartDate) {
		return nil, cerr.NewError(cerr.InvalidArgument, "end date is before start date", nil).
			WithViolation("end_date", "must not be before start_date")
	}

	updated, err := s.store.UpdateTask(id, p)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %q not found", id), nil)
	}
	t, _ := s.store.Task(id)
	return t, nil
}
