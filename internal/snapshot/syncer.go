package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/cerr"
)

const retryInterval = 5 * time.Second

// Syncer writes committed board changes back to the repositories. It
// observes the store directly and keeps a set of dirty ids, so no commit is
// lost however far storage falls behind. Ids are synced from the store's
// state at flush time, so a burst of changes to one task costs one write.
type Syncer struct {
	store     *board.Store
	agentRepo agent.Repository
	taskRepo  task.Repository

	mu          sync.Mutex
	dirtyAgents map[string]struct{}
	dirtyTasks  map[string]struct{}
	allTasks    bool

	wake        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// NewSyncer starts observing store immediately. Changes committed before
// Start are flushed once it runs.
func NewSyncer(store *board.Store, agentRepo agent.Repository, taskRepo task.Repository) *Syncer {
	s := &Syncer{
		store:       store,
		agentRepo:   agentRepo,
		taskRepo:    taskRepo,
		dirtyAgents: make(map[string]struct{}),
		dirtyTasks:  make(map[string]struct{}),
		wake:        make(chan struct{}, 1),
	}
	s.unsubscribe = store.Subscribe(s.Observe)
	return s
}

// Start flushes on every change and blocks until ctx is cancelled. Failed
// writes stay dirty and are retried.
func (s *Syncer) Start(ctx context.Context) error {
	defer s.Close()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	slog.Info("syncer started")
	s.Flush(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("syncer stopped")
			return nil
		case <-s.wake:
			s.Flush(ctx)
		case <-ticker.C:
			if s.Pending() {
				s.Flush(ctx)
			}
		}
	}
}

// Close stops observing the store.
func (s *Syncer) Close() {
	s.closeOnce.Do(s.unsubscribe)
}

// Observe marks the ids a change touched. It runs inside the store's
// commit, so it only records and never blocks.
func (s *Syncer) Observe(c board.Change) {
	s.mu.Lock()
	switch c.Type {
	case eventbus.EventAgentAdded, eventbus.EventAgentRemoved:
		s.dirtyAgents[c.ResourceID] = struct{}{}
		for _, id := range c.TaskIDs {
			s.dirtyTasks[id] = struct{}{}
		}
	case eventbus.EventTaskAdded, eventbus.EventTaskUpdated, eventbus.EventTaskRemoved:
		s.dirtyTasks[c.ResourceID] = struct{}{}
	case eventbus.EventTasksReplaced:
		s.allTasks = true
		clear(s.dirtyTasks)
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether any change is waiting to be written.
func (s *Syncer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allTasks || len(s.dirtyAgents) > 0 || len(s.dirtyTasks) > 0
}

// Flush writes every dirty id. Ids that fail are marked dirty again.
func (s *Syncer) Flush(ctx context.Context) {
	s.mu.Lock()
	agents, tasks, all := s.dirtyAgents, s.dirtyTasks, s.allTasks
	s.dirtyAgents = make(map[string]struct{})
	s.dirtyTasks = make(map[string]struct{})
	s.allTasks = false
	s.mu.Unlock()

	var failedAgents, failedTasks []string
	for id := range agents {
		if err := s.syncAgent(ctx, id); err != nil {
			slog.Error("syncer: failed to sync agent", "agent_id", id, "error", err)
			failedAgents = append(failedAgents, id)
		}
	}
	failedAll := false
	if all {
		if err := s.syncAllTasks(ctx); err != nil {
			slog.Error("syncer: failed to sync all tasks", "error", err)
			failedAll = true
		}
	} else {
		for id := range tasks {
			if err := s.syncTask(ctx, id); err != nil {
				slog.Error("syncer: failed to sync task", "task_id", id, "error", err)
				failedTasks = append(failedTasks, id)
			}
		}
	}

	if len(failedAgents) == 0 && len(failedTasks) == 0 && !failedAll {
		return
	}
	s.mu.Lock()
	for _, id := range failedAgents {
		s.dirtyAgents[id] = struct{}{}
	}
	for _, id := range failedTasks {
		s.dirtyTasks[id] = struct{}{}
	}
	s.allTasks = s.allTasks || failedAll
	s.mu.Unlock()
}

func (s *Syncer) syncAgent(ctx context.Context, id string) error {
	a, ok := s.store.Agent(id)
	if !ok {
		return ignoreNotFound(s.agentRepo.Delete(ctx, id))
	}
	err := s.agentRepo.Create(ctx, &a)
	if cerr.IsCode(err, cerr.AlreadyExists) {
		return s.agentRepo.Update(ctx, &a)
	}
	return err
}

func (s *Syncer) syncTask(ctx context.Context, id string) error {
	t, ok := s.store.Task(id)
	if !ok {
		return ignoreNotFound(s.taskRepo.Delete(ctx, id))
	}
	err := s.taskRepo.Create(ctx, t)
	if cerr.IsCode(err, cerr.AlreadyExists) {
		return s.taskRepo.Update(ctx, t)
	}
	return err
}

func (s *Syncer) syncAllTasks(ctx context.Context) error {
	stored, err := s.taskRepo.List(ctx)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot()
	live := make(map[string]struct{}, len(snap.Tasks))
	for _, t := range snap.Tasks {
		live[t.ID] = struct{}{}
		if err := s.syncTask(ctx, t.ID); err != nil {
			return err
		}
	}
	for _, t := range stored {
		if _, ok := live[t.ID]; ok {
			continue
		}
		if err := ignoreNotFound(s.taskRepo.Delete(ctx, t.ID)); err != nil {
			return err
		}
	}
	return nil
}

func ignoreNotFound(err error) error {
	if cerr.IsCode(err, cerr.NotFound) {
		return nil
	}
	return err
}
