package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentcal/internal/agent"
	agentrepo "github.com/kazz187/agentcal/internal/agent/repositoryimpl"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/task"
	taskrepo "github.com/kazz187/agentcal/internal/task/repositoryimpl"
	"github.com/kazz187/agentcal/pkg/storage"
)

var apr29 = time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T) (storage.Storage, *agentrepo.YAMLRepository, *taskrepo.YAMLRepository) {
	t.Helper()
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	require.NoError(t, s.Write(ctx, "agents/1.yaml", []byte("id: \"1\"\nname: Agent 1\n")))
	require.NoError(t, s.Write(ctx, "agents/2.yaml", []byte("id: \"2\"\nname: Agent 2\n")))
	require.NoError(t, s.Write(ctx, "tasks/t1.yaml", []byte("id: t1\ntitle: Task 1\n")))
	require.NoError(t, s.Write(ctx, "tasks/t2.yaml", []byte("id: t2\ntitle: Task 2\nstart_date: 2025-04-29T00:00:00Z\nend_date: 2025-04-29T00:00:00Z\nagent_id: \"2\"\n")))
	require.NoError(t, s.Write(ctx, "tasks/t3.yaml", []byte("id: t3\ntitle: Task 3\nagent_id: \"999\"\n")))
	return s, agentrepo.NewYAMLRepository(s), taskrepo.NewYAMLRepository(s)
}

func TestLoad(t *testing.T) {
	_, agents, tasks := seed(t)
	store := board.NewStore()

	require.NoError(t, Load(context.Background(), store, agents, tasks))

	snap := store.Snapshot()
	assert.Equal(t, []agent.Agent{{ID: "1", Name: "Agent 1"}, {ID: "2", Name: "Agent 2"}}, snap.Agents)
	require.Len(t, snap.Tasks, 3)

	t2, ok := store.Task("t2")
	require.True(t, ok)
	assert.True(t, t2.IsAssigned())
	assert.True(t, t2.StartDate.Equal(apr29))

	t3, ok := store.Task("t3")
	require.True(t, ok)
	assert.Empty(t, t3.AgentID, "dangling agent references are dropped on load")
}

func TestSyncer_Flush(t *testing.T) {
	ctx := context.Background()
	_, agents, tasks := seed(t)
	store := board.NewStore()
	require.NoError(t, Load(ctx, store, agents, tasks))

	syncer := NewSyncer(store, agents, tasks)
	defer syncer.Close()
	assert.False(t, syncer.Pending(), "loading happens before the syncer observes")

	_, err := store.MoveTask("t1", apr29, apr29, "1")
	require.NoError(t, err)
	require.NoError(t, store.AddTask(task.Task{ID: "t4", Title: "Task 4"}))
	_, err = store.RemoveAgent("2")
	require.NoError(t, err)
	require.NoError(t, store.SetView(board.ViewDay))
	assert.True(t, syncer.Pending())
	syncer.Flush(ctx)
	assert.False(t, syncer.Pending())

	t1, err := tasks.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "1", t1.AgentID)
	assert.True(t, t1.StartDate.Equal(apr29))

	_, err = tasks.Get(ctx, "t4")
	require.NoError(t, err)

	_, err = agents.Get(ctx, "2")
	assert.Error(t, err, "removed agent is deleted from storage")
	t2, err := tasks.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, t2.AgentID, "cascade reaches storage")

	require.NoError(t, store.SetInitialTasks([]task.Task{{ID: "t4", Title: "only"}}))
	syncer.Flush(ctx)
	stored, err := tasks.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "only", stored[0].Title)
}

// flakyTaskRepository fails the first Create it sees.
type flakyTaskRepository struct {
	task.Repository
	failed bool
}

func (r *flakyTaskRepository) Create(ctx context.Context, t *task.Task) error {
	if !r.failed {
		r.failed = true
		return errors.New("disk full")
	}
	return r.Repository.Create(ctx, t)
}

func TestSyncer_FlushKeepsFailedIDsDirty(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	tasks := taskrepo.NewYAMLRepository(s)
	store := board.NewStore()
	syncer := NewSyncer(store, agentrepo.NewYAMLRepository(s), &flakyTaskRepository{Repository: tasks})
	defer syncer.Close()

	require.NoError(t, store.AddTask(task.Task{ID: "t1", Title: "Task 1"}))
	syncer.Flush(ctx)
	assert.True(t, syncer.Pending())
	_, err := tasks.Get(ctx, "t1")
	assert.Error(t, err)

	syncer.Flush(ctx)
	assert.False(t, syncer.Pending())
	_, err = tasks.Get(ctx, "t1")
	assert.NoError(t, err)
}

func TestSyncer_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := storage.NewMemoryStorage()
	agents, tasks := agentrepo.NewYAMLRepository(s), taskrepo.NewYAMLRepository(s)
	store := board.NewStore(board.WithEventBus(eventbus.New()))
	syncer := NewSyncer(store, agents, tasks)

	done := make(chan error, 1)
	go func() { done <- syncer.Start(ctx) }()

	require.NoError(t, store.AddAgent(agent.Agent{ID: "1", Name: "Agent 1"}))
	require.Eventually(t, func() bool {
		_, err := agents.Get(ctx, "1")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop")
	}

	require.NoError(t, store.AddAgent(agent.Agent{ID: "2", Name: "Agent 2"}))
	assert.False(t, syncer.Pending(), "a stopped syncer no longer observes the store")
}

// gatedTaskRepository holds every Create until release is closed.
type gatedTaskRepository struct {
	task.Repository
	release chan struct{}
}

func (r *gatedTaskRepository) Create(ctx context.Context, t *task.Task) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.Repository.Create(ctx, t)
}

func TestSyncer_StartKeepsBurstWhileRepositoryIsSlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := storage.NewMemoryStorage()
	tasks := taskrepo.NewYAMLRepository(s)
	gated := &gatedTaskRepository{Repository: tasks, release: make(chan struct{})}
	store := board.NewStore(board.WithEventBus(eventbus.New()))
	syncer := NewSyncer(store, agentrepo.NewYAMLRepository(s), gated)

	done := make(chan error, 1)
	go func() { done <- syncer.Start(ctx) }()

	const n = 400
	for i := range n {
		require.NoError(t, store.AddTask(task.Task{ID: fmt.Sprintf("t%03d", i), Title: "burst"}))
	}
	close(gated.release)

	require.Eventually(t, func() bool {
		stored, err := tasks.List(ctx)
		return err == nil && len(stored) == n
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
