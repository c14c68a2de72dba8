package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/storage"
)

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	repo := NewYAMLRepository(s)

	day := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	t1 := &task.Task{ID: "t1", Title: "Task 1", StartDate: &day, EndDate: &day, AgentID: "1"}
	t2 := &task.Task{ID: "t2", Title: "Task 2"}

	require.NoError(t, repo.Create(ctx, t1))
	require.NoError(t, repo.Create(ctx, t2))
	assert.True(t, cerr.IsCode(repo.Create(ctx, t1), cerr.AlreadyExists))

	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.AgentID)
	assert.True(t, got.StartDate.Equal(day))

	t2.Title = "Task 2 (renamed)"
	require.NoError(t, repo.Update(ctx, t2))
	assert.True(t, cerr.IsCode(repo.Update(ctx, &task.Task{ID: "missing"}), cerr.NotFound))

	require.NoError(t, s.Write(ctx, "tasks/broken.yaml", []byte("id: [")))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t1", all[0].ID)
	assert.Equal(t, "Task 2 (renamed)", all[1].Title)
	assert.Nil(t, all[1].StartDate)

	require.NoError(t, repo.Delete(ctx, "t1"))
	_, err = repo.Get(ctx, "t1")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.True(t, cerr.IsCode(repo.Delete(ctx, "t1"), cerr.NotFound))
}
