package internal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/config"
	"github.com/kazz187/agentcal/internal/dnd"
	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/eventlog"
	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/internal/selection"
	"github.com/kazz187/agentcal/internal/stream"
	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/storage"
)

var apr29 = time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *board.Store) {
	t.Helper()
	bus := eventbus.New()
	store := board.NewStore(
		board.WithEventBus(bus),
		board.WithClock(func() time.Time { return apr29 }),
	)
	require.NoError(t, store.AddAgent(agent.Agent{ID: "1", Name: "Agent 1"}))
	require.NoError(t, store.AddTask(task.Task{ID: "t1", Title: "Task 1"}))

	registry := prometheus.NewRegistry()
	controller := dnd.NewController(store, droptarget.NewResolver(time.UTC), dnd.WithMetrics(dnd.MustNewMetrics(registry)))
	surface := selection.New(store)
	t.Cleanup(surface.Close)

	env := &config.Env{BaseEnv: config.BaseEnv{APIKey: apiKey}}
	srv := NewServer(
		env,
		registry,
		board.NewServer(store),
		grid.NewServer(store),
		dnd.NewServer(controller),
		selection.NewServer(surface),
		eventlog.NewServer(eventlog.NewJournal(bus, storage.NewMemoryStorage())),
		stream.NewHub(bus, store),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestServer_DragFlow(t *testing.T) {
	ts, store := newTestServer(t, "")

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/drag/begin", `{"task_id":"t1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/drag/drop", `{"target_id":"cell-1__2025-04-29","data":{"agent_id":"1"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dr dnd.DragResponse
	require.NoError(t, json.Unmarshal(body, &dr))
	assert.Equal(t, dnd.OutcomeCommitted, dr.Outcome.Kind)
	assert.Equal(t, dnd.PhaseIdle, dr.State.Phase)

	got, ok := store.Task("t1")
	require.True(t, ok)
	assert.Equal(t, "1", got.AgentID)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/board", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m grid.Matrix
	require.NoError(t, json.Unmarshal(body, &m))
	require.Len(t, m.Rows, 1)
	assert.Len(t, m.Days, 7)
	assert.Empty(t, m.Bucket.Tasks)
	row, col, ok := m.Locate("cell-1__2025-04-29")
	require.True(t, ok)
	require.Len(t, m.Rows[row].Cells[col].Tasks, 1)
}

func TestServer_Errors(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := do(t, http.MethodPost, ts.URL+"/api/agents", `{"id":"1","name":"Dup"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"already_exists"`)

	resp, body = do(t, http.MethodPut, ts.URL+"/api/selection", `{"task_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"not_found"`)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"message":"not found"`)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t, "secret")

	resp, _ := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer r.Body.Close()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Contains(t, string(b), "agentcal_dnd_drags_active")
}

func TestServer_APIKey(t *testing.T) {
	ts, _ := newTestServer(t, "secret")

	resp, _ := do(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/snapshot", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusOK, r.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/snapshot?api_key=secret", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
