package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAttributes(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_id", "t1")
	AddAttributes(ctx, map[string]any{"drag": map[string]any{"target": "unassigned"}})
	AddAttributes(ctx, map[string]any{"drag": map[string]any{"outcome": "committed"}})
	AddError(ctx, errors.New("boom"))

	assert.Equal(t, "t1", GetAttribute[string](ctx, "task_id"))
	assert.EqualError(t, GetError(ctx), "boom")
	assert.Equal(t, map[string]any{"target": "unassigned", "outcome": "committed"}, GetAttributes(ctx)["drag"])

	// No-op without a slog context.
	AddAttribute(context.Background(), "k", "v")
	assert.Nil(t, GetAttributes(context.Background()))
}

func TestHTTPTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewHTTPTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug))))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{"method": "POST", "path": "/api/drag/drop", "status": 200})
	logger.InfoContext(ctx, "OK", "task_id", "t1")

	out := buf.String()
	assert.Contains(t, out, "INFO POST /api/drag/drop 200 OK\n")
	assert.Contains(t, out, "    task_id=t1\n")
}

func TestHTTPTextHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHTTPTextHandler(&buf, WithColor(false)))
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestSlogChiMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(NewHTTPTextHandler(&buf, WithColor(false)))))
	defer slog.SetDefault(prev)

	h := SlogChiMiddleware(WithChiFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/board", nil))
	assert.Contains(t, buf.String(), "WARN HTTP/1.1 GET /api/board 404 Not Found")
}

func TestHTTPStatusToLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(200))
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(499))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(412))
	assert.Equal(t, LevelError, HTTPStatusToLevel(500))
}
