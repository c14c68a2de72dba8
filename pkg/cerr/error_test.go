package cerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentcal/pkg/storage"
)

func TestCode_String(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "failed_precondition", FailedPrecondition.String())
	assert.Equal(t, http.StatusPreconditionFailed, FailedPrecondition.HTTPCode())
}

func TestParseCode(t *testing.T) {
	for _, c := range []Code{OK, InvalidArgument, NotFound, AlreadyExists, FailedPrecondition, Internal} {
		assert.Equal(t, c, ParseCode(c.String()))
	}
	assert.Equal(t, Unknown, ParseCode("no_such_code"))
}

func TestError_IsAndCode(t *testing.T) {
	sentinel := NewError(AlreadyExists, "agent already exists", nil)
	wrapped := fmt.Errorf("add agent: %w", NewError(AlreadyExists, "agent already exists", nil))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, IsCode(wrapped, AlreadyExists))
	assert.False(t, IsCode(wrapped, NotFound))
	assert.Empty(t, sentinel.Stack)
	assert.NotEmpty(t, NewError(Internal, "server error", nil).Stack)
}

func TestWrapStorageReadError(t *testing.T) {
	err := WrapStorageReadError("task", fmt.Errorf("tasks/x.yaml: %w", storage.ErrNotFound))
	assert.True(t, IsCode(err, NotFound))

	err = WrapStorageReadError("task", errors.New("disk on fire"))
	assert.True(t, IsCode(err, Internal))
}

func TestJSONChiMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name: "response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponse(r.Context(), map[string]string{"id": "t1"})
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"id": "t1"},
		},
		{
			name: "created",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONResponseWithStatus(r.Context(), http.StatusCreated, map[string]string{"id": "t1"})
			},
			wantStatus: http.StatusCreated,
			wantBody:   map[string]any{"id": "t1"},
		},
		{
			name: "coded error with violation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONError(r.Context(), NewError(InvalidArgument, "invalid task", nil).WithViolation("end_date", "must not be before start_date"))
			},
			wantStatus: http.StatusBadRequest,
			wantBody: map[string]any{
				"code":    "invalid_argument",
				"message": "invalid task",
				"details": []any{"end_date: must not be before start_date"},
			},
		},
		{
			name: "plain error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				SetJSONError(r.Context(), errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"code": "unknown", "message": "unknown error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewJSONChiMiddleware()(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestJSONChiMiddleware_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONChiMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		payload string
		want    body
		wantErr bool
	}{
		{name: "ok", payload: `{"name":"Agent 1"}`, want: body{Name: "Agent 1"}},
		{name: "empty", payload: ``, wantErr: true},
		{name: "unknown field", payload: `{"nick":"a"}`, wantErr: true},
		{name: "malformed", payload: `{"name":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var got body
			err := DecodeJSON(r, &got)
			if tt.wantErr {
				assert.True(t, IsCode(err, InvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
