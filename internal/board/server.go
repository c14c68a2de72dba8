package board

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/agentcal/internal/agent"
	"github.com/kazz187/agentcal/internal/calendar"
	"github.com/kazz187/agentcal/internal/task"
	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/clog"
)

// Server exposes the store write surface over JSON.
type Server struct {
	store *Store
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/snapshot", s.getSnapshot)

	r.Post("/agents", s.addAgent)
	r.Delete("/agents/{agentID}", s.removeAgent)

	r.Post("/tasks", s.addTask)
	r.Put("/tasks", s.setInitialTasks)
	r.Get("/tasks/{taskID}", s.getTask)
	r.Patch("/tasks/{taskID}", s.updateTask)
	r.Delete("/tasks/{taskID}", s.removeTask)

	r.Put("/view", s.setView)
	r.Put("/date", s.setCurrentDate)
	r.Post("/date/previous", s.navigate(s.store.Previous))
	r.Post("/date/next", s.navigate(s.store.Next))
	r.Post("/date/today", s.navigate(s.store.Today))
}

type ViewStateResponse struct {
	CurrentDate time.Time `json:"current_date"`
	View        ViewMode  `json:"view"`
	Version     uint64    `json:"version"`
}

func (s *Server) viewState() *ViewStateResponse {
	snap := s.store.Snapshot()
	return &ViewStateResponse{CurrentDate: snap.CurrentDate, View: snap.View, Version: snap.Version}
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	cerr.SetJSONResponse(r.Context(), &snap)
}

func (s *Server) addAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var a agent.Agent
	if err := cerr.DecodeJSON(r, &a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	clog.AddAttribute(ctx, "agent_id", a.ID)
	if err := s.store.AddAgent(a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, &a)
}

func (s *Server) removeAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "agentID")
	clog.AddAttribute(ctx, "agent_id", id)
	removed, err := s.store.RemoveAgent(id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !removed {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "agent not found", nil)
	}
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var t task.Task
	if err := cerr.DecodeJSON(r, &t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	if err := s.store.AddTask(t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, &t)
}

type SetInitialTasksRequest struct {
	Tasks []task.Task `json:"tasks"`
}

func (s *Server) setInitialTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SetInitialTasksRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_count", len(req.Tasks))
	if err := s.store.SetInitialTasks(req.Tasks); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	snap := s.store.Snapshot()
	cerr.SetJSONResponse(ctx, &snap)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, ok := s.store.Task(chi.URLParam(r, "taskID"))
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "taskID")
	clog.AddAttribute(ctx, "task_id", id)
	var p task.Patch
	if err := cerr.DecodeJSON(r, &p); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	updated, err := s.store.UpdateTask(id, p)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !updated {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	t, _ := s.store.Task(id)
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) removeTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "taskID")
	clog.AddAttribute(ctx, "task_id", id)
	removed, err := s.store.RemoveTask(id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !removed {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
	}
}

type SetViewRequest struct {
	View string `json:"view"`
}

func (s *Server) setView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SetViewRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	v, err := ParseViewMode(req.View)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.store.SetView(v); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, s.viewState())
}

type SetDateRequest struct {
	Date string `json:"date"`
}

func (s *Server) setCurrentDate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SetDateRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	d, err := calendar.ParseDate(req.Date, s.store.Location())
	if err != nil {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, "invalid date", err).
			WithViolation("date", "must be YYYY-MM-DD or RFC 3339"))
		return
	}
	if err := s.store.SetCurrentDate(d); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, s.viewState())
}

func (s *Server) navigate(step func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := step(); err != nil {
			cerr.SetJSONError(r.Context(), err)
			return
		}
		cerr.SetJSONResponse(r.Context(), s.viewState())
	}
}
