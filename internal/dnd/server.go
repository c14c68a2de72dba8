package dnd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/clog"
)

type Server struct {
	controller *Controller
}

func NewServer(controller *Controller) *Server {
	return &Server{controller: controller}
}

func (s *Server) Register(r chi.Router) {
	r.Route("/drag", func(r chi.Router) {
		r.Get("/", s.getState)
		r.Post("/begin", s.begin)
		r.Post("/hover", s.hover)
		r.Post("/drop", s.drop)
		r.Post("/cancel", s.cancel)
		r.Post("/nudge", s.nudge)
		r.Post("/drop-hovered", s.dropHovered)
	})
}

// DragResponse pairs the outcome of an event with the controller state
// right after it.
type DragResponse struct {
	Outcome Outcome `json:"outcome"`
	State   State   `json:"state"`
}

func (s *Server) respond(r *http.Request, o Outcome) {
	ctx := r.Context()
	clog.AddAttributes(ctx, map[string]any{
		"drag": map[string]any{
			"outcome":   string(o.Kind),
			"task_id":   o.TaskID,
			"target_id": o.TargetID,
		},
	})
	cerr.SetJSONResponse(ctx, &DragResponse{Outcome: o, State: s.controller.State()})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	st := s.controller.State()
	cerr.SetJSONResponse(r.Context(), &st)
}

type BeginRequest struct {
	TaskID string `json:"task_id"`
}

func (s *Server) begin(w http.ResponseWriter, r *http.Request) {
	var req BeginRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.controller.BeginDrag(req.TaskID))
}

type HoverRequest struct {
	TargetID string `json:"target_id"`
}

func (s *Server) hover(w http.ResponseWriter, r *http.Request) {
	var req HoverRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.controller.Hover(req.TargetID))
}

type DropRequest struct {
	TargetID string          `json:"target_id"`
	Data     droptarget.Data `json:"data"`
}

func (s *Server) drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.controller.Drop(req.TargetID, req.Data))
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.controller.CancelDrop())
}

type NudgeRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) nudge(w http.ResponseWriter, r *http.Request) {
	var req NudgeRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	dir, err := ParseDirection(req.Direction)
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	s.respond(r, s.controller.Nudge(dir))
}

func (s *Server) dropHovered(w http.ResponseWriter, r *http.Request) {
	s.respond(r, s.controller.DropHovered())
}
