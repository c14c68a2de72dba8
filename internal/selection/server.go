package selection

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/clog"
)

type Server struct {
	surface *Surface
}

func NewServer(surface *Surface) *Server {
	return &Server{surface: surface}
}

func (s *Server) Register(r chi.Router) {
	r.Route("/selection", func(r chi.Router) {
		r.Get("/", s.get)
		r.Put("/", s.selectTask)
		r.Delete("/", s.clear)
		r.Put("/open", s.setOpen)
		r.Patch("/task", s.save)
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	v := s.surface.Current()
	cerr.SetJSONResponse(r.Context(), &v)
}

type SelectRequest struct {
	TaskID string `json:"task_id"`
}

func (s *Server) selectTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SelectRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", req.TaskID)
	v, err := s.surface.Select(req.TaskID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &v)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.surface.Clear()
}

type SetOpenRequest struct {
	Open bool `json:"open"`
}

func (s *Server) setOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SetOpenRequest
	if err := cerr.DecodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	v := s.surface.SetOpen(req.Open)
	cerr.SetJSONResponse(ctx, &v)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var e Edit
	if err := cerr.DecodeJSON(r, &e); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.surface.Save(e)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}
