package grid

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/pkg/cerr"
)

type Server struct {
	store *board.Store
}

func NewServer(store *board.Store) *Server {
	return &Server{store: store}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/board", s.getBoard)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	m := Build(s.store.Snapshot())
	cerr.SetJSONResponse(r.Context(), &m)
}
