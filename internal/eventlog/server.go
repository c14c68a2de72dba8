package eventlog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/pkg/cerr"
)

type Server struct {
	journal *Journal
}

func NewServer(journal *Journal) *Server {
	return &Server{journal: journal}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/events", s.list)
}

type ListResponse struct {
	Date   string            `json:"date"`
	Events []*eventbus.Event `json:"events"`
}

// list serves GET /events?date=YYYY-MM-DD[&type=...]. The date defaults to
// today (UTC).
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	day := s.journal.now().UTC()
	if raw := q.Get("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, "invalid date", err).
				WithViolation("date", "must be YYYY-MM-DD"))
			return
		}
		day = d
	}

	var (
		events []*eventbus.Event
		err    error
	)
	if t := q.Get("type"); t != "" {
		events, err = s.journal.ReadByType(ctx, day, eventbus.EventType(t))
	} else {
		events, err = s.journal.Read(ctx, day)
	}
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &ListResponse{Date: day.Format(time.DateOnly), Events: events})
}
