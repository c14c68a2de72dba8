package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/config"
	"github.com/kazz187/agentcal/internal/dnd"
	"github.com/kazz187/agentcal/internal/eventlog"
	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/internal/selection"
	"github.com/kazz187/agentcal/internal/stream"
	"github.com/kazz187/agentcal/pkg/cerr"
	"github.com/kazz187/agentcal/pkg/clog"
)

type Server struct {
	mu              sync.Mutex
	server          *http.Server
	env             *config.Env
	registry        *prometheus.Registry
	boardServer     *board.Server
	gridServer      *grid.Server
	dragServer      *dnd.Server
	selectionServer *selection.Server
	eventLogServer  *eventlog.Server
	hub             *stream.Hub
}

func NewServer(
	env *config.Env,
	registry *prometheus.Registry,
	boardServer *board.Server,
	gridServer *grid.Server,
	dragServer *dnd.Server,
	selectionServer *selection.Server,
	eventLogServer *eventlog.Server,
	hub *stream.Hub,
) *Server {
	return &Server{
		env:             env,
		registry:        registry,
		boardServer:     boardServer,
		gridServer:      gridServer,
		dragServer:      dragServer,
		selectionServer: selectionServer,
		eventLogServer:  eventLogServer,
		hub:             hub,
	}
}

// Handler assembles the full HTTP surface: the JSON API under /api, the
// board stream, health checks and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(clog.SlogChiMiddleware())
		// The stream hijacks its connection, so it stays outside the JSON
		// response writer.
		r.Handle("/stream", s.hub)
		r.Group(func(r chi.Router) {
			r.Use(cerr.NewJSONChiMiddleware())
			s.boardServer.Register(r)
			s.gridServer.Register(r)
			s.dragServer.Register(r)
			s.selectionServer.Register(r)
			s.eventLogServer.Register(r)
			r.NotFound(func(w http.ResponseWriter, r *http.Request) {
				cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
			})
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker()))

	return h2c.NewHandler(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{})
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of
// every request, so cancelling it also ends open streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.env.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		// Skip API key check for health endpoints.
		if r.URL.Path == "/health" || r.URL.Path == "/grpc.health.v1.Health/Check" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if apiKey == "" {
			// Browsers cannot set headers on a WebSocket handshake.
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
