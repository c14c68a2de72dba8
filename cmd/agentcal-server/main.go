package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc/pool"

	agentrepo "github.com/kazz187/agentcal/internal/agent/repositoryimpl"
	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/config"
	"github.com/kazz187/agentcal/internal/dnd"
	"github.com/kazz187/agentcal/internal/droptarget"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/eventlog"
	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/internal/selection"
	"github.com/kazz187/agentcal/internal/snapshot"
	"github.com/kazz187/agentcal/internal/stream"
	taskrepo "github.com/kazz187/agentcal/internal/task/repositoryimpl"
	"github.com/kazz187/agentcal/pkg/clog"
	"github.com/kazz187/agentcal/pkg/panicerr"
	"github.com/kazz187/agentcal/pkg/storage"

	server "github.com/kazz187/agentcal/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	if err := run(env); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "s3":
		return storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
	case "local":
		return storage.NewLocalStorage(env.BaseDir)
	default:
		return storage.NewMemoryStorage(), nil
	}
}

func run(env *config.Env) error {
	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	loc, err := env.Location()
	if err != nil {
		return err
	}
	view, err := board.ParseViewMode(env.View)
	if err != nil {
		return err
	}

	// Setup storage
	storageEnv := config.StorageEnvFromEnv(env)
	st, err := newStorage(ctx, storageEnv)
	if err != nil {
		return err
	}
	agentRepo := agentrepo.NewYAMLRepository(st)
	taskRepo := taskrepo.NewYAMLRepository(st)

	// Setup board
	bus := eventbus.New()
	store := board.NewStore(
		board.WithLocation(loc),
		board.WithView(view),
		board.WithEventBus(bus),
	)
	if err := snapshot.Load(ctx, store, agentRepo, taskRepo); err != nil {
		return err
	}
	snap := store.Snapshot()
	slog.Info("board loaded",
		"agents", len(snap.Agents),
		"tasks", len(snap.Tasks),
		"storage", storageEnv.Type,
		"timezone", loc.String(),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	surface := selection.New(store)
	defer surface.Close()
	controller := dnd.NewController(store, droptarget.NewResolver(loc), dnd.WithMetrics(dnd.MustNewMetrics(registry)))
	hub := stream.NewHub(bus, store)
	journal := eventlog.NewJournal(bus, st)

	srv := server.NewServer(
		env,
		registry,
		board.NewServer(store),
		grid.NewServer(store),
		dnd.NewServer(controller),
		selection.NewServer(surface),
		eventlog.NewServer(journal),
		hub,
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}))
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		<-ctx.Done()
		slog.Info("shutting down server")

		// Give active connections time to finish after stream contexts are cancelled.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}))
	p.Go(panicerr.SafeContext(hub.Start))
	p.Go(panicerr.SafeContext(journal.Start))
	if storageEnv.Type != "none" && env.Sync {
		syncer := snapshot.NewSyncer(store, agentRepo, taskRepo)
		p.Go(panicerr.SafeContext(syncer.Start))
	}
	return p.Wait()
}
