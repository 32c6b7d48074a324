// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/metadata"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/settings"
	"github.com/starford/quire/internal/sse"
)

// runtime is the set of long-lived components every command needs.
type runtime struct {
	logger   *slog.Logger
	meta     *metadata.Store
	settings *settings.File
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open builds the logger, the metadata store and the settings file. Logs go to
// logOut so the MCP command can keep stdout for the protocol.
func (a *application) open(logOut io.Writer) (*runtime, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("database_path", cfg.Database.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	meta, err := metadata.Open(cfg.Database.Path, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("init metadata: %w", err)
	}

	userSettings, err := settings.LoadOrInit(cfg.Settings.Path, logger)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}
	logger.Info("Settings loaded",
		slog.String("notes_folder", userSettings.Get().NotesFolder),
		slog.String("delete_behavior", string(userSettings.Get().DeleteBehavior)))

	return &runtime{logger: logger, meta: meta, settings: userSettings}, nil
}

func (rt *runtime) close() {
	if err := rt.meta.Close(); err != nil {
		rt.logger.Error("close metadata", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	rt, err := app.open(os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := noteservice.NewService(rt.meta, rt.settings,
		noteservice.WithLogger(logger),
		noteservice.WithEventSink(broker),
	)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.meta.Ping(req.Context()); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up external edits to the settings file.
	g.Go(func() error {
		if err := rt.settings.Watch(gCtx); err != nil {
			logger.Warn("settings watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stops the settings watcher.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	svc := noteservice.NewService(rt.meta, rt.settings, noteservice.WithLogger(rt.logger))
	rt.logger.Info("Starting MCP server on stdio")
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// RunReconcile compares metadata with the notes folder once and prints the
// report as JSON. A report with findings is not an error.
func RunReconcile(ctx context.Context, repair bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	svc := noteservice.NewService(rt.meta, rt.settings, noteservice.WithLogger(rt.logger))
	rep, err := svc.Reconcile(ctx, repair)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
