// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wiki/internal/api"
	"github.com/starford/wiki/internal/index"
	"github.com/starford/wiki/internal/mcpserver"
	"github.com/starford/wiki/internal/pageservice"
	"github.com/starford/wiki/internal/sse"
	"github.com/starford/wiki/internal/storage"
	"github.com/starford/wiki/internal/watcher"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// openStore ensures the data directory exists and opens the page store.
func openStore(cfg *Config) (*storage.FS, error) {
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Data.Dir, storage.WithExtension(cfg.Data.Extension))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

func newService(cfg *Config, store storage.Provider, logger *slog.Logger) *pageservice.Service {
	tags := index.NewBuilder(store,
		index.WithConcurrency(cfg.Scan.Concurrency),
		index.WithLogger(logger),
	)
	return pageservice.NewService(store, tags, logger)
}

// NewHandler builds the complete HTTP handler: health checks, the API under
// /api, and the frontend fallback for every other GET.
func NewHandler(cfg *Config, svc *pageservice.Service, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware(cfg.App.HTTP.CORSOrigin))

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	frontend := api.NewFrontendHandler(cfg.Frontend.Dir)

	// Unknown /api paths fall through to the frontend like every other GET.
	apiRouter := api.NewRouter(svc, events)
	apiRouter.NotFound(frontend.ServeHTTP)
	r.Mount("/api", apiRouter)

	r.Get("/*", frontend.ServeHTTP)

	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("frontend_dir", cfg.Frontend.Dir),
		slog.Int("scan_concurrency", cfg.Scan.Concurrency),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	svc := newService(cfg, store, logger)

	broker := sse.NewBroker(cfg.Events.TagsThrottle)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHandler(cfg, svc, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Page watcher feeding the SSE broker.
	g.Go(func() error {
		if err := watcher.Watch(gCtx, store, logger, broker.PublishPageEvent); err != nil {
			logger.Warn("watcher disabled", slog.String("error", err.Error()))
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

	// Shutdown on signal or when any goroutine fails.
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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the wiki over MCP on stdio until stdin closes. Logs go to
// stderr unless overridden, since stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	svc := newService(cfg, store, logger)

	logger.Info("Serving MCP on stdio", slog.String("data_dir", cfg.Data.Dir))
	return mcpserver.New(svc, app.version).ServeStdio()
}
