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

	"github.com/halvard/munin/internal/api"
	"github.com/halvard/munin/internal/chat"
	"github.com/halvard/munin/internal/entryservice"
	"github.com/halvard/munin/internal/events"
	"github.com/halvard/munin/internal/mcpserver"
	"github.com/halvard/munin/internal/session"
	"github.com/halvard/munin/internal/store"
	"github.com/halvard/munin/internal/userdir"
)

// OpenStore resolves the configured storage backend once. There is no
// runtime probing or fallback; a backend that cannot be opened fails
// startup.
func OpenStore(cfg *Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case store.BackendSQLite:
		return store.OpenSQLite(cfg.Storage.SQLite.Path)
	case store.BackendFile:
		return store.NewFile(cfg.Storage.File.Path)
	case store.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Bool("storage_global", cfg.Storage.Global),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// User directory is fixed for the process lifetime.
	users, err := userdir.Load(cfg.Auth.UsersFile)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	logger.Info("User directory loaded", slog.Int("users", users.Len()))

	// Session codec.
	codec := session.NewCodec([]byte(cfg.Auth.Secret), cfg.Auth.TTL.Std())

	// Storage backend, resolved once.
	st, err := OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer st.Close()

	// Change event broker.
	broker := events.NewBroker()
	defer broker.Close()

	// Chat relay (disabled without an API key).
	relay := chat.NewRelay(cfg.Chat.APIKey, cfg.Chat.BaseURL, cfg.Chat.Model)

	// Build service and router.
	svc := entryservice.NewService(st, broker, cfg.Storage.Global)
	apiRouter := api.NewRouter(svc, users, codec, relay, broker)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// When the file backend is active, watch the document for external
	// edits and tell connected clients to re-fetch.
	if fileStore, ok := st.(*store.File); ok {
		g.Go(func() error {
			if err := store.Watch(gCtx, fileStore, logger, broker.PublishRefresh); err != nil {
				logger.Warn("document watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves entry tools over stdio for the configured MCP user.
func RunMCP(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	users, err := userdir.Load(cfg.Auth.UsersFile)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	user, err := users.Lookup(cfg.MCP.Username)
	if err != nil {
		return fmt.Errorf("mcp user %q not in directory: %w", cfg.MCP.Username, err)
	}

	st, err := OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer st.Close()

	svc := entryservice.NewService(st, nil, cfg.Storage.Global)
	srv := mcpserver.New(svc, user)

	logger.Info("MCP server starting on stdio", slog.String("user", user.Username))
	return srv.ServeStdio()
}
