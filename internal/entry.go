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

	"github.com/starford/solo/internal/api"
	"github.com/starford/solo/internal/migrate"
	"github.com/starford/solo/internal/search"
	"github.com/starford/solo/internal/sse"
	"github.com/starford/solo/internal/storage"
	"github.com/starford/solo/internal/store"
	syncpkg "github.com/starford/solo/internal/sync"
	"github.com/starford/solo/internal/tags"
	"github.com/starford/solo/internal/watcher"
)

// Run starts the application with the given options.
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
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("search_path", cfg.Search.Path),
		slog.String("sync_mode", cfg.Sync.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage unless an override was injected.
	fsProv := app.storage
	if fsProv == nil {
		fs, err := storage.NewFS(cfg.Vault.Path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		fsProv = fs
	}

	// Initialize full-text index.
	db, err := search.Open(cfg.Search.Path)
	if err != nil {
		return fmt.Errorf("init search: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// The store feeds every mutation to the SSE broker and keeps the
	// search index current.
	var st *store.Store
	st = store.New(fsProv, logger, store.WithOnChange(func(kind, id string) {
		broker.PublishChange(kind, id)
		updateSearch(st, db, logger, kind, id)
	}))
	defer st.Close()

	// One-shot legacy migration, gated by its flag file.
	if _, err := migrate.Run(cfg.Vault.Path, st, cfg.Migration.Enabled, logger); err != nil {
		logger.Warn("legacy migration failed", slog.String("error", err.Error()))
	}

	// Initial load; emits structure.loaded, which triggers the first
	// full reindex.
	if err := st.LoadFromStorage(); err != nil {
		logger.Warn("initial structure load failed", slog.String("error", err.Error()))
	}

	// Tag index over the store.
	tagIndex := tags.NewIndex(st, logger)

	// Sync engine for the configured backend.
	engine := syncpkg.NewEngine(syncpkg.Mode(cfg.Sync.Mode), newBackend(cfg), st, logger)

	// Build API service and router.
	h := api.NewHandler(st, tagIndex, db)
	sh := api.NewSyncHandler(engine)
	apiRouter := api.NewRouter(h, sh, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// External-edit watcher: reload the store once the vault settles.
	// Bursts consisting only of the store's own writes are ignored so
	// a debounced save does not bounce back as a full reload.
	if cfg.App.Watch {
		g.Go(func() error {
			return watcher.Watch(gCtx, cfg.Vault.Path, 0, logger, func(changed []string) {
				external := false
				for _, p := range changed {
					if !st.WroteRecently(p) {
						external = true
					}
				}
				if !external {
					return
				}
				logger.Info("watcher: external changes detected", slog.Int("paths", len(changed)))
				if err := st.LoadFromStorage(); err != nil {
					logger.Warn("watcher reload failed", slog.String("error", err.Error()))
				}
			})
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

		// Pending debounced edits must land before the process exits.
		st.Close()

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

// newBackend builds the sync backend for the configured mode; nil for
// mode "none".
func newBackend(cfg *Config) syncpkg.Backend {
	switch syncpkg.Mode(cfg.Sync.Mode) {
	case syncpkg.ModeWebDAV:
		return syncpkg.NewWebDAV(cfg.Sync.WebDAV.URL, cfg.Sync.WebDAV.Username, cfg.Sync.WebDAV.Password)
	case syncpkg.ModeServer:
		return syncpkg.NewServer(cfg.Sync.Server.URL, cfg.Sync.Server.Username, cfg.Sync.Server.Password)
	default:
		return nil
	}
}

// updateSearch keeps the full-text index in step with store mutations.
// Notebook renames move note paths without per-note events, so
// structural notebook changes trigger a full reindex.
func updateSearch(st *store.Store, db *search.DB, logger *slog.Logger, kind, id string) {
	switch kind {
	case store.EventNoteCreated, store.EventNoteUpdated:
		note, err := st.LoadNoteContent(id)
		if err != nil {
			logger.Warn("search: load note failed", slog.String("id", id), slog.String("error", err.Error()))
			return
		}
		if err := db.UpsertNote(note); err != nil {
			logger.Warn("search: upsert failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	case store.EventNoteDeleted:
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("search: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	case store.EventNotebookUpdated, store.EventNotebookDeleted, store.EventStructureLoaded:
		snap, err := st.Snapshot()
		if err != nil {
			logger.Warn("search: snapshot failed", slog.String("error", err.Error()))
			return
		}
		if err := db.Reindex(snap); err != nil {
			logger.Warn("search: reindex failed", slog.String("error", err.Error()))
		}
	}
}
