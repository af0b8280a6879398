// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/analysis"
	"github.com/starford/orrery/internal/api"
	"github.com/starford/orrery/internal/index"
	"github.com/starford/orrery/internal/mcpserver"
	"github.com/starford/orrery/internal/metrics"
	"github.com/starford/orrery/internal/noteservice"
	"github.com/starford/orrery/internal/session"
	"github.com/starford/orrery/internal/sse"
	"github.com/starford/orrery/internal/storage"
)

// components is the wired object graph shared by the HTTP and MCP entry points.
type components struct {
	cfg      *Config
	logger   *slog.Logger
	store    storage.Store
	vault    *storage.Vault
	notes    *noteservice.Service
	drafts   *noteservice.Debouncer
	broker   *sse.Broker
	analyzer *analysis.Analyzer
	sessions *session.Manager
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return a.config, logger, nil
}

func openStore(cfg StorageConfig) (storage.Store, *storage.Vault, error) {
	switch cfg.Driver {
	case DriverVault:
		v, err := storage.NewVault(cfg.VaultPath)
		if err != nil {
			return nil, nil, err
		}
		return v, v, nil
	case DriverMemory:
		return storage.NewMemory(), nil, nil
	default:
		db, err := index.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, nil, nil
	}
}

// build opens storage, loads every note and wires the services around it.
// gen may be nil, in which case the configured OpenAI-compatible endpoint is used.
func build(ctx context.Context, cfg *Config, logger *slog.Logger, gen ai.Generator) (*components, error) {
	store, vault, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c := &components{cfg: cfg, logger: logger, store: store, vault: vault}
	c.broker = sse.NewBroker(cfg.SSE.GraphThrottle)

	c.notes = noteservice.NewService(store,
		noteservice.WithLogger(logger),
		noteservice.WithObserver(c.broker.PublishNoteEvent),
	)
	if err := c.notes.Load(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("load notes: %w", err)
	}

	c.drafts = noteservice.NewDebouncer(c.notes, cfg.Notes.SaveDelay, logger, func(id string, err error) {
		c.broker.PublishSaveFailed(id, err)
	})

	if gen == nil {
		if cfg.AI.APIKey == "" {
			logger.Warn("ai: no api key configured, analysis requests will fail")
		}
		gen = ai.NewOpenAIClient(cfg.AI.Client(), logger)
	}
	c.analyzer = analysis.NewAnalyzer(gen,
		analysis.WithLogger(logger),
		analysis.WithStageTimeout(cfg.AI.StageTimeout),
	)
	c.sessions = session.NewManager(c.analyzer,
		session.WithLogger(logger),
		session.WithCanvas(cfg.Layout.Width, cfg.Layout.Height),
		session.WithProgress(func(p session.Progress) {
			c.broker.PublishProgress(p.NoteID, p)
		}),
	)
	return c, nil
}

// close flushes pending drafts and releases storage.
func (c *components) close() {
	if c.drafts != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.drafts.Flush(ctx); err != nil {
			c.logger.Error("flush drafts on shutdown", slog.String("error", err.Error()))
		}
		cancel()
		c.drafts.Close()
	}
	if c.broker != nil {
		c.broker.Close()
	}
	if err := c.store.Close(); err != nil {
		c.logger.Error("close storage", slog.String("error", err.Error()))
	}
}

func (c *components) router() http.Handler {
	apiRouter := api.NewRouter(api.NewHandler(api.Deps{
		Notes:    c.notes,
		Drafts:   c.drafts,
		Sessions: c.sessions,
		Analyzer: c.analyzer,
		Logger:   c.logger,
	}), c.cfg.Auth.AuthEnabled(), c.cfg.Auth.Token, c.broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, map[string]any{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, map[string]any{
			"status":  "ok",
			"notes":   c.notes.Count(),
			"clients": c.broker.ClientCount(),
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", apiRouter)
	return r
}

func writeStatus(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("sqlite_path", cfg.Storage.SQLitePath),
		slog.String("vault_path", cfg.Storage.VaultPath),
		slog.String("ai_model", cfg.AI.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := build(ctx, cfg, logger, app.generator)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("Notes loaded", slog.Int("count", c.notes.Count()))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           c.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up edits made to the vault by other programs.
	if c.vault != nil && cfg.Storage.Watch {
		g.Go(func() error {
			if err := c.vault.Watch(gCtx, c.notes, logger, nil); err != nil {
				logger.Error("vault watcher stopped", slog.String("error", err.Error()))
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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}

	_, logger, err := app.setup()
	if err != nil {
		return err
	}

	c, err := build(ctx, app.config, logger, app.generator)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("MCP server starting", slog.Int("notes", c.notes.Count()))
	return mcpserver.New(c.notes, c.sessions).ServeStdio()
}
