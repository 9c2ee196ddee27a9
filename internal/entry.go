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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/flipdesk/internal/api"
	"github.com/starford/flipdesk/internal/conversion"
	"github.com/starford/flipdesk/internal/leadimport"
	"github.com/starford/flipdesk/internal/mcpserver"
	"github.com/starford/flipdesk/internal/metrics"
)

func (app *application) init() (*Config, *slog.Logger, error) {
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// Run starts the HTTP API, the conversion worker and the import watcher and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := newApplication(opts).init()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("events_driver", cfg.Events.Driver),
		slog.Bool("worker_enabled", cfg.Worker.Enabled),
		slog.Bool("import_enabled", cfg.Import.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	if cfg.Import.Enabled {
		if _, err := c.importer.Sync(ctx); err != nil {
			logger.Warn("initial import sync failed", slog.String("error", err.Error()))
		}
	}

	var runner api.ConversionRunner
	if cfg.Worker.Enabled {
		runner = c.worker
	}
	h := api.NewHandler(c.crm, c.search, runner, cfg.Search.MinQueryLength)
	apiRouter := api.NewRouter(h, c.documents, api.AuthSettings{
		Mode:      cfg.Auth.Mode,
		Token:     cfg.Auth.Token,
		JWTSecret: cfg.Auth.JWT.Secret,
		JWTIssuer: cfg.Auth.JWT.Issuer,
	}, c.broker)

	r := newRootRouter(cfg, c, apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Worker.Enabled {
		g.Go(func() error {
			return c.worker.Run(gCtx)
		})
	}

	if cfg.Import.Enabled {
		g.Go(func() error {
			if err := c.importer.Watch(gCtx, cfg.Import.Dir); err != nil {
				return fmt.Errorf("import watcher: %w", err)
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

		// SSE streams never finish on their own.
		c.broker.Close()

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

// errShutdown cancels the group's context so the worker and watcher stop
// together with the HTTP server.
var errShutdown = errors.New("shutdown")

func newRootRouter(cfg *Config, c *components, apiRouter http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := c.db.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)
	return r
}

// RunConvertOnce runs a single conversion pass and writes the report to out
// as JSON.
func RunConvertOnce(ctx context.Context, out io.Writer, opts ...Option) error {
	cfg, logger, err := newApplication(opts).init()
	if err != nil {
		return err
	}
	c, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	report, err := c.worker.RunOnce(ctx, conversion.TriggerManual)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RunImport imports each lead file once and writes the results to out as
// JSON. Every file is attempted; failures are joined into the returned error.
func RunImport(ctx context.Context, out io.Writer, files []string, opts ...Option) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to import")
	}
	cfg, logger, err := newApplication(opts).init()
	if err != nil {
		return err
	}
	c, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	var (
		results = make([]leadimport.Result, 0, len(files))
		errs    []error
	)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", f, err))
			continue
		}
		res, err := c.importer.ImportData(ctx, filepath.Base(f), data)
		if err != nil {
			logger.Error("import failed", slog.String("path", f), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("import %s: %w", f, err))
			continue
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	cfg, logger, err := newApplication(opts).init()
	if err != nil {
		return err
	}
	c, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	deps := mcpserver.Deps{
		CRM:       c.crm,
		Search:    c.search,
		Importer:  c.importer,
		Documents: c.documents,
		MinQuery:  cfg.Search.MinQueryLength,
	}
	if cfg.Worker.Enabled {
		deps.Runner = c.worker
	}
	logger.Info("MCP server starting on stdio")
	return mcpserver.New(deps).ServeStdio()
}
