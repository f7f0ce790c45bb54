// Package server runs the HTTP API: routing, graceful shutdown and live
// reload of the config file.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/deckforge/internal/config"
	"github.com/leapstack-labs/deckforge/internal/logging"
	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/router"
	"github.com/leapstack-labs/deckforge/internal/tasks"
)

const (
	shutdownTimeout = 5 * time.Second
	reloadDebounce  = 100 * time.Millisecond
)

// Config holds configuration for the API server.
type Config struct {
	Addr  string
	Deps  *features.Deps
	Tasks *tasks.Manager

	// ConfigFile is watched for changes when Watch is set. Log level and
	// provider defaults are re-applied on change.
	ConfigFile  string
	Watch       bool
	Log         *logging.Logger
	ProviderEnv *config.ProviderEnv
}

// Server is the API server.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new API server instance.
func New(cfg Config) *Server {
	logger := cfg.Deps.Log()
	return &Server{cfg: cfg, logger: logger}
}

// Handler builds the routed handler with the standard middleware stack.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5, "application/json", "text/markdown"),
	)
	if err := router.SetupRoutes(r, s.cfg.Deps); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the server and blocks until ctx is cancelled. Running tasks
// get the shutdown timeout to finish before they are cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info("starting API server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.ConfigFile != "" {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		err := srv.Shutdown(shutdownCtx)
		if s.cfg.Tasks != nil {
			if terr := s.cfg.Tasks.Shutdown(shutdownCtx); terr != nil {
				s.logger.Warn("tasks did not finish before shutdown", "error", terr)
			}
		}
		return err
	})

	return eg.Wait()
}

// watchConfig re-reads the config file when it changes. The parent
// directory is watched so editors that replace the file are seen.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	path := filepath.Clean(s.cfg.ConfigFile)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Error("failed to watch config file", "path", path, "error", err)
		// Keep serving without reload.
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				s.reload(path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reload applies the parts of the config that can change while serving.
func (s *Server) reload(path string) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		s.logger.Error("config reload failed", "path", path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Error("reloaded config is invalid", "path", path, "error", err)
		return
	}
	if s.cfg.Log != nil {
		s.cfg.Log.SetLevel(cfg.Log.Level)
	}
	if s.cfg.ProviderEnv != nil {
		s.cfg.ProviderEnv.Set(cfg)
	}
	s.logger.Info("config reloaded", "path", path, "log_level", cfg.Log.Level)
}
