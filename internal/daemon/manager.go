// SPDX-License-Identifier: MIT

// Package daemon owns process lifecycle: it runs the session orchestrator
// and the admin HTTP server, and tears everything down in reverse
// registration order on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhoffm/chatd/internal/wire"
)

// ErrManagerNotStarted is returned by Shutdown before Start.
var ErrManagerNotStarted = errors.New("daemon: manager not started")

// ShutdownHook is a cleanup function run during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Runner is the long-lived session loop the manager supervises.
type Runner interface {
	Run(ctx context.Context) error
}

// Config tunes the manager.
type Config struct {
	// AdminAddr is the admin/metrics listen address; empty disables the
	// server.
	AdminAddr string

	// ShutdownTimeout bounds graceful shutdown. Defaults to 30s.
	ShutdownTimeout time.Duration
}

// Deps are the manager's collaborators.
type Deps struct {
	Session      Runner
	AdminHandler http.Handler
	Logger       zerolog.Logger
}

// Manager manages the daemon lifecycle: starting the session and servers,
// handling shutdown.
type Manager struct {
	cfg  Config
	deps Deps

	adminServer *http.Server

	mu            sync.Mutex
	started       bool
	stopping      bool
	shutdownHooks []namedHook

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a daemon manager.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Session == nil {
		return nil, errors.New("daemon: session runner is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

// Start runs the session and the admin server, blocking until the context
// is cancelled, the session ends, or a server fails. A remote logout ends
// the session loop; it is reported as the final error after a clean
// shutdown.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("daemon: manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("admin_addr", m.cfg.AdminAddr).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("starting daemon")

	errChan := make(chan error, 2)

	if m.cfg.AdminAddr != "" && m.deps.AdminHandler != nil {
		m.startAdminServer(errChan)
	}

	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()
	go func() {
		errChan <- m.deps.Session.Run(sessionCtx)
	}()

	var cause error
	select {
	case err := <-errChan:
		switch {
		case errors.Is(err, wire.ErrLoggedOut):
			// Terminal by design: surface it, do not mask it with the
			// shutdown result.
			m.logger.Error().Msg("session ended: logged out remotely")
			cause = err
		case err != nil && !errors.Is(err, context.Canceled):
			m.logger.Error().Err(err).Msg("component failed, initiating shutdown")
			cause = err
		}
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
	}

	cancelSession()

	// Detached but bounded, so shutdown completes even when the parent
	// context is already cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()
	if err := m.Shutdown(shutdownCtx); err != nil {
		if cause != nil {
			return errors.Join(cause, err)
		}
		return err
	}
	return cause
}

func (m *Manager) startAdminServer(errChan chan<- error) {
	m.adminServer = &http.Server{
		Addr:              m.cfg.AdminAddr,
		Handler:           m.deps.AdminHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info().Str("addr", m.cfg.AdminAddr).Msg("admin server listening")
		if err := m.adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("admin server failed")
			errChan <- fmt.Errorf("admin server: %w", err)
		}
	}()
}

// Shutdown stops the admin server and runs the shutdown hooks in LIFO
// order. Safe to call once; later calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down")

	var errs []error

	if m.adminServer != nil {
		if err := m.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			m.logger.Error().Err(err).
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", h.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("daemon: shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Msg("stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function, executed in reverse
// registration order during shutdown.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
