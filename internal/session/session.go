// SPDX-License-Identifier: MIT

// Package session owns the connection lifecycle: it dials handles through
// the factory, pumps their event batches through the store and the
// dispatcher, and decides after every closure whether to redial. At most
// one handle is active at a time; a handle is destroyed on closure and
// never reused.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhoffm/chatd/internal/command"
	"github.com/mhoffm/chatd/internal/creds"
	"github.com/mhoffm/chatd/internal/dispatch"
	"github.com/mhoffm/chatd/internal/log"
	"github.com/mhoffm/chatd/internal/metrics"
	"github.com/mhoffm/chatd/internal/retrycache"
	"github.com/mhoffm/chatd/internal/store"
	"github.com/mhoffm/chatd/internal/wire"
)

// resyncCategories is the app-state collection requested after every
// open. The labels snapshot arrives in response.
var resyncCategories = []string{"regular"}

// Config tunes the reconnect policy.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Deps are the reconnect-surviving collaborators. The retry counter in
// particular must be created once per process: recreating it per handle
// would reopen the retry budget of every undecryptable message on each
// reconnect.
type Deps struct {
	Factory  wire.Factory
	Creds    creds.Store
	Store    store.Store
	Retries  retrycache.Counter
	Executor *command.Executor
	Commands *command.Interpreter

	// ResolveVersion returns the negotiated protocol version. Called once
	// per dial; the negotiator behind it caches the answer.
	ResolveVersion func(ctx context.Context) wire.Version
}

// Orchestrator runs the reconnect loop.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger

	// wait is the interruptible backoff sleep, injected in tests.
	wait func(ctx context.Context, d time.Duration) bool
}

// New creates an orchestrator. Config zero values get the 1s..32s default
// policy.
func New(deps Deps, cfg Config, logger zerolog.Logger) *Orchestrator {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = 32 * time.Second
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		wait: func(ctx context.Context, d time.Duration) bool {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return false
			case <-t.C:
				return true
			}
		},
	}
}

// Run drives the session until the context is cancelled or the account is
// logged out remotely. A logged-out closure is terminal: Run reports it
// with wire.ErrLoggedOut and never redials; the caller owns whether the
// process exits.
func (o *Orchestrator) Run(ctx context.Context) error {
	backoff := NewBackoff(o.cfg.InitialDelay, o.cfg.MaxDelay)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		bundle, err := o.deps.Creds.Load()
		if err != nil {
			return fmt.Errorf("session: load credentials: %w", err)
		}
		ver := o.deps.ResolveVersion(ctx)

		metrics.SetConnectionState("connecting")
		o.logger.Info().Str("version", ver.String()).Msg("dialing")

		conn, err := o.deps.Factory.Dial(ctx, bundle, ver)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A handshake failure is modeled like a transient close.
			metrics.IncDialFailure()
			d := backoff.Next()
			o.logger.Warn().Err(err).Dur("retry_in", d).Msg("dial failed")
			if !o.wait(ctx, d) {
				return ctx.Err()
			}
			continue
		}

		cause := o.runHandle(ctx, conn, backoff)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cause == wire.CauseLoggedOut {
			metrics.SetConnectionState("closed")
			o.logger.Error().Msg("logged out remotely, session will not be recreated")
			return wire.ErrLoggedOut
		}

		metrics.IncReconnect(string(cause))
		d := backoff.Next()
		o.logger.Info().
			Str(log.FieldCause, string(cause)).
			Dur("retry_in", d).
			Msg("connection closed, reconnecting")
		if !o.wait(ctx, d) {
			return ctx.Err()
		}
	}
}

// runHandle pumps one handle's event stream to exhaustion and returns the
// disconnect cause. It tears the handle fully down before returning so
// the next handle never sees duplicate deliveries.
func (o *Orchestrator) runHandle(ctx context.Context, conn wire.Conn, backoff *Backoff) wire.DisconnectCause {
	handleCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := conn.Generation()
	logger := o.logger.With().Uint64(log.FieldHandleGen, gen).Logger()

	// A stream that ends without a closure event (local teardown, EOF) is
	// retried conservatively.
	cause := wire.CauseUnknown

	var bg sync.WaitGroup

	disp := dispatch.New(conn, dispatch.Deps{
		Store:    o.deps.Store,
		Creds:    o.deps.Creds,
		Retries:  o.deps.Retries,
		Executor: o.deps.Executor,
		Commands: o.deps.Commands,
		OnConnectionUpdate: func(u wire.ConnectionUpdate) {
			switch u.State {
			case wire.StateOpen:
				metrics.SetConnectionState("open")
				backoff.Reset()
				o.onOpen(handleCtx, conn, &bg, logger)
			case wire.StateClosed:
				metrics.SetConnectionState("closed")
				cause = u.Cause()
			}
		},
	}, logger)

	defer func() {
		cancel()
		_ = conn.Close()
		disp.Wait()
		bg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return cause
		case batch, ok := <-conn.Events():
			if !ok {
				return cause
			}
			if batch.Gen != gen {
				metrics.IncStaleBatch()
				logger.Warn().
					Uint64("batch_gen", batch.Gen).
					Uint64(log.FieldBatchSeq, batch.Seq).
					Msg("dropping batch from torn-down handle")
				continue
			}
			if err := store.Apply(handleCtx, o.deps.Store, batch); err != nil {
				logger.Error().Err(err).
					Uint64(log.FieldBatchSeq, batch.Seq).
					Msg("store apply failed")
			}
			disp.Process(handleCtx, batch)
		}
	}
}

// onOpen triggers the two sanctioned fire-and-forget side effects of an
// open transition: the app-state resync and the labels-ready watch. Both
// are bound to the handle context and die with the handle.
func (o *Orchestrator) onOpen(ctx context.Context, conn wire.Conn, bg *sync.WaitGroup, logger zerolog.Logger) {
	bg.Add(2)
	go func() {
		defer bg.Done()
		if err := conn.ResyncAppState(ctx, resyncCategories, false); err != nil {
			logger.Warn().Err(err).Msg("app state resync failed")
		}
	}()

	go func() {
		defer bg.Done()
		select {
		case <-ctx.Done():
		case <-o.deps.Store.LabelsReady():
			labels, err := o.deps.Store.Labels(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("label set unavailable after sync")
				return
			}
			names := make([]string, len(labels))
			for i, l := range labels {
				names[i] = l.Name
			}
			logger.Info().
				Int("labels", len(names)).
				Str("names", strings.Join(names, ", ")).
				Msg("label set synced")
		}
	}()
}
