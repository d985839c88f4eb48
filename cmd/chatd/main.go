// SPDX-License-Identifier: MIT

// chatd keeps a long-lived session to a chat service alive: it mirrors
// remote state locally, survives transient disconnects, and executes
// label commands embedded in self-sent messages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mhoffm/chatd/internal/command"
	"github.com/mhoffm/chatd/internal/config"
	"github.com/mhoffm/chatd/internal/creds"
	"github.com/mhoffm/chatd/internal/daemon"
	"github.com/mhoffm/chatd/internal/log"
	"github.com/mhoffm/chatd/internal/retrycache"
	"github.com/mhoffm/chatd/internal/session"
	"github.com/mhoffm/chatd/internal/store"
	"github.com/mhoffm/chatd/internal/version"
	"github.com/mhoffm/chatd/internal/wire"
)

var (
	buildVersion = "dev"
	commit       = "none"
	buildDate    = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatd %s (commit: %s, built: %s)\n", buildVersion, commit, buildDate)
		os.Exit(0)
	}

	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("cannot create data directory")
	}

	st, err := store.Open(cfg.StoreBackend, filepath.Join(cfg.DataDir, "store"))
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open store")
	}

	credStore, err := creds.NewFileStore(cfg.DataDir, log.WithComponent("creds"))
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open credential store")
	}

	retries, err := openRetryCounter(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open retry counter")
	}

	factory, err := openFactory(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot build connection factory")
	}

	negotiator := version.NewNegotiator(cfg.ServiceURL, log.WithComponent("version"))

	orch := session.New(session.Deps{
		Factory:        factory,
		Creds:          credStore,
		Store:          st,
		Retries:        retries,
		Executor:       command.NewExecutor(st, log.WithComponent("command")),
		Commands:       command.NewInterpreter(cfg.CommandPrefix),
		ResolveVersion: negotiator.Resolve,
	}, session.Config{
		InitialDelay: cfg.ReconnectInitialDelay,
		MaxDelay:     cfg.ReconnectMaxDelay,
	}, log.WithComponent("session"))

	mgrCfg := daemon.Config{}
	deps := daemon.Deps{
		Session: orch,
		Logger:  log.Base(),
	}
	if cfg.MetricsEnabled {
		mgrCfg.AdminAddr = cfg.MetricsListen
		deps.AdminHandler = daemon.AdminRouter(st, log.WithComponent("admin"))
	}

	mgr, err := daemon.NewManager(mgrCfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create daemon manager")
	}
	mgr.RegisterShutdownHook("store", func(context.Context) error { return st.Close() })
	mgr.RegisterShutdownHook("retrycache", func(context.Context) error { return retries.Close() })

	err = mgr.Start(ctx)
	switch {
	case errors.Is(err, wire.ErrLoggedOut):
		// Deliberate stop signal, not a crash: the account must re-pair.
		logger.Error().Msg("logged out remotely; re-pair the device and restart")
		os.Exit(2)
	case err != nil:
		logger.Error().Err(err).Msg("daemon failed")
		os.Exit(1)
	}
}

func openRetryCounter(cfg config.AppConfig) (retrycache.Counter, error) {
	if cfg.RedisAddr == "" {
		return retrycache.NewMemoryCounter(), nil
	}
	return retrycache.NewRedisCounter(retrycache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.RetryTTL,
	}, log.WithComponent("retrycache"))
}

// openFactory selects the transport. The wire protocol implementation is
// an external collaborator; this build ships only the simulated one.
func openFactory(cfg config.AppConfig) (wire.Factory, error) {
	if !cfg.Sim {
		return nil, errors.New("no wire transport linked in this build, set CHATD_SIM=true")
	}
	return &wire.SimFactory{SelfID: cfg.SelfID, AutoOpen: true}, nil
}
