// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration from the environment.
// Precedence is environment variables over built-in defaults; there is
// no config file, the daemon is designed for container deployments.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// AppConfig is the full daemon configuration.
type AppConfig struct {
	// DataDir holds the credential file and the badger mirror.
	DataDir string

	// StoreBackend selects the mirror backend ("memory" or "badger").
	StoreBackend string

	// ServiceURL is the remote chat service base URL, used for protocol
	// version discovery.
	ServiceURL string

	// CommandPrefix is the reserved prefix for self-sent text commands.
	CommandPrefix string

	// SelfID is the local account identity used by the simulated
	// transport. A real transport learns it during the handshake.
	SelfID string

	// Sim selects the in-process simulated transport instead of a real
	// wire connection.
	Sim bool

	// Reconnect policy.
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration

	// Metrics / admin server.
	MetricsEnabled bool
	MetricsListen  string

	// Redis retry counter. Empty RedisAddr selects the in-process counter.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RetryTTL      time.Duration

	LogLevel string
}

// FromEnv builds the configuration from CHATD_* environment variables.
func FromEnv() AppConfig {
	return AppConfig{
		DataDir:               ParseString("CHATD_DATA", "/var/lib/chatd"),
		StoreBackend:          ParseString("CHATD_STORE_BACKEND", "memory"),
		ServiceURL:            ParseString("CHATD_SERVICE_URL", "https://web.chat.example"),
		CommandPrefix:         ParseString("CHATD_COMMAND_PREFIX", "/"),
		SelfID:                ParseString("CHATD_SELF_ID", "self@chatd.sim"),
		Sim:                   ParseBool("CHATD_SIM", false),
		ReconnectInitialDelay: ParseDuration("CHATD_RECONNECT_INITIAL_DELAY", time.Second),
		ReconnectMaxDelay:     ParseDuration("CHATD_RECONNECT_MAX_DELAY", 32*time.Second),
		MetricsEnabled:        ParseBool("CHATD_METRICS_ENABLED", true),
		MetricsListen:         ParseString("CHATD_METRICS_LISTEN", ":9090"),
		RedisAddr:             ParseString("CHATD_REDIS_ADDR", ""),
		RedisPassword:         ParseString("CHATD_REDIS_PASSWORD", ""),
		RedisDB:               ParseInt("CHATD_REDIS_DB", 0),
		RetryTTL:              ParseDuration("CHATD_RETRY_TTL", 24*time.Hour),
		LogLevel:              ParseString("CHATD_LOG_LEVEL", "info"),
	}
}

// Validate collects every configuration problem instead of failing on the
// first one, so a broken deployment surfaces all mistakes at once.
func (c AppConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data directory must not be empty"))
	}
	switch c.StoreBackend {
	case "memory", "badger":
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}
	if r, n := utf8.DecodeRuneInString(c.CommandPrefix); n == 0 || len(c.CommandPrefix) != n || unicode.IsSpace(r) {
		errs = append(errs, fmt.Errorf("command prefix must be a single non-space character, got %q", c.CommandPrefix))
	}
	if c.ReconnectInitialDelay <= 0 {
		errs = append(errs, errors.New("reconnect initial delay must be positive"))
	}
	if c.ReconnectMaxDelay < c.ReconnectInitialDelay {
		errs = append(errs, errors.New("reconnect max delay must be >= initial delay"))
	}
	if c.MetricsEnabled && strings.TrimSpace(c.MetricsListen) == "" {
		errs = append(errs, errors.New("metrics listen address must not be empty when metrics are enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
