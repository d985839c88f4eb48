// SPDX-License-Identifier: MIT

package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.CommandPrefix != "/" {
		t.Errorf("CommandPrefix = %q, want /", cfg.CommandPrefix)
	}
	if cfg.ReconnectInitialDelay != time.Second {
		t.Errorf("ReconnectInitialDelay = %v, want 1s", cfg.ReconnectInitialDelay)
	}
	if cfg.ReconnectMaxDelay != 32*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 32s", cfg.ReconnectMaxDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CHATD_STORE_BACKEND", "badger")
	t.Setenv("CHATD_COMMAND_PREFIX", "!")
	t.Setenv("CHATD_RECONNECT_MAX_DELAY", "2m")
	t.Setenv("CHATD_SIM", "true")
	t.Setenv("CHATD_REDIS_DB", "3")

	cfg := FromEnv()
	if cfg.StoreBackend != "badger" {
		t.Errorf("StoreBackend = %q, want badger", cfg.StoreBackend)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want !", cfg.CommandPrefix)
	}
	if cfg.ReconnectMaxDelay != 2*time.Minute {
		t.Errorf("ReconnectMaxDelay = %v, want 2m", cfg.ReconnectMaxDelay)
	}
	if !cfg.Sim {
		t.Error("Sim = false, want true")
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CHATD_REDIS_DB", "not-a-number")
	t.Setenv("CHATD_SIM", "maybe")
	t.Setenv("CHATD_RECONNECT_MAX_DELAY", "soon")

	cfg := FromEnv()
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want default 0", cfg.RedisDB)
	}
	if cfg.Sim {
		t.Error("Sim = true, want default false")
	}
	if cfg.ReconnectMaxDelay != 32*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want default 32s", cfg.ReconnectMaxDelay)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := AppConfig{
		DataDir:               " ",
		StoreBackend:          "bolt",
		CommandPrefix:         "!!",
		ReconnectInitialDelay: 0,
		ReconnectMaxDelay:     -time.Second,
		MetricsEnabled:        true,
		MetricsListen:         "",
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"data directory",
		"store backend",
		"command prefix",
		"initial delay",
		"max delay",
		"metrics listen",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidateCommandPrefix(t *testing.T) {
	base := FromEnv()

	tests := []struct {
		prefix string
		ok     bool
	}{
		{"/", true},
		{"!", true},
		{"§", true}, // multi-byte single rune
		{"", false},
		{" ", false},
		{"//", false},
	}
	for _, tt := range tests {
		cfg := base
		cfg.CommandPrefix = tt.prefix
		err := cfg.Validate()
		if tt.ok && err != nil {
			t.Errorf("prefix %q: unexpected error %v", tt.prefix, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("prefix %q: expected error", tt.prefix)
		}
	}
}
