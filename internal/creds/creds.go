// SPDX-License-Identifier: MIT

// Package creds persists the session credential bundle. The bundle's key
// material is opaque to this layer: it is produced and consumed by the
// transport, and only needs durable, atomic load/save primitives here.
package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// Bundle is the credential state of one session identity. It survives
// reconnects; the transport refreshes individual fields and pushes the
// whole bundle through a credentials-changed event.
type Bundle struct {
	AccountID   string `json:"accountId,omitempty"`
	DeviceID    int    `json:"deviceId,omitempty"`
	Registered  bool   `json:"registered"`
	NoiseKey    []byte `json:"noiseKey,omitempty"`
	IdentityKey []byte `json:"identityKey,omitempty"`
	AdvSecret   []byte `json:"advSecret,omitempty"`
}

// Clone returns a deep copy so callers can hold a snapshot while the
// transport keeps mutating its own bundle.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	out := *b
	out.NoiseKey = append([]byte(nil), b.NoiseKey...)
	out.IdentityKey = append([]byte(nil), b.IdentityKey...)
	out.AdvSecret = append([]byte(nil), b.AdvSecret...)
	return &out
}

// Store is the persistence collaborator for credential bundles.
type Store interface {
	// Load returns the persisted bundle, or a fresh unregistered bundle
	// when nothing has been persisted yet.
	Load() (*Bundle, error)

	// Save durably persists the bundle. Must complete before the caller
	// continues: a newer bundle may arrive with the next event batch and
	// only the latest written wins.
	Save(bundle *Bundle) error
}

const credsFile = "creds.json"

// FileStore persists the bundle as a single JSON file in a data
// directory, written atomically with fsync-before-rename semantics.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("creds: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creds: create data directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Load reads the persisted bundle. A missing file is not an error: it
// means a fresh, unregistered session.
func (s *FileStore) Load() (*Bundle, error) {
	path := filepath.Join(s.dir, credsFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info().Str("path", path).Msg("no persisted credentials, starting fresh session")
		return &Bundle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creds: read %s: %w", path, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("creds: parse %s: %w", path, err)
	}
	return &bundle, nil
}

// Save writes the bundle atomically. renameio handles temp file
// creation, fsync, atomic rename, and cleanup on error, so a crash
// mid-save never leaves a torn credential file behind.
func (s *FileStore) Save(bundle *Bundle) error {
	if bundle == nil {
		return fmt.Errorf("creds: bundle is nil")
	}
	path := filepath.Join(s.dir, credsFile)

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("creds: create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Msg("cleanup pending credentials file")
		}
	}()

	encoder := json.NewEncoder(pendingFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(bundle); err != nil {
		return fmt.Errorf("creds: encode bundle: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("creds: atomically replace credentials file: %w", err)
	}

	s.logger.Debug().
		Str("path", path).
		Str("account_id", bundle.AccountID).
		Bool("registered", bundle.Registered).
		Msg("credentials persisted")
	return nil
}

var _ Store = (*FileStore)(nil)
