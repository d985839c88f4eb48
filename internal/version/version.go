// SPDX-License-Identifier: MIT

// Package version discovers the protocol client version advertised by the
// remote service. The service rejects handshakes from stale clients, so the
// daemon asks once per process and pins the answer for every redial.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhoffm/chatd/internal/wire"
)

// Fallback is the pinned version used when discovery fails. Bump it when
// the service raises its floor.
var Fallback = wire.Version{2, 3000, 1015901307}

// Negotiator resolves the client version exactly once. Concurrent and
// repeated calls share the single fetch; a failed fetch resolves to the
// fallback and is not retried until the process restarts.
type Negotiator struct {
	serviceURL string
	client     *http.Client
	logger     zerolog.Logger

	once    sync.Once
	version wire.Version
}

// NewNegotiator creates a negotiator against the given service base URL.
func NewNegotiator(serviceURL string, logger zerolog.Logger) *Negotiator {
	return &Negotiator{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Resolve returns the negotiated client version, fetching it on first use.
func (n *Negotiator) Resolve(ctx context.Context) wire.Version {
	n.once.Do(func() {
		v, err := n.fetch(ctx)
		if err != nil {
			n.logger.Warn().Err(err).
				Str("fallback", Fallback.String()).
				Msg("version discovery failed, using pinned fallback")
			n.version = Fallback
			return
		}
		n.logger.Info().Str("version", v.String()).Msg("negotiated client version")
		n.version = v
	})
	return n.version
}

func (n *Negotiator) fetch(ctx context.Context) (wire.Version, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.serviceURL+"/client/version", nil)
	if err != nil {
		return wire.Version{}, fmt.Errorf("version: build request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return wire.Version{}, fmt.Errorf("version: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wire.Version{}, fmt.Errorf("version: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return wire.Version{}, fmt.Errorf("version: read body: %w", err)
	}

	var payload struct {
		Primary   uint32 `json:"primary"`
		Secondary uint32 `json:"secondary"`
		Tertiary  uint32 `json:"tertiary"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return wire.Version{}, fmt.Errorf("version: decode body: %w", err)
	}
	if payload.Primary == 0 {
		return wire.Version{}, fmt.Errorf("version: service returned zero primary version")
	}
	return wire.Version{payload.Primary, payload.Secondary, payload.Tertiary}, nil
}
