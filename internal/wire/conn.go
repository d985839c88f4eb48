// SPDX-License-Identifier: MIT

package wire

import (
	"context"
	"fmt"

	"github.com/mhoffm/chatd/internal/creds"
)

// Version is the negotiated protocol version triple.
type Version [3]uint32

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// Conn is one live session handle: an event source plus the command
// interface bound to it. A Conn is owned exclusively by the session
// orchestrator and is never reused after its event source closes.
type Conn interface {
	// Events returns the ordered stream of event batches for this handle.
	// The channel is closed when the transport terminates.
	Events() <-chan Batch

	// Generation returns the handle generation assigned at dial time.
	// Batches stamped with an older generation belong to a torn-down
	// handle and must not reach the dispatcher.
	Generation() uint64

	// SendText sends a text message to a chat and returns the message ID.
	SendText(ctx context.Context, chatID, text string) (string, error)

	// MarkRead marks the given messages as read on the remote.
	MarkRead(ctx context.Context, keys []MessageKey) error

	// UpdateChatLabels adds and removes label associations on a chat.
	// Assigning an already-assigned label or removing an absent one is a
	// no-op on the remote, not an error.
	UpdateChatLabels(ctx context.Context, chatID string, add, remove []string) error

	// ProfilePictureURL resolves a contact's current profile picture URL.
	// Returns ErrNoPicture (wrapped) when the contact has none.
	ProfilePictureURL(ctx context.Context, contactID string) (string, error)

	// ResyncAppState requests a server-side resync of the named app-state
	// categories. Best effort; results arrive as regular events.
	ResyncAppState(ctx context.Context, categories []string, full bool) error

	// Close tears the handle down. Idempotent.
	Close() error
}

// Factory dials new connection handles. Dial failures wrap ErrHandshake;
// retrying is the session layer's job, at session-restart granularity.
type Factory interface {
	Dial(ctx context.Context, bundle *creds.Bundle, version Version) (Conn, error)
}
