// SPDX-License-Identifier: MIT

// Package store mirrors remote entity state (messages, chats, contacts,
// labels) locally. The remote service is the source of truth; the mirror
// is updated by binding a store to a connection's event stream and is
// only valid for label queries after the one-time labels-ready signal.
package store

import (
	"context"
	"errors"

	"github.com/mhoffm/chatd/internal/wire"
)

// ErrLabelsNotReady is returned by Labels before the session's one-time
// labels-ready signal has fired. Recoverable: callers skip and retry on
// a later event.
var ErrLabelsNotReady = errors.New("store: label set not synced yet")

// Store is the adapter over the mirrored entity state. Implementations
// must support concurrent readers with a single writer (the dispatcher).
type Store interface {
	// PutMessage stores one mirrored message.
	PutMessage(ctx context.Context, msg wire.Message) error

	// LoadMessage returns a mirrored message, or nil when unknown.
	LoadMessage(ctx context.Context, chatID, messageID string) (*wire.Message, error)

	// UpsertChat creates or updates a mirrored chat.
	UpsertChat(ctx context.Context, chat wire.Chat) error

	// Chat returns a mirrored chat, or nil when unknown.
	Chat(ctx context.Context, chatID string) (*wire.Chat, error)

	// DeleteChat removes a mirrored chat. Deleting an unknown chat is a no-op.
	DeleteChat(ctx context.Context, chatID string) error

	// UpsertContact creates or updates a mirrored contact.
	UpsertContact(ctx context.Context, contact wire.Contact) error

	// Contact returns a mirrored contact, or nil when unknown.
	Contact(ctx context.Context, contactID string) (*wire.Contact, error)

	// UpsertLabel caches one label from the remote inventory.
	UpsertLabel(ctx context.Context, label wire.Label) error

	// DeleteLabel drops a label from the cache. Unknown IDs are a no-op.
	DeleteLabel(ctx context.Context, labelID string) error

	// Labels returns the cached label set. Fails with ErrLabelsNotReady
	// before the labels-ready signal has fired for this process.
	Labels(ctx context.Context) ([]wire.Label, error)

	// SetLabelsReady arms the one-time labels-ready signal. Subsequent
	// calls are no-ops.
	SetLabelsReady()

	// LabelsReady returns a channel closed once the label cache is valid.
	LabelsReady() <-chan struct{}

	// Close releases backend resources.
	Close() error
}

// Apply folds one event batch into the mirror. Categories that carry no
// mirrored state are skipped. A labels snapshot replaces nothing — label
// rows are upserted — but it arms the labels-ready signal.
func Apply(ctx context.Context, s Store, batch wire.Batch) error {
	for _, ev := range batch.Events {
		var err error
		switch payload := ev.(type) {
		case wire.MessagesUpsert:
			for _, msg := range payload.Messages {
				if err = s.PutMessage(ctx, msg); err != nil {
					break
				}
			}
		case wire.ChatsUpdate:
			for _, chat := range payload.Chats {
				if err = s.UpsertChat(ctx, chat); err != nil {
					break
				}
			}
		case wire.ChatsDelete:
			for _, chatID := range payload.ChatIDs {
				if err = s.DeleteChat(ctx, chatID); err != nil {
					break
				}
			}
		case wire.ContactsUpdate:
			for _, contact := range payload.Contacts {
				if err = s.UpsertContact(ctx, contact); err != nil {
					break
				}
			}
		case wire.LabelsUpdate:
			for _, label := range payload.Labels {
				if err = s.UpsertLabel(ctx, label); err != nil {
					break
				}
			}
			if err == nil && payload.Snapshot {
				s.SetLabelsReady()
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Bind consumes batches from source and folds them into the mirror until
// the source closes or ctx is cancelled. The returned channel closes
// when the loop exits.
func Bind(ctx context.Context, s Store, source <-chan wire.Batch) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-source:
				if !ok {
					return
				}
				// Mirror updates are best effort per batch: a failed write
				// is logged by the backend, not fatal to the binding.
				_ = Apply(ctx, s, batch)
			}
		}
	}()
	return done
}
