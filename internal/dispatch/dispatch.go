// SPDX-License-Identifier: MIT

// Package dispatch routes event batches from one connection handle to
// per-category handlers. A single worker processes batches strictly in
// arrival order; that sequencing is the core correctness mechanism
// against interleaved reconnects and duplicated side effects.
package dispatch

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mhoffm/chatd/internal/command"
	"github.com/mhoffm/chatd/internal/creds"
	"github.com/mhoffm/chatd/internal/log"
	"github.com/mhoffm/chatd/internal/metrics"
	"github.com/mhoffm/chatd/internal/retrycache"
	"github.com/mhoffm/chatd/internal/store"
	"github.com/mhoffm/chatd/internal/wire"
)

// A message that fails decryption this many times is abandoned.
const maxDecryptRetries = 5

// dispatchOrder fixes the within-batch category handling order.
// Credentials come first: a bundle rotation must be durable before any
// handler acts on events that may already assume the new session keys.
var dispatchOrder = []wire.Category{
	wire.CategoryCredentials,
	wire.CategoryConnection,
	wire.CategoryLabels,
	wire.CategoryMessages,
	wire.CategoryMessageUpdates,
	wire.CategoryReceipts,
	wire.CategoryReactions,
	wire.CategoryPresence,
	wire.CategoryChats,
	wire.CategoryChatsDelete,
	wire.CategoryContacts,
	wire.CategoryCalls,
}

// Deps carries the reconnect-surviving collaborators. None of them is
// owned by the dispatcher; a fresh dispatcher per handle reuses them.
type Deps struct {
	Store    store.Store
	Creds    creds.Store
	Retries  retrycache.Counter
	Executor *command.Executor
	Commands *command.Interpreter

	// OnConnectionUpdate receives every connection-state-changed event,
	// raw. The session layer drives its reconnect machine from it.
	OnConnectionUpdate func(wire.ConnectionUpdate)
}

// Dispatcher processes batches for exactly one connection handle. It is
// torn down with the handle; Deps survive into the next one.
type Dispatcher struct {
	conn   wire.Conn
	deps   Deps
	logger zerolog.Logger

	// bg tracks the sanctioned fire-and-forget work (profile picture
	// resolution) so teardown can wait it out.
	bg *errgroup.Group
}

// New creates a dispatcher bound to one handle.
func New(conn wire.Conn, deps Deps, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		conn:   conn,
		deps:   deps,
		logger: logger,
		bg:     &errgroup.Group{},
	}
}

// Process handles one batch. Handlers run in the fixed category order;
// categories absent from the batch are skipped. A fault in one handler
// is contained and logged, never aborting sibling categories.
func (d *Dispatcher) Process(ctx context.Context, batch wire.Batch) {
	ctx = log.ContextWithBatchSeq(ctx, batch.Seq)
	metrics.IncBatch()

	for _, cat := range dispatchOrder {
		for _, ev := range batch.Events {
			if ev.Category() != cat {
				continue
			}
			d.handle(ctx, ev)
		}
	}
}

// Wait blocks until all fire-and-forget work spawned so far has finished.
// Called on handle teardown.
func (d *Dispatcher) Wait() {
	d.bg.Wait() //nolint:errcheck // best-effort tasks never return errors
}

func (d *Dispatcher) handle(ctx context.Context, ev wire.Event) {
	cat := string(ev.Category())
	metrics.IncEvent(cat)

	defer func() {
		if r := recover(); r != nil {
			metrics.IncHandlerFailure(cat)
			d.logger.Error().
				Str(log.FieldCategory, cat).
				Interface("panic", r).
				Msg("event handler panicked, contained")
		}
	}()

	switch e := ev.(type) {
	case wire.ConnectionUpdate:
		d.handleConnection(ctx, e)
	case wire.CredentialsUpdate:
		d.handleCredentials(ctx, e)
	case wire.MessagesUpsert:
		d.handleMessages(ctx, e)
	case wire.MessageUpdate:
		d.handleMessageUpdate(ctx, e)
	case wire.Receipt:
		d.logger.Debug().
			Str(log.FieldChatID, e.Key.ChatID).
			Str(log.FieldMessageID, e.Key.MessageID).
			Str("receipt", e.Type).
			Msg("receipt updated")
	case wire.Reaction:
		d.logger.Debug().
			Str(log.FieldChatID, e.Key.ChatID).
			Str(log.FieldMessageID, e.Key.MessageID).
			Str("emoji", e.Emoji).
			Msg("reaction received")
	case wire.Presence:
		d.logger.Debug().
			Str(log.FieldChatID, e.ChatID).
			Str(log.FieldContactID, e.UserID).
			Str("presence", e.State).
			Msg("presence changed")
	case wire.ChatsUpdate:
		d.logger.Debug().Int("chats", len(e.Chats)).Msg("chats updated")
	case wire.ChatsDelete:
		d.logger.Debug().Strs("chat_ids", e.ChatIDs).Msg("chats deleted")
	case wire.ContactsUpdate:
		d.handleContacts(ctx, e)
	case wire.LabelsUpdate:
		d.handleLabels(e)
	case wire.Call:
		d.logger.Info().
			Str(log.FieldChatID, e.ChatID).
			Str("from", e.From).
			Str("status", e.Status).
			Msg("call received")
	default:
		d.logger.Warn().Str(log.FieldCategory, cat).Msg("event without handler")
	}
}

func (d *Dispatcher) handleConnection(_ context.Context, e wire.ConnectionUpdate) {
	evt := d.logger.Info().
		Str(log.FieldNewState, string(e.State))
	if e.State == wire.StateClosed {
		evt = evt.Int("status", e.StatusCode).Str(log.FieldCause, string(e.Cause()))
	}
	evt.Msg("connection state changed")

	if d.deps.OnConnectionUpdate != nil {
		d.deps.OnConnectionUpdate(e)
	}
}

// handleCredentials persists the rotated bundle synchronously: the bundle
// may rotate again before the next batch, and only the latest write may
// win.
func (d *Dispatcher) handleCredentials(_ context.Context, e wire.CredentialsUpdate) {
	if e.Bundle == nil {
		metrics.IncCredentialSave("failure")
		d.logger.Error().Msg("credentials update without bundle")
		return
	}
	if err := d.deps.Creds.Save(e.Bundle); err != nil {
		metrics.IncCredentialSave("failure")
		d.logger.Error().Err(err).Msg("credential save failed")
		return
	}
	metrics.IncCredentialSave("success")
	d.logger.Info().Str("account_id", e.Bundle.AccountID).Msg("credentials persisted")
}

// handleMessages marks self-authored notify messages read and feeds their
// text to the command path. Texts from other senders never reach the
// interpreter.
func (d *Dispatcher) handleMessages(ctx context.Context, e wire.MessagesUpsert) {
	if e.Type != wire.UpsertNotify {
		d.logger.Debug().
			Str("upsert_type", string(e.Type)).
			Int("messages", len(e.Messages)).
			Msg("history messages observed")
		return
	}

	for _, msg := range e.Messages {
		// Delivery means decryption succeeded; drop any retry state.
		if err := d.deps.Retries.Reset(ctx, msg.Key.MessageID); err != nil {
			d.logger.Warn().Err(err).
				Str(log.FieldMessageID, msg.Key.MessageID).
				Msg("retry counter reset failed")
		}

		if !msg.Key.FromSelf {
			d.logger.Debug().
				Str(log.FieldChatID, msg.Key.ChatID).
				Str(log.FieldMessageID, msg.Key.MessageID).
				Str(log.FieldContactID, msg.SenderID).
				Msg("message received")
			continue
		}

		if err := d.conn.MarkRead(ctx, []wire.MessageKey{msg.Key}); err != nil {
			d.logger.Warn().Err(err).
				Str(log.FieldMessageID, msg.Key.MessageID).
				Msg("mark read failed")
		}

		if msg.Text == "" {
			continue
		}
		cmd, ok := d.deps.Commands.Parse(msg.Text)
		if !ok {
			continue
		}
		if err := d.deps.Executor.Execute(ctx, d.conn, msg.Key.ChatID, cmd); err != nil {
			if errors.Is(err, store.ErrLabelsNotReady) {
				continue // already reported by the executor
			}
			metrics.IncHandlerFailure(string(wire.CategoryMessages))
			d.logger.Error().Err(err).
				Str(log.FieldChatID, msg.Key.ChatID).
				Str(log.FieldVerb, string(cmd.Verb)).
				Msg("command execution failed")
		}
	}
}

// handleMessageUpdate tracks decryption failures in the reconnect-
// surviving retry counter. The crypto layer performs the retries; this
// layer only budgets them.
func (d *Dispatcher) handleMessageUpdate(ctx context.Context, e wire.MessageUpdate) {
	logger := d.logger.With().
		Str(log.FieldChatID, e.Key.ChatID).
		Str(log.FieldMessageID, e.Key.MessageID).
		Str("status", e.Status).
		Logger()

	if e.Status != "decrypt_failed" {
		logger.Debug().Msg("message updated")
		return
	}

	count, err := d.deps.Retries.Incr(ctx, e.Key.MessageID)
	if err != nil {
		logger.Warn().Err(err).Msg("retry counter increment failed")
		return
	}
	if count > maxDecryptRetries {
		logger.Warn().Int("retries", count).Msg("decrypt retry budget exhausted, message abandoned")
		return
	}
	logger.Debug().Int("retries", count).Msg("decrypt failure counted")
}

// handleContacts resolves changed profile pictures in the background.
// Resolution is best-effort: a contact without a picture, or a transient
// lookup failure, degrades to "nothing changed" and never blocks or
// aborts the batch.
func (d *Dispatcher) handleContacts(ctx context.Context, e wire.ContactsUpdate) {
	for _, contact := range e.Contacts {
		if contact.PictureID == "" {
			continue
		}
		contact := contact
		d.bg.Go(func() error {
			url, err := d.conn.ProfilePictureURL(ctx, contact.ID)
			switch {
			case errors.Is(err, wire.ErrNoPicture):
				metrics.IncPictureRefresh("missing")
				d.logger.Debug().
					Str(log.FieldContactID, contact.ID).
					Msg("contact has no profile picture")
			case err != nil:
				metrics.IncPictureRefresh("error")
				d.logger.Debug().Err(err).
					Str(log.FieldContactID, contact.ID).
					Msg("profile picture resolution failed")
			default:
				metrics.IncPictureRefresh("resolved")
				d.logger.Info().
					Str(log.FieldContactID, contact.ID).
					Str("url", url).
					Msg("profile picture resolved")
			}
			return nil
		})
	}
}

func (d *Dispatcher) handleLabels(e wire.LabelsUpdate) {
	if e.Snapshot {
		metrics.RecordLabelsKnown(len(e.Labels))
	}
	d.logger.Info().
		Bool("snapshot", e.Snapshot).
		Int("labels", len(e.Labels)).
		Msg("label set updated")
}
