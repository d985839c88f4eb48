// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mhoffm/chatd/internal/metrics"
	"github.com/mhoffm/chatd/internal/store"
	"github.com/mhoffm/chatd/internal/wire"
)

// LabelConn is the slice of the connection handle the executor needs.
type LabelConn interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
	UpdateChatLabels(ctx context.Context, chatID string, addIDs, removeIDs []string) error
}

// Executor resolves parsed commands against the mirrored label set and
// applies them through the connection handle.
type Executor struct {
	store  store.Store
	logger zerolog.Logger
}

// NewExecutor creates an executor over the mirrored store.
func NewExecutor(st store.Store, logger zerolog.Logger) *Executor {
	return &Executor{store: st, logger: logger}
}

// Execute applies a command to the chat it was issued in.
//
// The label set must already be synced; before the labels-ready signal the
// command is skipped with store.ErrLabelsNotReady, never queued. An argument
// that matches no label name produces a reply enumerating the known names
// and applies nothing. Re-issuing a command is safe: label assignment is
// set-semantic at the remote service.
func (e *Executor) Execute(ctx context.Context, conn LabelConn, chatID string, cmd Command) error {
	if chatID == "" {
		metrics.IncCommand(string(cmd.Verb), "error")
		return &wire.ConnError{Sentinel: wire.ErrMissingField, Operation: "command", Err: errors.New("empty chat id")}
	}

	labels, err := e.store.Labels(ctx)
	if err != nil {
		if errors.Is(err, store.ErrLabelsNotReady) {
			e.logger.Warn().
				Str("verb", string(cmd.Verb)).
				Str("chat_id", chatID).
				Msg("label set not synced yet, command skipped")
			metrics.IncCommand(string(cmd.Verb), "not_ready")
			return err
		}
		metrics.IncCommand(string(cmd.Verb), "error")
		return fmt.Errorf("command: load labels: %w", err)
	}

	match, known := resolveLabel(labels, cmd.LabelName)
	if match == nil {
		reply := unknownLabelReply(cmd.LabelName, known)
		if _, err := conn.SendText(ctx, chatID, reply); err != nil {
			metrics.IncCommand(string(cmd.Verb), "error")
			return fmt.Errorf("command: send unknown-label reply: %w", err)
		}
		metrics.IncCommand(string(cmd.Verb), "unknown_label")
		return nil
	}

	var addIDs, removeIDs []string
	switch cmd.Verb {
	case VerbLabel:
		addIDs = []string{match.ID}
	case VerbUnlabel:
		removeIDs = []string{match.ID}
	}

	if err := conn.UpdateChatLabels(ctx, chatID, addIDs, removeIDs); err != nil {
		metrics.IncCommand(string(cmd.Verb), "error")
		return fmt.Errorf("command: update labels for chat %s: %w", chatID, err)
	}

	e.logger.Info().
		Str("verb", string(cmd.Verb)).
		Str("chat_id", chatID).
		Str("label_id", match.ID).
		Str("label", match.Name).
		Msg("label command applied")
	metrics.IncCommand(string(cmd.Verb), "applied")
	return nil
}

// resolveLabel matches by exact name and returns the sorted known names for
// error replies.
func resolveLabel(labels []wire.Label, name string) (*wire.Label, []string) {
	known := make([]string, 0, len(labels))
	var match *wire.Label
	for i := range labels {
		known = append(known, labels[i].Name)
		if labels[i].Name == name {
			match = &labels[i]
		}
	}
	sort.Strings(known)
	return match, known
}

func unknownLabelReply(name string, known []string) string {
	if len(known) == 0 {
		return fmt.Sprintf("unknown label %q: no labels synced yet", name)
	}
	return fmt.Sprintf("unknown label %q: known labels are %s", name, strings.Join(known, ", "))
}
