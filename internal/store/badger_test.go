// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhoffm/chatd/internal/wire"
)

func openTestBadger(t *testing.T, path string) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore(path)
	require.NoError(t, err)
	return s
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	s := openTestBadger(t, t.TempDir())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := context.Background()

	msg := wire.Message{
		Key:      wire.MessageKey{ChatID: "chat-1", MessageID: "m1"},
		SenderID: "peer@sim",
		Text:     "ping",
	}
	require.NoError(t, s.PutMessage(ctx, msg))
	require.NoError(t, s.UpsertChat(ctx, wire.Chat{ID: "chat-1", Name: "Ops"}))
	require.NoError(t, s.UpsertContact(ctx, wire.Contact{ID: "c1", Name: "Alice"}))

	got, err := s.LoadMessage(ctx, "chat-1", "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ping", got.Text)

	chat, err := s.Chat(ctx, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "Ops", chat.Name)

	missing, err := s.LoadMessage(ctx, "chat-1", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBadgerStoreLabels(t *testing.T) {
	s := openTestBadger(t, t.TempDir())
	defer func() { require.NoError(t, s.Close()) }()
	ctx := context.Background()

	require.NoError(t, s.UpsertLabel(ctx, wire.Label{ID: "l1", Name: "Work"}))
	require.NoError(t, s.UpsertLabel(ctx, wire.Label{ID: "l2", Name: "Personal"}))

	_, err := s.Labels(ctx)
	assert.True(t, errors.Is(err, ErrLabelsNotReady))

	s.SetLabelsReady()
	labels, err := s.Labels(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	require.NoError(t, s.DeleteLabel(ctx, "l1"))
	labels, err = s.Labels(ctx)
	require.NoError(t, err)
	assert.Len(t, labels, 1)
	assert.Equal(t, "Personal", labels[0].Name)
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestBadger(t, dir)
	require.NoError(t, s.UpsertChat(ctx, wire.Chat{ID: "chat-1", Name: "Ops"}))
	require.NoError(t, s.UpsertLabel(ctx, wire.Label{ID: "l1", Name: "Work"}))
	require.NoError(t, s.Close())

	s = openTestBadger(t, dir)
	defer func() { require.NoError(t, s.Close()) }()

	chat, err := s.Chat(ctx, "chat-1")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "Ops", chat.Name)

	// Readiness is per-process: the reopened store must demand a fresh sync.
	_, err = s.Labels(ctx)
	assert.True(t, errors.Is(err, ErrLabelsNotReady))
}

func TestOpenFactory(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open("badger", t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open("badger", "")
	assert.Error(t, err)

	_, err = Open("bolt", "/tmp/x")
	assert.Error(t, err)
}
