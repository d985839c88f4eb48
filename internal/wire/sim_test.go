// SPDX-License-Identifier: MIT

package wire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimConnDeliverStampsSequenceAndGeneration(t *testing.T) {
	conn := NewSimConn(3, "self@sim")
	conn.Open()
	conn.Deliver(Presence{ChatID: "chat-1", UserID: "user-1", State: "available"})

	first := <-conn.Events()
	second := <-conn.Events()

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, uint64(3), first.Gen)
	assert.Equal(t, uint64(3), second.Gen)
}

func TestSimConnCloseWithStatusTerminatesStream(t *testing.T) {
	conn := NewSimConn(1, "self@sim")
	conn.CloseWithStatus(StatusConnectionLost)

	batch, ok := <-conn.Events()
	require.True(t, ok)
	require.Len(t, batch.Events, 1)

	update, ok := batch.Events[0].(ConnectionUpdate)
	require.True(t, ok)
	assert.Equal(t, StateClosed, update.State)
	assert.Equal(t, CauseTransient, update.Cause())

	_, ok = <-conn.Events()
	assert.False(t, ok, "event stream must be closed after the closure event")

	// Deliveries after closure are dropped, not panicking on a closed channel.
	conn.Deliver(Presence{ChatID: "chat-1"})
	require.NoError(t, conn.Close())
}

func TestSimConnLabelAssignmentIsIdempotent(t *testing.T) {
	conn := NewSimConn(1, "self@sim")
	ctx := context.Background()

	require.NoError(t, conn.UpdateChatLabels(ctx, "chat-1", []string{"l1"}, nil))
	require.NoError(t, conn.UpdateChatLabels(ctx, "chat-1", []string{"l1"}, nil))
	assert.Equal(t, []string{"l1"}, conn.ChatLabelIDs("chat-1"))

	require.NoError(t, conn.UpdateChatLabels(ctx, "chat-1", nil, []string{"l1"}))
	require.NoError(t, conn.UpdateChatLabels(ctx, "chat-1", nil, []string{"l1"}))
	assert.Empty(t, conn.ChatLabelIDs("chat-1"))
}

func TestSimConnProfilePicture(t *testing.T) {
	conn := NewSimConn(1, "self@sim")
	conn.SetPicture("contact-1", "https://cdn.example/pic.jpg")
	ctx := context.Background()

	url, err := conn.ProfilePictureURL(ctx, "contact-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/pic.jpg", url)

	_, err = conn.ProfilePictureURL(ctx, "contact-2")
	assert.True(t, errors.Is(err, ErrNoPicture))

	_, err = conn.ProfilePictureURL(ctx, "")
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestSimConnResyncDeliversLabelSnapshot(t *testing.T) {
	conn := NewSimConn(1, "self@sim")
	conn.SetLabels([]Label{{ID: "l1", Name: "Work"}, {ID: "l2", Name: "Personal"}})

	require.NoError(t, conn.ResyncAppState(context.Background(), []string{"regular"}, false))
	require.Len(t, conn.Resyncs(), 1)

	batch := <-conn.Events()
	require.Len(t, batch.Events, 1)
	update, ok := batch.Events[0].(LabelsUpdate)
	require.True(t, ok)
	assert.True(t, update.Snapshot)
	assert.Len(t, update.Labels, 2)
}

func TestSimFactoryGenerationsAndHandshakeFailures(t *testing.T) {
	factory := &SimFactory{SelfID: "self@sim"}
	ctx := context.Background()

	factory.FailDials(1)
	_, err := factory.Dial(ctx, nil, Version{2, 3000, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHandshake))

	first, err := factory.Dial(ctx, nil, Version{2, 3000, 0})
	require.NoError(t, err)
	second, err := factory.Dial(ctx, nil, Version{2, 3000, 0})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Generation())
	assert.Equal(t, uint64(2), second.Generation())
	assert.Equal(t, 2, factory.DialCount())
}

func TestSimConnSelfAndPeerTexts(t *testing.T) {
	conn := NewSimConn(1, "self@sim")

	key := conn.DeliverSelfText("chat-1", "/label Work")
	assert.True(t, key.FromSelf)

	batch := <-conn.Events()
	upsert, ok := batch.Events[0].(MessagesUpsert)
	require.True(t, ok)
	assert.Equal(t, UpsertNotify, upsert.Type)
	assert.Equal(t, "self@sim", upsert.Messages[0].SenderID)

	peerKey := conn.DeliverPeerText("chat-1", "mallory@sim", "/label Work")
	assert.False(t, peerKey.FromSelf)
}
