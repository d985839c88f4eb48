// SPDX-License-Identifier: MIT

package wire

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mhoffm/chatd/internal/creds"
)

// SimConn is a configurable in-process connection handle for tests and
// the daemon's simulation mode. It records every command issued against
// it and lets the caller script the event stream, including closures
// with a chosen status code.
type SimConn struct {
	gen    uint64
	selfID string

	mu         sync.Mutex
	seq        uint64
	closed     bool
	events     chan Batch
	sent       []SentText
	read       []MessageKey
	chatLabels map[string]map[string]bool
	pictures   map[string]string
	labels     []Label
	resyncs    []ResyncRequest
	failSend   int
}

// SentText records one SendText call.
type SentText struct {
	ChatID string
	Text   string
	ID     string
}

// ResyncRequest records one ResyncAppState call.
type ResyncRequest struct {
	Categories []string
	Full       bool
}

// NewSimConn creates a handle with the given generation. selfID is the
// account identity used to stamp self-authored messages.
func NewSimConn(gen uint64, selfID string) *SimConn {
	return &SimConn{
		gen:        gen,
		selfID:     selfID,
		events:     make(chan Batch, 64),
		chatLabels: make(map[string]map[string]bool),
		pictures:   make(map[string]string),
	}
}

func (c *SimConn) Events() <-chan Batch { return c.events }
func (c *SimConn) Generation() uint64   { return c.gen }

// SetLabels seeds the label inventory delivered on the next app-state
// resync.
func (c *SimConn) SetLabels(labels []Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels = append([]Label(nil), labels...)
}

// SetPicture seeds a contact's resolvable profile picture URL.
func (c *SimConn) SetPicture(contactID, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pictures[contactID] = url
}

// Deliver pushes one batch containing the given events, stamped with the
// next sequence number and this handle's generation.
func (c *SimConn) Deliver(events ...Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliverLocked(events...)
}

func (c *SimConn) deliverLocked(events ...Event) {
	if c.closed {
		return
	}
	c.seq++
	c.events <- Batch{Seq: c.seq, Gen: c.gen, Events: events}
}

// Open delivers a connection-state-changed "open" event.
func (c *SimConn) Open() {
	c.Deliver(ConnectionUpdate{State: StateOpen})
}

// CloseWithStatus delivers the terminal closure event with the given
// status code and closes the event stream.
func (c *SimConn) CloseWithStatus(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.deliverLocked(ConnectionUpdate{State: StateClosed, StatusCode: code})
	c.closed = true
	close(c.events)
}

// Close tears the handle down without a closure event, as on local
// teardown during reconnect. Idempotent.
func (c *SimConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// FailSends makes the next n SendText calls fail.
func (c *SimConn) FailSends(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSend = n
}

func (c *SimConn) SendText(ctx context.Context, chatID, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if chatID == "" {
		return "", &ConnError{Sentinel: ErrMissingField, Operation: "send text"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend > 0 {
		c.failSend--
		return "", &ConnError{Sentinel: ErrClosed, Operation: "send text"}
	}
	id := uuid.NewString()
	c.sent = append(c.sent, SentText{ChatID: chatID, Text: text, ID: id})
	return id, nil
}

func (c *SimConn) MarkRead(ctx context.Context, keys []MessageKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.read = append(c.read, keys...)
	return nil
}

func (c *SimConn) UpdateChatLabels(ctx context.Context, chatID string, add, remove []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if chatID == "" {
		return &ConnError{Sentinel: ErrMissingField, Operation: "update chat labels"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.chatLabels[chatID]
	if set == nil {
		set = make(map[string]bool)
		c.chatLabels[chatID] = set
	}
	// Set semantics: re-adding or re-removing is a no-op, matching the
	// remote service contract.
	for _, id := range add {
		set[id] = true
	}
	for _, id := range remove {
		delete(set, id)
	}
	return nil
}

func (c *SimConn) ProfilePictureURL(ctx context.Context, contactID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contactID == "" {
		return "", &ConnError{Sentinel: ErrMissingField, Operation: "profile picture"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.pictures[contactID]
	if !ok {
		return "", &ConnError{Sentinel: ErrNoPicture, Operation: "profile picture", Status: 404}
	}
	return url, nil
}

// ResyncAppState records the request and, when a label inventory has
// been seeded, answers it with a labels snapshot batch the way the real
// transport delivers app-state sync results.
func (c *SimConn) ResyncAppState(ctx context.Context, categories []string, full bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resyncs = append(c.resyncs, ResyncRequest{
		Categories: append([]string(nil), categories...),
		Full:       full,
	})
	if len(c.labels) > 0 {
		c.deliverLocked(LabelsUpdate{Snapshot: true, Labels: append([]Label(nil), c.labels...)})
	}
	return nil
}

// DeliverSelfText delivers a notify messages.upsert batch containing a
// single text message authored by the local account.
func (c *SimConn) DeliverSelfText(chatID, text string) MessageKey {
	key := MessageKey{ChatID: chatID, MessageID: uuid.NewString(), FromSelf: true}
	c.Deliver(MessagesUpsert{
		Type: UpsertNotify,
		Messages: []Message{
			{Key: key, SenderID: c.selfID, Text: text},
		},
	})
	return key
}

// DeliverPeerText delivers a notify messages.upsert batch containing a
// single text message authored by another participant.
func (c *SimConn) DeliverPeerText(chatID, senderID, text string) MessageKey {
	key := MessageKey{ChatID: chatID, MessageID: uuid.NewString(), FromSelf: false}
	c.Deliver(MessagesUpsert{
		Type: UpsertNotify,
		Messages: []Message{
			{Key: key, SenderID: senderID, Text: text},
		},
	})
	return key
}

// SentTexts returns a copy of all recorded SendText calls.
func (c *SimConn) SentTexts() []SentText {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentText(nil), c.sent...)
}

// ReadKeys returns a copy of all message keys marked read.
func (c *SimConn) ReadKeys() []MessageKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MessageKey(nil), c.read...)
}

// ChatLabelIDs returns the sorted label IDs currently assigned to a chat.
func (c *SimConn) ChatLabelIDs(chatID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for id := range c.chatLabels[chatID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resyncs returns a copy of all recorded resync requests.
func (c *SimConn) Resyncs() []ResyncRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ResyncRequest(nil), c.resyncs...)
}

var _ Conn = (*SimConn)(nil)

// SimFactory dials SimConns with monotonically increasing generations.
// Tests script handshake failures and inspect every handle it produced.
type SimFactory struct {
	SelfID string
	Labels []Label

	// OnDial, when set, configures each new handle before it is returned.
	OnDial func(conn *SimConn)

	// AutoOpen delivers the "open" connection update immediately on dial.
	AutoOpen bool

	mu        sync.Mutex
	gen       uint64
	failDials int
	conns     []*SimConn
}

// FailDials makes the next n Dial calls fail with a handshake error.
func (f *SimFactory) FailDials(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDials = n
}

func (f *SimFactory) Dial(ctx context.Context, bundle *creds.Bundle, version Version) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDials > 0 {
		f.failDials--
		return nil, &ConnError{Sentinel: ErrHandshake, Operation: "dial", Err: context.DeadlineExceeded}
	}
	f.gen++
	conn := NewSimConn(f.gen, f.SelfID)
	if len(f.Labels) > 0 {
		conn.SetLabels(f.Labels)
	}
	if f.OnDial != nil {
		f.OnDial(conn)
	}
	if f.AutoOpen {
		conn.Open()
	}
	f.conns = append(f.conns, conn)
	return conn, nil
}

// DialCount returns how many handles were successfully dialed.
func (f *SimFactory) DialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Conn returns the i-th dialed handle.
func (f *SimFactory) Conn(i int) *SimConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

// LastConn returns the most recently dialed handle, or nil.
func (f *SimFactory) LastConn() *SimConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

var _ Factory = (*SimFactory)(nil)
