// SPDX-License-Identifier: MIT

package wire

import (
	"time"

	"github.com/mhoffm/chatd/internal/creds"
)

// Category identifies one kind of server-pushed event. Batches group
// events of several categories that originate from the same network read.
type Category string

const (
	CategoryConnection     Category = "connection.update"
	CategoryCredentials    Category = "creds.update"
	CategoryMessages       Category = "messages.upsert"
	CategoryMessageUpdates Category = "messages.update"
	CategoryReceipts       Category = "message-receipt.update"
	CategoryReactions      Category = "messages.reaction"
	CategoryPresence       Category = "presence.update"
	CategoryChats          Category = "chats.update"
	CategoryChatsDelete    Category = "chats.delete"
	CategoryContacts       Category = "contacts.update"
	CategoryLabels         Category = "labels.update"
	CategoryCalls          Category = "call"
)

// Event is the closed union of server-pushed payloads. Each variant
// reports its Category for dispatch; handlers type-switch on the
// concrete payload type.
type Event interface {
	Category() Category
}

// Batch is an ordered group of events delivered together from one
// underlying network read. Seq is the arrival sequence number assigned
// by the connection; Gen is the generation of the handle that produced
// the batch, used to drop late deliveries from torn-down handles.
type Batch struct {
	Seq    uint64
	Gen    uint64
	Events []Event
}

// Has reports whether the batch contains at least one event of the
// given category.
func (b Batch) Has(category Category) bool {
	for _, ev := range b.Events {
		if ev.Category() == category {
			return true
		}
	}
	return false
}

// ConnectionState is the lifecycle state reported by the transport.
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClosed     ConnectionState = "closed"
)

// ConnectionUpdate reports a transport state change. StatusCode is only
// meaningful for StateClosed and carries the close status used to derive
// the DisconnectCause.
type ConnectionUpdate struct {
	State      ConnectionState
	StatusCode int
}

func (ConnectionUpdate) Category() Category { return CategoryConnection }

// Cause classifies the close status. Only valid for StateClosed.
func (u ConnectionUpdate) Cause() DisconnectCause {
	return CauseFromStatus(u.StatusCode)
}

// CredentialsUpdate signals that the credential bundle changed and the
// latest snapshot must be persisted before further batches are handled.
type CredentialsUpdate struct {
	Bundle *creds.Bundle
}

func (CredentialsUpdate) Category() Category { return CategoryCredentials }

// MessageKey identifies a message within a chat, including whether the
// local account authored it.
type MessageKey struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	FromSelf  bool   `json:"fromSelf"`
}

// Message is a mirrored chat message.
type Message struct {
	Key       MessageKey `json:"key"`
	SenderID  string     `json:"senderId"`
	Text      string     `json:"text,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// UpsertType distinguishes live pushed messages from history backfill.
type UpsertType string

const (
	UpsertNotify UpsertType = "notify"
	UpsertAppend UpsertType = "append"
)

// MessagesUpsert delivers newly received or backfilled messages.
type MessagesUpsert struct {
	Type     UpsertType
	Messages []Message
}

func (MessagesUpsert) Category() Category { return CategoryMessages }

// MessageUpdate reports a status change on an existing message.
type MessageUpdate struct {
	Key    MessageKey
	Status string
}

func (MessageUpdate) Category() Category { return CategoryMessageUpdates }

// Receipt reports a delivery/read receipt for a message.
type Receipt struct {
	Key    MessageKey
	UserID string
	Type   string // "read", "delivery", ...
}

func (Receipt) Category() Category { return CategoryReceipts }

// Reaction reports an emoji reaction on a message.
type Reaction struct {
	Key      MessageKey
	SenderID string
	Emoji    string
}

func (Reaction) Category() Category { return CategoryReactions }

// Presence reports a participant's presence change in a chat.
type Presence struct {
	ChatID string
	UserID string
	State  string // "available", "composing", ...
}

func (Presence) Category() Category { return CategoryPresence }

// Chat is the mirrored chat metadata.
type Chat struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	UnreadCount int      `json:"unreadCount,omitempty"`
	LabelIDs    []string `json:"labelIds,omitempty"`
}

// ChatsUpdate delivers created or changed chats.
type ChatsUpdate struct {
	Chats []Chat
}

func (ChatsUpdate) Category() Category { return CategoryChats }

// ChatsDelete reports chats removed on the remote.
type ChatsDelete struct {
	ChatIDs []string
}

func (ChatsDelete) Category() Category { return CategoryChatsDelete }

// Contact is the mirrored contact record. PictureID changes when the
// contact's profile picture changes; an empty PictureID means unchanged
// in the context of a ContactsUpdate.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	PictureID string `json:"pictureId,omitempty"`
}

// ContactsUpdate delivers changed contacts.
type ContactsUpdate struct {
	Contacts []Contact
}

func (ContactsUpdate) Category() Category { return CategoryContacts }

// Label is a remote-sourced tag attachable to chats.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LabelsUpdate delivers the label inventory from an app-state sync.
// Snapshot batches replace the cached set and arm the store's
// labels-ready signal; incremental batches merge.
type LabelsUpdate struct {
	Snapshot bool
	Labels   []Label
}

func (LabelsUpdate) Category() Category { return CategoryLabels }

// Call reports an incoming call offer. Observed and logged only.
type Call struct {
	ID     string
	ChatID string
	From   string
	Status string // "offer", "timeout", ...
}

func (Call) Category() Category { return CategoryCalls }
