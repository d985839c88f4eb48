// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sync"

	"github.com/mhoffm/chatd/internal/wire"
)

// MemoryStore is the in-memory mirror. It is the default backend and the
// reference implementation for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]map[string]wire.Message // chatID -> messageID -> message
	chats    map[string]wire.Chat
	contacts map[string]wire.Contact
	labels   map[string]wire.Label

	readyOnce sync.Once
	ready     chan struct{}
}

// NewMemoryStore creates an empty in-memory mirror.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]map[string]wire.Message),
		chats:    make(map[string]wire.Chat),
		contacts: make(map[string]wire.Contact),
		labels:   make(map[string]wire.Label),
		ready:    make(chan struct{}),
	}
}

func (s *MemoryStore) PutMessage(_ context.Context, msg wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.messages[msg.Key.ChatID]
	if chat == nil {
		chat = make(map[string]wire.Message)
		s.messages[msg.Key.ChatID] = chat
	}
	chat[msg.Key.MessageID] = msg
	return nil
}

func (s *MemoryStore) LoadMessage(_ context.Context, chatID, messageID string) (*wire.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[chatID][messageID]
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func (s *MemoryStore) UpsertChat(_ context.Context, chat wire.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chat.ID] = chat
	return nil
}

func (s *MemoryStore) Chat(_ context.Context, chatID string) (*wire.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, nil
	}
	return &chat, nil
}

func (s *MemoryStore) DeleteChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return nil
}

func (s *MemoryStore) UpsertContact(_ context.Context, contact wire.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[contact.ID] = contact
	return nil
}

func (s *MemoryStore) Contact(_ context.Context, contactID string) (*wire.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contact, ok := s.contacts[contactID]
	if !ok {
		return nil, nil
	}
	return &contact, nil
}

func (s *MemoryStore) UpsertLabel(_ context.Context, label wire.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels[label.ID] = label
	return nil
}

func (s *MemoryStore) DeleteLabel(_ context.Context, labelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.labels, labelID)
	return nil
}

func (s *MemoryStore) Labels(_ context.Context) ([]wire.Label, error) {
	select {
	case <-s.ready:
	default:
		return nil, ErrLabelsNotReady
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wire.Label, 0, len(s.labels))
	for _, label := range s.labels {
		out = append(out, label)
	}
	return out, nil
}

func (s *MemoryStore) SetLabelsReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *MemoryStore) LabelsReady() <-chan struct{} {
	return s.ready
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
