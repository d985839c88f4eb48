// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/mhoffm/chatd/internal/wire"
)

// Key layout:
//   msg:<chatID>:<messageID>  (JSON wire.Message)
//   chat:<chatID>             (JSON wire.Chat)
//   contact:<contactID>       (JSON wire.Contact)
//   label:<labelID>           (JSON wire.Label)
//
// The labels-ready signal is session-scoped and deliberately NOT
// persisted: each process must re-sync the label inventory before
// trusting the cache.
type BadgerStore struct {
	db *badger.DB

	readyOnce sync.Once
	ready     chan struct{}
}

// OpenBadgerStore opens (or creates) the on-disk mirror at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, ready: make(chan struct{})}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func messageKey(chatID, messageID string) []byte {
	return []byte("msg:" + chatID + ":" + messageID)
}

func (s *BadgerStore) put(key []byte, value any) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

// get unmarshals the value at key into out. Returns false when the key
// does not exist.
func (s *BadgerStore) get(key []byte, out any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BadgerStore) delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStore) PutMessage(_ context.Context, msg wire.Message) error {
	return s.put(messageKey(msg.Key.ChatID, msg.Key.MessageID), msg)
}

func (s *BadgerStore) LoadMessage(_ context.Context, chatID, messageID string) (*wire.Message, error) {
	var out wire.Message
	found, err := s.get(messageKey(chatID, messageID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) UpsertChat(_ context.Context, chat wire.Chat) error {
	return s.put([]byte("chat:"+chat.ID), chat)
}

func (s *BadgerStore) Chat(_ context.Context, chatID string) (*wire.Chat, error) {
	var out wire.Chat
	found, err := s.get([]byte("chat:"+chatID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) DeleteChat(_ context.Context, chatID string) error {
	return s.delete([]byte("chat:" + chatID))
}

func (s *BadgerStore) UpsertContact(_ context.Context, contact wire.Contact) error {
	return s.put([]byte("contact:"+contact.ID), contact)
}

func (s *BadgerStore) Contact(_ context.Context, contactID string) (*wire.Contact, error) {
	var out wire.Contact
	found, err := s.get([]byte("contact:"+contactID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) UpsertLabel(_ context.Context, label wire.Label) error {
	return s.put([]byte("label:"+label.ID), label)
}

func (s *BadgerStore) DeleteLabel(_ context.Context, labelID string) error {
	return s.delete([]byte("label:" + labelID))
}

func (s *BadgerStore) Labels(ctx context.Context) ([]wire.Label, error) {
	select {
	case <-s.ready:
	default:
		return nil, ErrLabelsNotReady
	}

	prefix := []byte("label:")
	var out []wire.Label
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var label wire.Label
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &label)
			}); err != nil {
				continue
			}
			out = append(out, label)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) SetLabelsReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *BadgerStore) LabelsReady() <-chan struct{} {
	return s.ready
}

var _ Store = (*BadgerStore)(nil)
