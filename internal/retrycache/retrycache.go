// SPDX-License-Identifier: MIT

// Package retrycache tracks per-message decryption retry counts. The
// counter deliberately lives outside the connection handle: it must
// survive reconnects, or a message that failed to decrypt before a
// restart would loop through its retry budget again on every new handle.
package retrycache

import (
	"context"
	"sync"
)

// Counter is the retry counter map. Safe for concurrent readers with a
// single writer.
type Counter interface {
	// Incr bumps the retry count for a message and returns the new value.
	Incr(ctx context.Context, messageID string) (int, error)

	// Get returns the current retry count, zero for unknown messages.
	Get(ctx context.Context, messageID string) (int, error)

	// Reset clears the count for a message, e.g. after successful decrypt.
	Reset(ctx context.Context, messageID string) error

	// Close releases backend resources.
	Close() error
}

// MemoryCounter is the in-process Counter backend.
type MemoryCounter struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewMemoryCounter creates an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int)}
}

func (c *MemoryCounter) Incr(_ context.Context, messageID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[messageID]++
	return c.counts[messageID], nil
}

func (c *MemoryCounter) Get(_ context.Context, messageID string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[messageID], nil
}

func (c *MemoryCounter) Reset(_ context.Context, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, messageID)
	return nil
}

func (c *MemoryCounter) Close() error { return nil }

var _ Counter = (*MemoryCounter)(nil)
