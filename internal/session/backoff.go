// SPDX-License-Identifier: MIT

package session

import "time"

// Backoff is a bounded exponential delay for reconnect attempts. Not
// safe for concurrent use; the orchestrator owns it.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

// NewBackoff creates a backoff starting at initial and doubling up to max.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{initial: initial, max: max, next: initial}
}

// Next returns the delay for the upcoming attempt and advances the series.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset restarts the series after a successful open.
func (b *Backoff) Reset() {
	b.next = b.initial
}
