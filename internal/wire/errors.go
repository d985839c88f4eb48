// SPDX-License-Identifier: MIT

package wire

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrHandshake    = errors.New("wire: handshake failed")
	ErrLoggedOut    = errors.New("wire: session logged out")
	ErrClosed       = errors.New("wire: connection closed")
	ErrNoPicture    = errors.New("wire: contact has no profile picture")
	ErrMissingField = errors.New("wire: required identifier missing")
)

// ConnError is a rich error type that wraps the sentinel errors with context.
type ConnError struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *ConnError) Error() string {
	msg := fmt.Sprintf("wire: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConnError) Unwrap() error {
	return e.Sentinel
}
