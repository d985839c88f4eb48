// SPDX-License-Identifier: MIT

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := NewBackoff(time.Second, 8*time.Second)

	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 8*time.Second, b.Next())
	assert.Equal(t, 8*time.Second, b.Next())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Second, 32*time.Second)
	b.Next()
	b.Next()
	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}
