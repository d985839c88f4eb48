// SPDX-License-Identifier: MIT

package store

import "fmt"

// Open creates a Store based on the configured backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		if path == "" {
			return nil, fmt.Errorf("store: badger backend requires a path")
		}
		return OpenBadgerStore(path)
	default:
		return nil, fmt.Errorf("store: unknown backend: %s", backend)
	}
}
