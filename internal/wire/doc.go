// SPDX-License-Identifier: MIT

// Package wire defines the contract between the session layer and the
// underlying chat transport: the Conn handle, the event batch union
// delivered by a live connection, disconnect classification, and the
// factory that dials new handles. The transport itself (handshake,
// framing, crypto) is opaque to this package.
package wire
