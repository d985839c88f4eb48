// SPDX-License-Identifier: MIT

package wire

// DisconnectCause classifies why a connection's event source terminated.
// It decides whether the session layer recreates the handle.
type DisconnectCause string

const (
	// CauseLoggedOut is terminal: the credentials were invalidated on the
	// remote and the session must not be recreated automatically.
	CauseLoggedOut DisconnectCause = "logged-out"

	// CauseTransient covers closures the remote expects the client to
	// recover from by reconnecting.
	CauseTransient DisconnectCause = "transient"

	// CauseUnknown covers unclassified closures. Retried conservatively.
	CauseUnknown DisconnectCause = "unknown"
)

// Close status codes carried on the terminal connection update.
const (
	StatusLoggedOut       = 401
	StatusTimedOut        = 408
	StatusConnectionLost  = 428
	StatusInternalFailure = 500
	StatusUnavailable     = 503
	StatusRestartRequired = 515
)

// CauseFromStatus derives the disconnect classification from the close
// status code carried on the closure event.
func CauseFromStatus(code int) DisconnectCause {
	switch code {
	case StatusLoggedOut:
		return CauseLoggedOut
	case StatusTimedOut, StatusConnectionLost, StatusInternalFailure,
		StatusUnavailable, StatusRestartRequired:
		return CauseTransient
	default:
		return CauseUnknown
	}
}

// Retryable reports whether the session layer may recreate the handle.
func (c DisconnectCause) Retryable() bool {
	return c != CauseLoggedOut
}
