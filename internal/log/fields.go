// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldChatID    = "chat_id"
	FieldContactID = "contact_id"
	FieldMessageID = "message_id"
	FieldLabelID   = "label_id"

	// Pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCategory  = "category"
	FieldBatchSeq  = "batch_seq"
	FieldHandleGen = "handle_gen"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldCause    = "cause"

	// Command fields
	FieldVerb    = "verb"
	FieldOutcome = "outcome"
)
