// Package domain contains core concepts of the chat system.
// This file defines Message values and id generation.
// Messages are immutable once broadcast, except for identity rewrites
// applied by a reveal while the message is still buffered.
package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MaxTextLength is the hard cap on message text. Longer input is truncated,
// never rejected.
const MaxTextLength = 500

// Message is one chat line as captured at send time. Author identity fields
// are a snapshot of the sender's session, not a reference to it.
type Message struct {
	ID        string
	Text      string
	Color     string
	Handle    string
	Tag       string
	Sigil     string
	Whisper   bool
	Flagged   bool
	Resonance int
	At        time.Time
}

// NewMessageID builds a time-prefixed id. The nanosecond prefix keeps ids
// roughly sortable, the uuid fragment disambiguates same-instant sends.
func NewMessageID(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 36) + "-" + uuid.NewString()[:8]
}
