// Package projection builds client-facing views from room state. It only
// reads domain values and maps them to protocol payloads; it never emits
// events or mutates anything.
package projection

import (
	"time"

	"github.com/samber/lo"

	"driftroom/domain"
	"driftroom/protocol"
	"driftroom/sentiment"
)

// MessageView maps a buffered message to its broadcast form.
func MessageView(m domain.Message) protocol.MessageView {
	return protocol.MessageView{
		ID:      m.ID,
		Text:    m.Text,
		Color:   m.Color,
		Handle:  m.Handle,
		Tag:     m.Tag,
		Sigil:   m.Sigil,
		Whisper: m.Whisper,
		Flagged: m.Flagged,
		TS:      m.At.UnixMilli(),
	}
}

// Ghosts strips the rolling window for a new joiner: structure survives,
// text does not. The server is the source of truth for what is ghosted,
// so the legible text never leaves it here.
func Ghosts(messages []domain.Message) []protocol.GhostView {
	return lo.Map(messages, func(m domain.Message, _ int) protocol.GhostView {
		return protocol.GhostView{
			ID:         m.ID,
			Color:      m.Color,
			Sigil:      m.Sigil,
			TextLength: len([]rune(m.Text)),
			Ghost:      true,
			TS:         m.At.UnixMilli(),
		}
	})
}

// Stream names the ids currently buffered so clients can evict the rest.
func Stream(messages []domain.Message) protocol.StreamPayload {
	return protocol.StreamPayload{
		IDs: lo.Map(messages, func(m domain.Message, _ int) string { return m.ID }),
	}
}

// PresenceGhosts maps departure traces with their current fade.
func PresenceGhosts(ghosts []domain.PresenceGhost, now time.Time, lifetime time.Duration) []protocol.PresenceGhostView {
	return lo.Map(ghosts, func(g domain.PresenceGhost, _ int) protocol.PresenceGhostView {
		return protocol.PresenceGhostView{
			Color:  g.Color,
			Handle: g.Handle,
			Fade:   g.Fade(now, lifetime),
		}
	})
}

// ArrivalVibe summarizes a room for someone walking in mid-conversation.
func ArrivalVibe(room *domain.Room, presence int, now time.Time) protocol.ArrivalVibePayload {
	return protocol.ArrivalVibePayload{
		Presence:  presence,
		Mood:      string(sentiment.Classify(room.Scores())),
		QuietFor:  int64(room.QuietFor(now) / time.Second),
		HasGhosts: len(room.Ghosts()) > 0,
	}
}
