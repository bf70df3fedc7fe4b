// Package domain contains core concepts of the chat system.
// This file defines Room entities and their rolling windows.
package domain

import "time"

const (
	// MessageBufferCap bounds the rolling message window. Insertion beyond
	// the cap evicts the oldest entry.
	MessageBufferCap = 3

	// ScoreHistoryCap bounds the rolling sentiment history.
	ScoreHistoryCap = 5

	// GhostCap bounds the presence-ghost list per room.
	GhostCap = 8
)

// PresenceGhost is the trace of a recently departed participant. Fade is a
// display hint derived from elapsed time; the server only tracks departure.
type PresenceGhost struct {
	Color  string
	Handle string
	LeftAt time.Time
}

// Fade returns elapsed/lifetime clamped to [0,1].
func (g PresenceGhost) Fade(now time.Time, lifetime time.Duration) float64 {
	f := float64(now.Sub(g.LeftAt)) / float64(lifetime)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Room is an isolated chat namespace. All mutation happens on the
// coordinator goroutine, so the struct carries no locking.
type Room struct {
	ID           string
	Title        string
	Secret       bool
	CreatedAt    time.Time
	LastActivity time.Time
	LastMessage  time.Time
	Settled      bool

	buffer []Message
	scores []float64
	ghosts []PresenceGhost
}

func NewRoom(id, title string, secret bool, now time.Time) *Room {
	return &Room{
		ID:           id,
		Title:        title,
		Secret:       secret,
		CreatedAt:    now,
		LastActivity: now,
		LastMessage:  now,
	}
}

// Append pushes a message into the rolling buffer, evicting the oldest
// entry beyond MessageBufferCap. LastMessage tracks only accepted
// messages; LastActivity also moves on typing, so mood decay keys on
// this field.
func (r *Room) Append(m Message) {
	r.buffer = append(r.buffer, m)
	if len(r.buffer) > MessageBufferCap {
		r.buffer = r.buffer[1:]
	}
	r.LastMessage = m.At
}

// Buffered returns a copy of the rolling window, oldest first.
func (r *Room) Buffered() []Message {
	out := make([]Message, len(r.buffer))
	copy(out, r.buffer)
	return out
}

// Find returns a pointer into the live buffer for in-place mutation
// (resonance, reveal). Nil when the message has been evicted.
func (r *Room) Find(messageID string) *Message {
	for i := range r.buffer {
		if r.buffer[i].ID == messageID {
			return &r.buffer[i]
		}
	}
	return nil
}

// RewriteIdentity applies a reveal to every still-buffered message sharing
// the author's color. Returns how many entries changed. Evicted messages
// are gone and stay gone.
func (r *Room) RewriteIdentity(color, handle, tag, sigil string) int {
	n := 0
	for i := range r.buffer {
		if r.buffer[i].Color != color {
			continue
		}
		r.buffer[i].Handle = handle
		r.buffer[i].Tag = tag
		r.buffer[i].Sigil = sigil
		n++
	}
	return n
}

// PushScore appends a sentiment sample, evicting beyond ScoreHistoryCap.
func (r *Room) PushScore(score float64) {
	r.scores = append(r.scores, score)
	if len(r.scores) > ScoreHistoryCap {
		r.scores = r.scores[1:]
	}
}

// Scores returns a copy of the sentiment history, oldest first.
func (r *Room) Scores() []float64 {
	out := make([]float64, len(r.scores))
	copy(out, r.scores)
	return out
}

// RestoreScores replaces the history wholesale, used when hydrating from
// the durability backend. Input beyond the cap keeps the newest samples.
func (r *Room) RestoreScores(scores []float64) {
	if len(scores) > ScoreHistoryCap {
		scores = scores[len(scores)-ScoreHistoryCap:]
	}
	r.scores = append([]float64(nil), scores...)
}

// RestoreBuffer replaces the message window wholesale, newest entries kept.
func (r *Room) RestoreBuffer(messages []Message) {
	if len(messages) > MessageBufferCap {
		messages = messages[len(messages)-MessageBufferCap:]
	}
	r.buffer = append([]Message(nil), messages...)
	if n := len(r.buffer); n > 0 {
		r.LastMessage = r.buffer[n-1].At
	}
}

// AddGhost records a departure trace, evicting the oldest beyond GhostCap.
func (r *Room) AddGhost(g PresenceGhost) {
	r.ghosts = append(r.ghosts, g)
	if len(r.ghosts) > GhostCap {
		r.ghosts = r.ghosts[1:]
	}
}

// Ghosts returns a copy of the current traces.
func (r *Room) Ghosts() []PresenceGhost {
	out := make([]PresenceGhost, len(r.ghosts))
	copy(out, r.ghosts)
	return out
}

// PruneGhosts drops traces whose fade has fully elapsed. Reports whether
// anything was removed.
func (r *Room) PruneGhosts(now time.Time, lifetime time.Duration) bool {
	kept := r.ghosts[:0]
	for _, g := range r.ghosts {
		if g.Fade(now, lifetime) < 1 {
			kept = append(kept, g)
		}
	}
	changed := len(kept) != len(r.ghosts)
	r.ghosts = kept
	return changed
}

// Touch records activity (message or typing) and synchronously clears the
// settled flag. Reports whether the room was settled before.
func (r *Room) Touch(now time.Time) bool {
	wasSettled := r.Settled
	r.LastActivity = now
	r.Settled = false
	return wasSettled
}

// QuietFor is the time since the last room activity.
func (r *Room) QuietFor(now time.Time) time.Duration {
	return now.Sub(r.LastActivity)
}

// SinceLastMessage is the time since the newest accepted message.
func (r *Room) SinceLastMessage(now time.Time) time.Duration {
	return now.Sub(r.LastMessage)
}
