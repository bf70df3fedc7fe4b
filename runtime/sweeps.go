package runtime

import (
	"context"

	"github.com/samber/lo"

	"driftroom/domain"
	"driftroom/projection"
	"driftroom/protocol"
	"driftroom/sentiment"
)

// sweepSilence flips rooms past the quiet threshold to settled. Clearing
// is never done here: activity clears the flag synchronously in the
// handler that observed it, so the sweep only ever sets.
func (c *Coordinator) sweepSilence() {
	now := c.now()
	for _, room := range c.reg.Rooms() {
		if room.Settled || room.QuietFor(now) < SilenceThreshold {
			continue
		}
		room.Settled = true
		c.toRoom(room.ID, protocol.EvSilence, protocol.SilencePayload{
			Settled: true,
			Since:   room.LastActivity.UnixMilli(),
		})
	}
}

// decayMood nudges idle rooms back toward neutral by pushing a zero sample
// into any non-empty history whose last message is old enough. Typing
// refreshes LastActivity but not LastMessage, so a room where people only
// type still drifts back to neutral.
func (c *Coordinator) decayMood() {
	now := c.now()
	for _, room := range c.reg.Rooms() {
		if len(room.Scores()) == 0 || room.SinceLastMessage(now) < DecayThreshold {
			continue
		}
		room.PushScore(0)
		c.mirrorScore(room.ID, 0)
		c.broadcastMood(room)
	}
}

// sweepGhosts prunes fully faded departure traces.
func (c *Coordinator) sweepGhosts() {
	now := c.now()
	for _, room := range c.reg.Rooms() {
		if room.PruneGhosts(now, GhostLifetime) {
			c.broadcastPresenceGhosts(room.ID)
		}
	}
}

func (c *Coordinator) broadcastMood(room *domain.Room) {
	c.toRoom(room.ID, protocol.EvMood, protocol.MoodPayload{
		Mood: string(sentiment.Classify(room.Scores())),
	})
}

func (c *Coordinator) broadcastPresence(roomID string) {
	c.toRoom(roomID, protocol.EvPresence, protocol.PresencePayload{
		Count: c.reg.Presence(roomID),
	})
}

func (c *Coordinator) broadcastPresenceGhosts(roomID string) {
	room := c.reg.Room(roomID)
	if room == nil {
		return
	}
	c.toRoom(roomID, protocol.EvPresenceGhosts,
		projection.PresenceGhosts(room.Ghosts(), c.now(), GhostLifetime))
}

// broadcastAttention sends the per-room focus/away snapshot to everyone in
// the room.
func (c *Coordinator) broadcastAttention(roomID string) {
	entries := c.attentionSnapshot(roomID)
	c.toRoom(roomID, protocol.EvAttention, entries)
}

func (c *Coordinator) attentionSnapshot(roomID string) []protocol.AttentionEntry {
	return lo.Map(c.reg.SessionsIn(roomID), func(s *domain.Session, _ int) protocol.AttentionEntry {
		return protocol.AttentionEntry{
			Color:   s.Color,
			Handle:  s.Handle,
			Focused: s.Focused,
			Away:    s.SteppingAway,
		}
	})
}

// touchRoom records activity and, when the room had settled, broadcasts
// the cleared silence state immediately.
func (c *Coordinator) touchRoom(room *domain.Room) {
	if room.Touch(c.now()) {
		c.toRoom(room.ID, protocol.EvSilence, protocol.SilencePayload{Settled: false})
	}
}

// mirrorMessage copies an accepted message to the durability backend
// without ever blocking the reactor.
func (c *Coordinator) mirrorMessage(roomID string, m domain.Message) {
	go func() {
		if err := c.store.AppendMessage(context.Background(), roomID, m); err != nil {
			c.log.Debug("message mirror failed", "room", roomID, "error", err)
		}
	}()
}

func (c *Coordinator) mirrorScore(roomID string, score float64) {
	go func() {
		if err := c.store.AppendScore(context.Background(), roomID, score); err != nil {
			c.log.Debug("score mirror failed", "room", roomID, "error", err)
		}
	}()
}

func (c *Coordinator) purgeStoredRoom(roomID string) {
	go func() {
		if err := c.store.PurgeRoom(context.Background(), roomID); err != nil {
			c.log.Debug("room purge failed", "room", roomID, "error", err)
		}
	}()
}
