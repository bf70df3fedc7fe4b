package runtime

import (
	"encoding/json"
	"strings"
	"time"

	"driftroom/domain"
	"driftroom/errors"
	"driftroom/protocol"
	"driftroom/ratelimit"
)

// pairOwner encodes a crosstalk key as a scheduler owner so per-pair expiry
// timers never collide with per-connection ones.
func pairOwner(key domain.PairKey) string {
	return "pair:" + key.RoomID + "|" + key.A + "|" + key.B
}

// resolveDMTarget finds the recipient inside the sender's room: connection
// id wins when given, otherwise the first color match.
func (c *Coordinator) resolveDMTarget(s *domain.Session, payload protocol.DMPayload) *domain.Session {
	if payload.TargetConnID != "" {
		target := c.reg.Session(payload.TargetConnID)
		if target != nil && target.RoomID == s.RoomID && target.ConnID != s.ConnID {
			return target
		}
		return nil
	}
	if payload.TargetColor == "" {
		return nil
	}
	target := c.reg.FindByColor(s.RoomID, payload.TargetColor)
	if target == nil || target.ConnID == s.ConnID {
		return nil
	}
	return target
}

func (c *Coordinator) handleDM(s *domain.Session, frame protocol.Frame) {
	if !c.allow(s, protocol.EvDM, ratelimit.Message) {
		return
	}

	var payload protocol.DMPayload
	_ = json.Unmarshal(frame.Data, &payload)

	target := c.resolveDMTarget(s, payload)
	if target == nil {
		c.unicast(s.ConnID, protocol.EvDMFailed, protocol.ReasonPayload{
			Reason: errors.ErrTargetNotFound.Error(),
		})
		return
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > domain.MaxTextLength {
		text = string(runes[:domain.MaxTextLength])
	}

	// Direct messages get the same link policy as room messages. Slurs are
	// masked but never trigger the room-visible ban path: that path would
	// leak that a private exchange happened and what it contained.
	verdict := c.moderator.Moderate(text)
	if !verdict.Allowed {
		c.unicast(s.ConnID, protocol.EvDMFailed, protocol.ReasonPayload{
			Reason: verdict.Reason,
		})
		return
	}

	now := c.now()
	received := protocol.DMReceivedPayload{
		FromColor:  s.Color,
		FromHandle: s.Handle,
		ToColor:    target.Color,
		Text:       verdict.MaskedText,
		TS:         now.UnixMilli(),
	}
	c.unicast(target.ConnID, protocol.EvDMReceived, received)
	c.unicast(s.ConnID, protocol.EvDMReceived, received)

	key := domain.NewPairKey(s.RoomID, s.Color, target.Color)
	ct, exists := c.crosstalks[key]
	if !exists {
		ct = &domain.Crosstalk{
			Key: key,
			Participants: [2]domain.Participant{
				{Color: s.Color, Handle: s.Handle},
				{Color: target.Color, Handle: target.Handle},
			},
		}
		c.crosstalks[key] = ct
	}
	ct.LastActivity = now

	// The room sees that a pair is talking, never what about.
	c.toRoom(s.RoomID, protocol.EvCrosstalk, c.crosstalkSnapshot(ct, now))

	roomID := s.RoomID
	c.sched.Schedule(pairOwner(key), taskDMExpiry, DMExpiry, func() {
		cur, ok := c.crosstalks[key]
		if !ok {
			return
		}
		delete(c.crosstalks, key)
		c.toRoom(roomID, protocol.EvCrosstalkEnded, c.crosstalkSnapshot(cur, c.now()))
	})
}

func (c *Coordinator) handleDMTyping(s *domain.Session, frame protocol.Frame) {
	if !c.allow(s, protocol.EvDMTyping, ratelimit.Typing) {
		return
	}

	var payload protocol.DMPayload
	_ = json.Unmarshal(frame.Data, &payload)

	target := c.resolveDMTarget(s, payload)
	if target == nil {
		return
	}
	c.unicast(target.ConnID, protocol.EvDMTyping, protocol.TypingPayload{
		Color:  s.Color,
		Handle: s.Handle,
	})
}

func (c *Coordinator) crosstalkSnapshot(ct *domain.Crosstalk, now time.Time) protocol.CrosstalkPayload {
	return protocol.CrosstalkPayload{
		Participants: []protocol.CrosstalkParticipant{
			{Color: ct.Participants[0].Color, Handle: ct.Participants[0].Handle},
			{Color: ct.Participants[1].Color, Handle: ct.Participants[1].Handle},
		},
		TS: now.UnixMilli(),
	}
}
