package runtime

import (
	"encoding/json"
	"strings"

	"driftroom/domain"
	"driftroom/errors"
	"driftroom/projection"
	"driftroom/protocol"
	"driftroom/ratelimit"
	"driftroom/sentiment"
)

func (c *Coordinator) handleMessage(s *domain.Session, frame protocol.Frame) {
	if !c.allow(s, protocol.EvMessage, ratelimit.Message) {
		return
	}
	room := c.reg.Room(s.RoomID)
	if room == nil {
		return
	}

	var payload protocol.MessagePayload
	_ = json.Unmarshal(frame.Data, &payload)

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > domain.MaxTextLength {
		text = string(runes[:domain.MaxTextLength])
	}

	verdict := c.moderator.Moderate(text)
	if !verdict.Allowed {
		c.unicast(s.ConnID, protocol.EvMessageRejected, protocol.ReasonPayload{
			Reason: verdict.Reason,
		})
		return
	}

	now := c.now()
	m := domain.Message{
		ID:      domain.NewMessageID(now),
		Text:    verdict.MaskedText,
		Color:   s.Color,
		Handle:  s.Handle,
		Tag:     s.Tag,
		Sigil:   s.Sigil,
		Whisper: payload.Whisper,
		Flagged: verdict.Bigotry,
		At:      now,
	}
	if verdict.Bigotry && m.Handle == "" {
		// A flagged message never stays anonymous.
		m.Handle = domain.SyntheticHandle(s.Color)
	}

	room.Append(m)
	c.mirrorMessage(room.ID, m)

	if !m.Whisper && !m.Flagged {
		score := sentiment.Score(m.Text)
		room.PushScore(score)
		c.mirrorScore(room.ID, score)
	}

	c.toRoom(room.ID, protocol.EvMessage, projection.MessageView(m))
	c.toRoom(room.ID, protocol.EvStream, projection.Stream(room.Buffered()))
	c.broadcastMood(room)
	c.touchRoom(room)

	c.sched.Cancel(s.ConnID, taskTypingStop)
	c.toRoomExcept(room.ID, s.ConnID, protocol.EvTypingStop, protocol.TypingPayload{
		Color:  s.Color,
		Handle: s.Handle,
	})

	if verdict.Bigotry {
		c.log.Warn("bigotry detected, banning sender", "conn_id", s.ConnID, "ip", s.IP)
		c.toRoom(room.ID, protocol.EvUserBanned, protocol.UserBannedPayload{
			Color:  m.Color,
			Handle: m.Handle,
			Reason: "bigotry",
		})
		c.unicast(s.ConnID, protocol.EvBanned, protocol.ReasonPayload{Reason: "bigotry"})
		c.ban(s.IP)
		c.kick(s.ConnID)
	}
}

func (c *Coordinator) handleReveal(s *domain.Session, frame protocol.Frame) {
	var payload protocol.RevealPayload
	_ = json.Unmarshal(frame.Data, &payload)

	id := domain.Identity{
		Color:  s.Color,
		Handle: payload.Handle,
		Tag:    payload.Tag,
		Sigil:  payload.Sigil,
	}.Sanitize()
	s.Handle = id.Handle
	s.Tag = id.Tag
	s.Sigil = id.Sigil

	// Past messages still in the window pick up the new identity; anything
	// already evicted stays as it was sent.
	if room := c.reg.Room(s.RoomID); room != nil {
		room.RewriteIdentity(s.Color, s.Handle, s.Tag, s.Sigil)
	}

	c.toRoom(s.RoomID, protocol.EvIdentityRevealed, protocol.RevealedPayload{
		Color:  s.Color,
		Handle: s.Handle,
		Tag:    s.Tag,
		Sigil:  s.Sigil,
	})
}

func (c *Coordinator) handleTyping(s *domain.Session) {
	if !c.allow(s, protocol.EvTyping, ratelimit.Typing) {
		return
	}

	c.toRoomExcept(s.RoomID, s.ConnID, protocol.EvTyping, protocol.TypingPayload{
		Color:  s.Color,
		Handle: s.Handle,
	})
	if room := c.reg.Room(s.RoomID); room != nil {
		c.touchRoom(room)
	}

	connID := s.ConnID
	c.sched.Schedule(connID, taskTypingStop, TypingStop, func() {
		cur := c.reg.Session(connID)
		if cur == nil || cur.RoomID == "" {
			return
		}
		c.toRoomExcept(cur.RoomID, connID, protocol.EvTypingStop, protocol.TypingPayload{
			Color:  cur.Color,
			Handle: cur.Handle,
		})
	})
}

func (c *Coordinator) handleTypingStop(s *domain.Session) {
	if !c.allow(s, protocol.EvTypingStop, ratelimit.Typing) {
		return
	}
	c.sched.Cancel(s.ConnID, taskTypingStop)
	c.toRoomExcept(s.RoomID, s.ConnID, protocol.EvTypingStop, protocol.TypingPayload{
		Color:  s.Color,
		Handle: s.Handle,
	})
}

func (c *Coordinator) handleAffirm(s *domain.Session, frame protocol.Frame) {
	var payload protocol.MessageRefPayload
	_ = json.Unmarshal(frame.Data, &payload)

	room := c.reg.Room(s.RoomID)
	if room == nil || room.Find(payload.MessageID) == nil {
		return
	}
	c.toRoom(room.ID, protocol.EvAffirmation, protocol.AffirmationPayload{
		MessageID: payload.MessageID,
		Color:     s.Color,
	})
}

func (c *Coordinator) handleCopy(s *domain.Session, frame protocol.Frame) {
	var payload protocol.MessageRefPayload
	_ = json.Unmarshal(frame.Data, &payload)

	room := c.reg.Room(s.RoomID)
	if room == nil {
		return
	}
	m := room.Find(payload.MessageID)
	if m == nil {
		return
	}

	m.Resonance++
	c.toRoom(room.ID, protocol.EvResonance, protocol.ResonancePayload{
		MessageID: m.ID,
		Count:     m.Resonance,
	})
	c.unicast(s.ConnID, protocol.EvCopy, protocol.MessageRefPayload{MessageID: m.ID})
}

func (c *Coordinator) handleSummon(s *domain.Session, frame protocol.Frame) {
	var payload protocol.SummonPayload
	_ = json.Unmarshal(frame.Data, &payload)

	target := c.reg.FindByHandle(s.RoomID, payload.Handle)
	if target == nil || target.ConnID == s.ConnID {
		c.unicast(s.ConnID, protocol.EvSummonFailed, protocol.ReasonPayload{
			Reason: errors.ErrTargetNotFound.Error(),
		})
		return
	}

	c.unicast(target.ConnID, protocol.EvSummoned, protocol.SummonedPayload{
		ByColor:  s.Color,
		ByHandle: s.Handle,
	})
	c.unicast(s.ConnID, protocol.EvSummonSent, protocol.SummonPayload{Handle: payload.Handle})
}
