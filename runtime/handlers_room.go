package runtime

import (
	"encoding/json"

	"github.com/samber/lo"

	"driftroom/domain"
	"driftroom/projection"
	"driftroom/protocol"
	"driftroom/ratelimit"
	"driftroom/sentiment"
)

func (c *Coordinator) handleJoin(s *domain.Session, frame protocol.Frame) {
	if !c.allow(s, protocol.EvJoin, ratelimit.Join) {
		return
	}

	var payload protocol.JoinPayload
	_ = json.Unmarshal(frame.Data, &payload)

	id := domain.Identity{
		Color:  payload.Color,
		Handle: payload.Handle,
		Tag:    payload.Tag,
		Sigil:  payload.Sigil,
	}.Sanitize()
	if id.Color != "" {
		s.Color = id.Color
	}
	s.Handle = id.Handle
	s.Tag = id.Tag
	s.Sigil = id.Sigil

	roomID := domain.DefaultRoomID
	if payload.RoomID != "" {
		roomID = domain.Slug(payload.RoomID)
	}
	room := c.reg.GetOrCreate(roomID, c.now())

	c.moveTo(s, room)
}

func (c *Coordinator) handleSwitchRoom(s *domain.Session, frame protocol.Frame) {
	if !c.allow(s, protocol.EvSwitchRoom, ratelimit.Join) {
		return
	}

	var payload protocol.RoomRefPayload
	_ = json.Unmarshal(frame.Data, &payload)

	// Switching never creates: an unknown target is an error, not a lazy
	// room.
	roomID := domain.Slug(payload.RoomID)
	room := c.reg.Room(roomID)
	if room == nil {
		c.unicast(s.ConnID, protocol.EvRoomSwitchFailed, protocol.ReasonPayload{
			Reason: "room not found",
		})
		return
	}
	if room.ID == s.RoomID {
		return
	}

	c.moveTo(s, room)
}

// moveTo is the shared join/switch path: leave the previous room with a
// departure trace, enter the target, then send the arrival snapshot to the
// mover and the updated presence to both rooms.
func (c *Coordinator) moveTo(s *domain.Session, room *domain.Room) {
	now := c.now()

	prevRoomID := s.RoomID
	if prevRoomID != "" && prevRoomID != room.ID {
		if prev := c.reg.Room(prevRoomID); prev != nil {
			prev.AddGhost(domain.PresenceGhost{Color: s.Color, Handle: s.Handle, LeftAt: now})
		}
	}

	c.reg.Move(s.ConnID, room.ID)

	if prevRoomID != "" && prevRoomID != room.ID {
		c.broadcastPresence(prevRoomID)
		c.broadcastPresenceGhosts(prevRoomID)
		c.broadcastAttention(prevRoomID)
	}

	// Arrival snapshot. Buffered messages arrive ghosted: a newcomer walks
	// into a conversation, they do not get to read it.
	c.unicast(s.ConnID, protocol.EvIdentity, protocol.IdentityPayload{
		ConnectionID: s.ConnID,
		Color:        s.Color,
		Handle:       s.Handle,
		Tag:          s.Tag,
		Sigil:        s.Sigil,
	})
	c.unicast(s.ConnID, protocol.EvRoomJoined, protocol.RoomJoinedPayload{
		ID:     room.ID,
		Title:  room.Title,
		Secret: room.Secret,
	})
	c.unicast(s.ConnID, protocol.EvRoomTitle, protocol.RoomTitlePayload{Title: room.Title})
	c.unicast(s.ConnID, protocol.EvGhosts, projection.Ghosts(room.Buffered()))
	c.unicast(s.ConnID, protocol.EvMood, protocol.MoodPayload{
		Mood: string(sentiment.Classify(room.Scores())),
	})
	silence := protocol.SilencePayload{Settled: room.Settled}
	if room.Settled {
		silence.Since = room.LastActivity.UnixMilli()
	}
	c.unicast(s.ConnID, protocol.EvSilence, silence)
	c.unicast(s.ConnID, protocol.EvPresenceGhosts,
		projection.PresenceGhosts(room.Ghosts(), now, GhostLifetime))
	c.unicast(s.ConnID, protocol.EvArrivalVibe,
		projection.ArrivalVibe(room, c.reg.Presence(room.ID), now))
	c.unicast(s.ConnID, protocol.EvAttention, c.attentionSnapshot(room.ID))

	c.broadcastPresence(room.ID)
	c.toRoomExcept(room.ID, s.ConnID, protocol.EvAttention, c.attentionSnapshot(room.ID))
}

func (c *Coordinator) handleListRooms(s *domain.Session) {
	entries := lo.Map(c.reg.PublicRooms(), func(room *domain.Room, _ int) protocol.RoomListEntry {
		return protocol.RoomListEntry{
			ID:       room.ID,
			Title:    room.Title,
			Presence: c.reg.Presence(room.ID),
			Mood:     string(sentiment.Classify(room.Scores())),
		}
	})
	c.unicast(s.ConnID, protocol.EvRoomList, entries)
}

func (c *Coordinator) handleCreateRoom(s *domain.Session, frame protocol.Frame) {
	if !c.allow(s, protocol.EvCreateRoom, ratelimit.CreateRoom) {
		return
	}

	var payload protocol.CreateRoomPayload
	_ = json.Unmarshal(frame.Data, &payload)

	room, err := c.reg.Create(payload.Title, payload.Secret, c.now())
	if err != nil {
		c.unicast(s.ConnID, protocol.EvRoomCreateFailed, protocol.ReasonPayload{
			Reason: err.Error(),
		})
		return
	}

	c.unicast(s.ConnID, protocol.EvRoomCreated, protocol.RoomCreatedPayload{
		ID:    room.ID,
		Title: room.Title,
	})
	c.moveTo(s, room)
}

func (c *Coordinator) handleDeleteRoom(s *domain.Session, frame protocol.Frame) {
	var payload protocol.RoomRefPayload
	_ = json.Unmarshal(frame.Data, &payload)

	roomID := domain.Slug(payload.RoomID)
	if err := c.reg.Delete(roomID); err != nil {
		c.unicast(s.ConnID, protocol.EvRoomDeleteFailed, protocol.ReasonPayload{
			Reason: err.Error(),
		})
		return
	}

	// Crosstalk pairs scoped to the room die with it; no ended broadcast,
	// there is nobody left to hear it.
	for key := range c.crosstalks {
		if key.RoomID == roomID {
			c.sched.Cancel(pairOwner(key), taskDMExpiry)
			delete(c.crosstalks, key)
		}
	}
	c.purgeStoredRoom(roomID)

	c.toAll(protocol.EvRoomDeleted, protocol.RoomDeletedPayload{ID: roomID})
}
