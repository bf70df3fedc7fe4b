package runtime

import (
	"driftroom/domain"
	"driftroom/protocol"
)

func (c *Coordinator) handleFocus(s *domain.Session, focused bool) {
	if s.Focused == focused {
		return
	}
	s.Focused = focused
	c.broadcastAttention(s.RoomID)
}

func (c *Coordinator) handleAway(s *domain.Session) {
	s.SteppingAway = true
	c.toRoom(s.RoomID, protocol.EvUserAway, protocol.UserPresencePayload{
		Color:  s.Color,
		Handle: s.Handle,
	})
	c.broadcastAttention(s.RoomID)

	// Stepping away starts the clock: come back within the window or the
	// connection is reclaimed.
	connID := s.ConnID
	c.sched.Schedule(connID, taskAway, AwayTimeout, func() {
		c.log.Debug("away timeout reached", "conn_id", connID)
		c.kick(connID)
	})
}

func (c *Coordinator) handleBack(s *domain.Session) {
	s.SteppingAway = false
	c.sched.Cancel(s.ConnID, taskAway)
	c.toRoom(s.RoomID, protocol.EvUserBack, protocol.UserPresencePayload{
		Color:  s.Color,
		Handle: s.Handle,
	})
	c.broadcastAttention(s.RoomID)
}
