package runtime

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"driftroom/contract"
	"driftroom/domain"
	"driftroom/moderation"
	"driftroom/protocol"
	"driftroom/ratelimit"
	"driftroom/repositories"
)

// Timer and sweep tuning. Every duration here is a protocol constant, not
// a deployment knob.
const (
	SilenceThreshold = 30 * time.Second
	silenceSweep     = 5 * time.Second
	decayInterval    = time.Minute
	DecayThreshold   = 3 * time.Minute
	GhostLifetime    = 90 * time.Second
	ghostSweep       = 15 * time.Second
	AwayTimeout      = 2 * time.Minute
	DMExpiry         = 30 * time.Second
	TypingStop       = 3 * time.Second

	inboxBuffer = 512
)

// Scheduler purposes. One constant per timer kind keeps replace-on-reset
// keys from colliding.
const (
	taskTypingStop = "typing-stop"
	taskAway       = "away-timeout"
	taskDMExpiry   = "dm-expiry"
)

// envelope is one unit of inbound work: a new connection, a decoded frame,
// or a disconnect.
type envelope struct {
	connID     string
	ip         string
	sink       contract.Sink
	frame      *protocol.Frame
	disconnect bool
}

// Coordinator is the reactor: it drains one inbox and one timer channel on
// a single goroutine, so every handler runs to completion and no state in
// this package needs locks. Handlers must not block; durability writes are
// fired and forgotten.
type Coordinator struct {
	log       *slog.Logger
	reg       *Registry
	limiter   *ratelimit.Limiter
	moderator *moderation.Moderator
	sched     *Scheduler
	store     repositories.Store

	crosstalks map[domain.PairKey]*domain.Crosstalk
	banned     map[string]struct{}

	inbox       chan envelope
	connections atomic.Int64
	sweepsOnce  sync.Once
	now         func() time.Time
}

func NewCoordinator(log *slog.Logger, reg *Registry, limiter *ratelimit.Limiter,
	moderator *moderation.Moderator, sched *Scheduler, store repositories.Store) *Coordinator {
	return &Coordinator{
		log:        log,
		reg:        reg,
		limiter:    limiter,
		moderator:  moderator,
		sched:      sched,
		store:      store,
		crosstalks: make(map[domain.PairKey]*domain.Crosstalk),
		banned:     make(map[string]struct{}),
		inbox:      make(chan envelope, inboxBuffer),
		now:        time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Connect hands a freshly upgraded connection to the reactor. Safe from
// any goroutine.
func (c *Coordinator) Connect(connID, ip string, sink contract.Sink) {
	c.inbox <- envelope{connID: connID, ip: ip, sink: sink}
}

// Deliver queues one inbound frame. Per-connection ordering follows from
// the read pump posting sequentially.
func (c *Coordinator) Deliver(connID string, frame protocol.Frame) {
	c.inbox <- envelope{connID: connID, frame: &frame}
}

// Disconnect reports that the transport is gone.
func (c *Coordinator) Disconnect(connID string) {
	c.inbox <- envelope{connID: connID, disconnect: true}
}

// ConnectionCount is read by the health endpoint.
func (c *Coordinator) ConnectionCount() int64 {
	return c.connections.Load()
}

// Run drains the reactor until the context ends, then performs the
// shutdown broadcast. It satisfies contract.Worker so the supervisor can
// restart it if a handler ever panics.
func (c *Coordinator) Run(ctx context.Context) error {
	c.sweepsOnce.Do(func() {
		c.hydrate(ctx)
		c.sched.Every(silenceSweep, c.sweepSilence)
		c.sched.Every(decayInterval, c.decayMood)
		c.sched.Every(ghostSweep, c.sweepGhosts)
	})

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case env := <-c.inbox:
			c.handle(env)
		case fn := <-c.sched.Tasks():
			fn()
		}
	}
}

func (c *Coordinator) handle(env envelope) {
	switch {
	case env.sink != nil:
		c.handleConnect(env.connID, env.ip, env.sink)
	case env.disconnect:
		c.handleDisconnect(env.connID)
	case env.frame != nil:
		c.handleFrame(env.connID, *env.frame)
	}
}

func (c *Coordinator) handleConnect(connID, ip string, sink contract.Sink) {
	if _, isBanned := c.banned[ip]; isBanned {
		sink.Send(protocol.EvBanned, protocol.ReasonPayload{Reason: "banned"})
		sink.Kick()
		return
	}

	s := &domain.Session{
		ConnID: connID,
		IP:     ip,
		Color:  domain.Palette[rand.IntN(len(domain.Palette))],
	}
	c.reg.AddSession(s, sink)
	c.connections.Add(1)
	c.log.Debug("connection registered", "conn_id", connID, "ip", ip)
}

func (c *Coordinator) handleDisconnect(connID string) {
	s := c.reg.Session(connID)
	if s == nil {
		return
	}

	roomID := s.RoomID
	if roomID != "" {
		if room := c.reg.Room(roomID); room != nil {
			room.AddGhost(domain.PresenceGhost{
				Color:  s.Color,
				Handle: s.Handle,
				LeftAt: c.now(),
			})
		}
	}

	// Cleanup must run even if the session never joined a room.
	c.sched.CancelOwner(connID)
	c.limiter.Forget(connID)
	c.reg.RemoveSession(connID)
	c.connections.Add(-1)

	if roomID != "" {
		c.broadcastPresence(roomID)
		c.broadcastPresenceGhosts(roomID)
		c.broadcastAttention(roomID)
	}
	c.log.Debug("connection released", "conn_id", connID, "room", roomID)
}

// handleFrame is the per-connection state machine: until a session has
// joined a room, only join is meaningful; everything else is a no-op.
func (c *Coordinator) handleFrame(connID string, frame protocol.Frame) {
	s := c.reg.Session(connID)
	if s == nil {
		return
	}

	if s.RoomID == "" && frame.Event != protocol.EvJoin {
		return
	}

	switch frame.Event {
	case protocol.EvJoin:
		c.handleJoin(s, frame)
	case protocol.EvMessage:
		c.handleMessage(s, frame)
	case protocol.EvReveal:
		c.handleReveal(s, frame)
	case protocol.EvTyping:
		c.handleTyping(s)
	case protocol.EvTypingStop:
		c.handleTypingStop(s)
	case protocol.EvPing:
		// Liveness only; transport keepalive does the real work.
	case protocol.EvFocus:
		c.handleFocus(s, true)
	case protocol.EvBlur:
		c.handleFocus(s, false)
	case protocol.EvAway:
		c.handleAway(s)
	case protocol.EvBack:
		c.handleBack(s)
	case protocol.EvAffirm:
		c.handleAffirm(s, frame)
	case protocol.EvCopy:
		c.handleCopy(s, frame)
	case protocol.EvSummon:
		c.handleSummon(s, frame)
	case protocol.EvListRooms:
		c.handleListRooms(s)
	case protocol.EvCreateRoom:
		c.handleCreateRoom(s, frame)
	case protocol.EvDeleteRoom:
		c.handleDeleteRoom(s, frame)
	case protocol.EvSwitchRoom:
		c.handleSwitchRoom(s, frame)
	case protocol.EvDM:
		c.handleDM(s, frame)
	case protocol.EvDMTyping:
		c.handleDMTyping(s, frame)
	default:
		c.log.Debug("unknown event ignored", "event", frame.Event, "conn_id", connID)
	}
}

// allow applies the rate limiter for one event. A soft breach drops the
// event and tells the sender; abuse severs the connection.
func (c *Coordinator) allow(s *domain.Session, event string, cat ratelimit.Category) bool {
	decision := c.limiter.Check(s.ConnID, cat)
	if decision.Allowed {
		return true
	}
	c.unicast(s.ConnID, protocol.EvRateLimited, protocol.RateLimitedPayload{
		Event:  event,
		Reason: decision.Reason,
	})
	if decision.Reason == ratelimit.ReasonAbuse {
		c.log.Warn("abusive connection kicked", "conn_id", s.ConnID, "ip", s.IP)
		c.kick(s.ConnID)
	}
	return false
}

// kick severs the transport; cleanup happens when the disconnect event
// comes back through the inbox.
func (c *Coordinator) kick(connID string) {
	if sink := c.reg.Sink(connID); sink != nil {
		sink.Kick()
	}
}

// ban blocks the IP for the rest of the process lifetime.
func (c *Coordinator) ban(ip string) {
	c.banned[ip] = struct{}{}
}

func (c *Coordinator) unicast(connID, event string, data any) {
	if sink := c.reg.Sink(connID); sink != nil {
		sink.Send(event, data)
	}
}

func (c *Coordinator) toRoom(roomID, event string, data any) {
	for _, connID := range c.reg.Members(roomID) {
		c.unicast(connID, event, data)
	}
}

func (c *Coordinator) toRoomExcept(roomID, exceptConnID, event string, data any) {
	for _, connID := range c.reg.Members(roomID) {
		if connID != exceptConnID {
			c.unicast(connID, event, data)
		}
	}
}

// toAll reaches every connection, including ones that never joined a room.
func (c *Coordinator) toAll(event string, data any) {
	for _, connID := range c.reg.Connections() {
		c.unicast(connID, event, data)
	}
}

// shutdown tells everyone, severs every connection, and stops the timers.
func (c *Coordinator) shutdown() {
	c.log.Info("coordinator shutting down", "connections", c.connections.Load())
	c.toAll(protocol.EvServerShutdown, nil)
	for _, connID := range c.reg.Connections() {
		c.kick(connID)
	}
	c.sched.Stop()
}

// hydrate restores the default room's rolling windows from the durability
// backend. Best effort: a failure leaves the room empty and is only
// logged.
func (c *Coordinator) hydrate(ctx context.Context) {
	hydrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	room := c.reg.DefaultRoom()
	if messages, err := c.store.RecentMessages(hydrateCtx, room.ID); err != nil {
		c.log.Warn("hydration skipped", "room", room.ID, "error", err)
	} else if len(messages) > 0 {
		room.RestoreBuffer(messages)
		c.log.Info("room buffer hydrated", "room", room.ID, "messages", len(messages))
	}
	if scores, err := c.store.RecentScores(hydrateCtx, room.ID); err == nil && len(scores) > 0 {
		room.RestoreScores(scores)
	}
}
