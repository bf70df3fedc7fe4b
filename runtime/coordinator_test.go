package runtime

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"driftroom/domain"
	"driftroom/moderation"
	"driftroom/protocol"
	"driftroom/ratelimit"
	"driftroom/repositories"
)

type sentEvent struct {
	Event string
	Data  any
}

// recordingSink captures everything the coordinator sends to one
// connection.
type recordingSink struct {
	events []sentEvent
	kicked bool
}

func (s *recordingSink) Send(event string, data any) {
	s.events = append(s.events, sentEvent{Event: event, Data: data})
}

func (s *recordingSink) Kick() { s.kicked = true }

func (s *recordingSink) named(event string) []any {
	var out []any
	for _, e := range s.events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

func (s *recordingSink) last(event string) (any, bool) {
	matches := s.named(event)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[len(matches)-1], true
}

func (s *recordingSink) reset() { s.events = nil }

type fixture struct {
	coord *Coordinator
	reg   *Registry
	sched *Scheduler
	now   time.Time
	sinks map[string]*recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	moderator, err := moderation.NewModerator([]string{"nigger"}, moderation.MaskChar)
	require.NoError(t, err)

	f := &fixture{
		reg:   newTestRegistry(),
		sched: NewScheduler(64),
		now:   time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC),
		sinks: make(map[string]*recordingSink),
	}
	t.Cleanup(f.sched.Stop)

	// The registry stamps the default room with the wall clock; align it
	// with the fixture clock so quiet-time math is deterministic.
	f.reg.DefaultRoom().LastActivity = f.now
	f.reg.DefaultRoom().LastMessage = f.now

	limiter := ratelimit.New(ratelimit.DefaultRules(), ratelimit.DefaultTotal())
	store := repositories.NewMemoryStore(repositories.DefaultCaps())
	f.coord = NewCoordinator(testLogger(), f.reg, limiter, moderator, f.sched, store).
		WithClock(func() time.Time { return f.now })
	return f
}

func frameOf(t *testing.T, event string, payload any) protocol.Frame {
	t.Helper()
	f := protocol.Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		f.Data = data
	}
	return f
}

func (f *fixture) connect(connID, ip string) *recordingSink {
	sink := &recordingSink{}
	f.sinks[connID] = sink
	f.coord.handle(envelope{connID: connID, ip: ip, sink: sink})
	return sink
}

func (f *fixture) deliver(t *testing.T, connID, event string, payload any) {
	t.Helper()
	f.coord.handle(envelope{connID: connID, frame: ptr(frameOf(t, event, payload))})
}

func (f *fixture) join(t *testing.T, connID, ip, color, handle string) *recordingSink {
	t.Helper()
	sink := f.connect(connID, ip)
	f.deliver(t, connID, protocol.EvJoin, protocol.JoinPayload{Color: color, Handle: handle})
	return sink
}

// firePending forces a scheduled task and executes it the way Run does
// when the timer elapses.
func (f *fixture) firePending(t *testing.T, owner, purpose string) {
	t.Helper()
	require.True(t, f.sched.Fire(owner, purpose))
	select {
	case fn := <-f.sched.Tasks():
		fn()
	case <-time.After(time.Second):
		t.Fatal("fired task never reached the reactor channel")
	}
}

func ptr[T any](v T) *T { return &v }

func TestCoordinator_Join_Sends_Arrival_Snapshot(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// When a fresh connection joins
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")

	// Then the snapshot arrives in protocol order
	var order []string
	for _, e := range sink.events {
		order = append(order, e.Event)
	}
	req.Equal([]string{
		protocol.EvIdentity, protocol.EvRoomJoined, protocol.EvRoomTitle,
		protocol.EvGhosts, protocol.EvMood, protocol.EvSilence,
		protocol.EvPresenceGhosts, protocol.EvArrivalVibe, protocol.EvAttention,
		protocol.EvPresence,
	}, order)

	identity, ok := sink.last(protocol.EvIdentity)
	req.True(ok)
	req.Equal("#e6a3a3", identity.(protocol.IdentityPayload).Color)
	req.Equal("river", identity.(protocol.IdentityPayload).Handle)

	joined, _ := sink.last(protocol.EvRoomJoined)
	req.Equal(domain.DefaultRoomID, joined.(protocol.RoomJoinedPayload).ID)

	mood, _ := sink.last(protocol.EvMood)
	req.Equal("neutral", mood.(protocol.MoodPayload).Mood)
}

func TestCoordinator_Frames_Before_Join_Are_Ignored(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	sink := f.connect("conn-1", "10.0.0.1")
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "hello"})

	req.Empty(sink.events)
}

func TestCoordinator_Message_Broadcasts_And_Buffers(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sender := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "fern")
	sender.reset()
	peer.reset()

	// When one participant speaks
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "what a lovely evening"})

	// Then everyone in the room sees the message and the stream window
	for _, sink := range []*recordingSink{sender, peer} {
		view, ok := sink.last(protocol.EvMessage)
		req.True(ok)
		req.Equal("what a lovely evening", view.(protocol.MessageView).Text)
		req.Equal("#e6a3a3", view.(protocol.MessageView).Color)

		stream, ok := sink.last(protocol.EvStream)
		req.True(ok)
		req.Len(stream.(protocol.StreamPayload).IDs, 1)

		_, ok = sink.last(protocol.EvMood)
		req.True(ok)
	}

	// And the room buffer holds it
	req.Len(f.reg.DefaultRoom().Buffered(), 1)
}

func TestCoordinator_Empty_Message_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	sink.reset()

	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "   "})

	req.Empty(sink.named(protocol.EvMessage))
	req.Empty(f.reg.DefaultRoom().Buffered())
}

func TestCoordinator_Long_Message_Is_Truncated(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	sink.reset()

	f.deliver(t, "conn-1", protocol.EvMessage,
		protocol.MessagePayload{Text: strings.Repeat("a", domain.MaxTextLength+100)})

	view, ok := sink.last(protocol.EvMessage)
	req.True(ok)
	req.Len([]rune(view.(protocol.MessageView).Text), domain.MaxTextLength)
}

func TestCoordinator_Link_Is_Rejected(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sender := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "")
	sender.reset()
	peer.reset()

	f.deliver(t, "conn-1", protocol.EvMessage,
		protocol.MessagePayload{Text: "join me at http://example.com"})

	rejected, ok := sender.last(protocol.EvMessageRejected)
	req.True(ok)
	req.Equal(moderation.ReasonNoLinks, rejected.(protocol.ReasonPayload).Reason)
	req.Empty(peer.named(protocol.EvMessage))
	req.Empty(f.reg.DefaultRoom().Buffered())
}

func TestCoordinator_Bigotry_Masks_Bans_And_Disconnects(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sender := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "")
	sender.reset()
	peer.reset()

	// When a slur is sent
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "you nigger"})

	// Then the masked message is broadcast with forced attribution
	view, ok := peer.last(protocol.EvMessage)
	req.True(ok)
	req.Equal("you n*****", view.(protocol.MessageView).Text)
	req.True(view.(protocol.MessageView).Flagged)
	req.Equal("anon-e6a3", view.(protocol.MessageView).Handle)

	// And the room learns of the ban while the sender is severed
	_, ok = peer.last(protocol.EvUserBanned)
	req.True(ok)
	_, ok = sender.last(protocol.EvBanned)
	req.True(ok)
	req.True(sender.kicked)

	// And a reconnect from the same address is refused outright
	again := f.connect("conn-3", "10.0.0.1")
	req.True(again.kicked)
	_, ok = again.last(protocol.EvBanned)
	req.True(ok)
}

func TestCoordinator_Reveal_Rewrites_Buffered_Messages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "first"})
	sink.reset()

	// When the author reveals an identity
	f.deliver(t, "conn-1", protocol.EvReveal, protocol.RevealPayload{Handle: "river", Sigil: "◆"})

	// Then the room hears it and the buffered message is rewritten
	revealed, ok := sink.last(protocol.EvIdentityRevealed)
	req.True(ok)
	req.Equal("river", revealed.(protocol.RevealedPayload).Handle)
	req.Equal("river", f.reg.DefaultRoom().Buffered()[0].Handle)
	req.Equal("◆", f.reg.DefaultRoom().Buffered()[0].Sigil)
}

func TestCoordinator_Typing_Arms_AutoStop(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "")
	peer.reset()

	f.deliver(t, "conn-1", protocol.EvTyping, nil)

	_, ok := peer.last(protocol.EvTyping)
	req.True(ok)
	req.True(f.sched.Pending("conn-1", taskTypingStop))

	// Explicit stop cancels the timer and notifies the room
	f.deliver(t, "conn-1", protocol.EvTypingStop, nil)
	req.False(f.sched.Pending("conn-1", taskTypingStop))
	_, ok = peer.last(protocol.EvTypingStop)
	req.True(ok)
}

func TestCoordinator_Typing_AutoStop_Fires(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "")
	f.deliver(t, "conn-1", protocol.EvTyping, nil)
	peer.reset()

	// When the quiet window elapses without an explicit stop
	f.firePending(t, "conn-1", taskTypingStop)

	stopped, ok := peer.last(protocol.EvTypingStop)
	req.True(ok)
	req.Equal("river", stopped.(protocol.TypingPayload).Handle)
	req.False(f.sched.Pending("conn-1", taskTypingStop))
}

func TestCoordinator_Away_And_Back(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "")
	peer.reset()

	f.deliver(t, "conn-1", protocol.EvAway, nil)

	_, ok := peer.last(protocol.EvUserAway)
	req.True(ok)
	req.True(f.sched.Pending("conn-1", taskAway))

	f.deliver(t, "conn-1", protocol.EvBack, nil)

	_, ok = peer.last(protocol.EvUserBack)
	req.True(ok)
	req.False(f.sched.Pending("conn-1", taskAway))
}

func TestCoordinator_Away_Timeout_Reclaims_The_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvAway, nil)
	req.False(sink.kicked)

	// When the away window runs out without a back
	f.firePending(t, "conn-1", taskAway)

	req.True(sink.kicked)
}

func TestCoordinator_Affirm_And_Copy(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "keep this"})
	messageID := f.reg.DefaultRoom().Buffered()[0].ID
	sink.reset()

	f.deliver(t, "conn-1", protocol.EvAffirm, protocol.MessageRefPayload{MessageID: messageID})

	affirmation, ok := sink.last(protocol.EvAffirmation)
	req.True(ok)
	req.Equal(messageID, affirmation.(protocol.AffirmationPayload).MessageID)

	f.deliver(t, "conn-1", protocol.EvCopy, protocol.MessageRefPayload{MessageID: messageID})
	f.deliver(t, "conn-1", protocol.EvCopy, protocol.MessageRefPayload{MessageID: messageID})

	resonance, ok := sink.last(protocol.EvResonance)
	req.True(ok)
	req.Equal(2, resonance.(protocol.ResonancePayload).Count)
	req.Len(sink.named(protocol.EvCopy), 2)

	// A reference to an evicted message is a quiet no-op
	sink.reset()
	f.deliver(t, "conn-1", protocol.EvAffirm, protocol.MessageRefPayload{MessageID: "gone"})
	req.Empty(sink.events)
}

func TestCoordinator_Summon(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	caller := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")
	target := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "fern")
	caller.reset()
	target.reset()

	f.deliver(t, "conn-1", protocol.EvSummon, protocol.SummonPayload{Handle: "fern"})

	summoned, ok := target.last(protocol.EvSummoned)
	req.True(ok)
	req.Equal("river", summoned.(protocol.SummonedPayload).ByHandle)
	_, ok = caller.last(protocol.EvSummonSent)
	req.True(ok)

	f.deliver(t, "conn-1", protocol.EvSummon, protocol.SummonPayload{Handle: "nobody"})
	_, ok = caller.last(protocol.EvSummonFailed)
	req.True(ok)
}

func TestCoordinator_CreateRoom_And_Switch(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	sink.reset()

	// When a room is created
	f.deliver(t, "conn-1", protocol.EvCreateRoom, protocol.CreateRoomPayload{Title: "Quiet Corner"})

	// Then the creator is told and moved into it
	created, ok := sink.last(protocol.EvRoomCreated)
	req.True(ok)
	req.Equal("quiet-corner", created.(protocol.RoomCreatedPayload).ID)
	joined, _ := sink.last(protocol.EvRoomJoined)
	req.Equal("quiet-corner", joined.(protocol.RoomJoinedPayload).ID)
	req.Equal("quiet-corner", f.reg.Session("conn-1").RoomID)

	// A duplicate title fails with the verbatim reason
	f.deliver(t, "conn-1", protocol.EvCreateRoom, protocol.CreateRoomPayload{Title: "quiet  corner"})
	failed, ok := sink.last(protocol.EvRoomCreateFailed)
	req.True(ok)
	req.Equal("room exists", failed.(protocol.ReasonPayload).Reason)

	// Switching to an unknown room fails without creating it
	f.deliver(t, "conn-1", protocol.EvSwitchRoom, protocol.RoomRefPayload{RoomID: "nowhere"})
	_, ok = sink.last(protocol.EvRoomSwitchFailed)
	req.True(ok)
	req.Nil(f.reg.Room("nowhere"))

	// Switching back to the default room works
	f.deliver(t, "conn-1", protocol.EvSwitchRoom, protocol.RoomRefPayload{RoomID: domain.DefaultRoomID})
	req.Equal(domain.DefaultRoomID, f.reg.Session("conn-1").RoomID)
}

func TestCoordinator_DeleteRoom(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvCreateRoom, protocol.CreateRoomPayload{Title: "Doomed"})
	f.deliver(t, "conn-1", protocol.EvSwitchRoom, protocol.RoomRefPayload{RoomID: domain.DefaultRoomID})
	sink.reset()

	// The main room is protected
	f.deliver(t, "conn-1", protocol.EvDeleteRoom, protocol.RoomRefPayload{RoomID: domain.DefaultRoomID})
	failed, ok := sink.last(protocol.EvRoomDeleteFailed)
	req.True(ok)
	req.Equal("Cannot delete the main room", failed.(protocol.ReasonPayload).Reason)

	// An empty room goes, and the deletion is announced
	f.deliver(t, "conn-1", protocol.EvDeleteRoom, protocol.RoomRefPayload{RoomID: "doomed"})
	deleted, ok := sink.last(protocol.EvRoomDeleted)
	req.True(ok)
	req.Equal("doomed", deleted.(protocol.RoomDeletedPayload).ID)
	req.Nil(f.reg.Room("doomed"))
}

func TestCoordinator_ListRooms_Hides_Secret_Rooms(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvCreateRoom, protocol.CreateRoomPayload{Title: "Hidden", Secret: true})
	sink.reset()

	f.deliver(t, "conn-1", protocol.EvListRooms, nil)

	listing, ok := sink.last(protocol.EvRoomList)
	req.True(ok)
	entries := listing.([]protocol.RoomListEntry)
	req.Len(entries, 1)
	req.Equal(domain.DefaultRoomID, entries[0].ID)
}

func TestCoordinator_DM_Creates_Crosstalk(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sender := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")
	target := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "fern")
	witness := f.join(t, "conn-3", "10.0.0.3", "#a3e6b8", "")
	sender.reset()
	target.reset()
	witness.reset()

	// When a direct message is sent
	f.deliver(t, "conn-1", protocol.EvDM, protocol.DMPayload{TargetColor: "#a3c9e6", Text: "psst"})

	// Then both parties receive the content
	for _, sink := range []*recordingSink{sender, target} {
		received, ok := sink.last(protocol.EvDMReceived)
		req.True(ok)
		req.Equal("psst", received.(protocol.DMReceivedPayload).Text)
	}

	// And the room only sees that the pair is talking
	crosstalk, ok := witness.last(protocol.EvCrosstalk)
	req.True(ok)
	req.Len(crosstalk.(protocol.CrosstalkPayload).Participants, 2)
	req.Empty(witness.named(protocol.EvDMReceived))

	key := domain.NewPairKey(domain.DefaultRoomID, "#e6a3a3", "#a3c9e6")
	req.Contains(f.coord.crosstalks, key)
	req.True(f.sched.Pending(pairOwner(key), taskDMExpiry))
}

func TestCoordinator_Crosstalk_Expires_When_Quiet(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")
	f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "fern")
	witness := f.join(t, "conn-3", "10.0.0.3", "#a3e6b8", "")
	f.deliver(t, "conn-1", protocol.EvDM, protocol.DMPayload{TargetColor: "#a3c9e6", Text: "psst"})
	witness.reset()

	// When the pair stays quiet past the expiry window
	key := domain.NewPairKey(domain.DefaultRoomID, "#e6a3a3", "#a3c9e6")
	f.now = f.now.Add(DMExpiry + time.Second)
	f.firePending(t, pairOwner(key), taskDMExpiry)

	// Then the room hears exactly one ending and the pair is gone
	ended := witness.named(protocol.EvCrosstalkEnded)
	req.Len(ended, 1)
	req.Len(ended[0].(protocol.CrosstalkPayload).Participants, 2)
	req.Empty(f.coord.crosstalks)
	req.False(f.sched.Pending(pairOwner(key), taskDMExpiry))
	req.False(f.sched.Fire(pairOwner(key), taskDMExpiry))
}

func TestCoordinator_DM_To_Unknown_Target_Fails(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sender := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	sender.reset()

	f.deliver(t, "conn-1", protocol.EvDM, protocol.DMPayload{TargetColor: "#ffffff", Text: "psst"})

	_, ok := sender.last(protocol.EvDMFailed)
	req.True(ok)
	req.Empty(f.coord.crosstalks)
}

func TestCoordinator_Disconnect_Leaves_Presence_Ghost(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "river")
	peer := f.join(t, "conn-2", "10.0.0.2", "#a3c9e6", "")
	peer.reset()

	f.coord.handle(envelope{connID: "conn-1", disconnect: true})

	ghosts := f.reg.DefaultRoom().Ghosts()
	req.Len(ghosts, 1)
	req.Equal("river", ghosts[0].Handle)
	req.Nil(f.reg.Session("conn-1"))

	presence, ok := peer.last(protocol.EvPresence)
	req.True(ok)
	req.Equal(1, presence.(protocol.PresencePayload).Count)
	_, ok = peer.last(protocol.EvPresenceGhosts)
	req.True(ok)
}

func TestCoordinator_Abuse_Severs_The_Connection(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Given a limiter whose abuse threshold is nearly spent
	limiter := ratelimit.New(map[ratelimit.Category]ratelimit.Rule{
		ratelimit.Message: {Max: 100, Window: 10 * time.Second},
		ratelimit.Join:    {Max: 100, Window: 10 * time.Second},
	}, ratelimit.Rule{Max: 3, Window: time.Minute})
	f.coord.limiter = limiter

	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "one"})
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "two"})
	sink.reset()

	// When the total window is exceeded
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "three"})

	// Then the event is refused as abuse and the transport is severed
	limited, ok := sink.last(protocol.EvRateLimited)
	req.True(ok)
	req.Equal(ratelimit.ReasonAbuse, limited.(protocol.RateLimitedPayload).Reason)
	req.True(sink.kicked)
}

func TestCoordinator_Silence_Sweep_And_Touch(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	sink.reset()

	// Given a room quiet past the threshold
	f.now = f.now.Add(SilenceThreshold + time.Second)
	f.coord.sweepSilence()

	silence, ok := sink.last(protocol.EvSilence)
	req.True(ok)
	req.True(silence.(protocol.SilencePayload).Settled)

	// When activity arrives the clearing is synchronous
	sink.reset()
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "back"})

	silence, ok = sink.last(protocol.EvSilence)
	req.True(ok)
	req.False(silence.(protocol.SilencePayload).Settled)
}

func TestCoordinator_Mood_Decays_When_Idle(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	sink := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "wonderful lovely great"})
	room := f.reg.DefaultRoom()
	req.Len(room.Scores(), 1)
	sink.reset()

	// A recently active room does not decay
	f.coord.decayMood()
	req.Len(room.Scores(), 1)

	// Past the threshold a neutral sample is pushed and mood rebroadcast
	f.now = f.now.Add(DecayThreshold + time.Second)
	f.coord.decayMood()

	req.Len(room.Scores(), 2)
	req.Equal(0.0, room.Scores()[1])
	_, ok := sink.last(protocol.EvMood)
	req.True(ok)
}

func TestCoordinator_Mood_Decay_Ignores_Typing_Activity(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	f.deliver(t, "conn-1", protocol.EvMessage, protocol.MessagePayload{Text: "wonderful lovely great"})
	room := f.reg.DefaultRoom()
	req.Len(room.Scores(), 1)

	// Typing keeps the room active but sends no message
	f.now = f.now.Add(DecayThreshold + time.Second)
	f.deliver(t, "conn-1", protocol.EvTyping, nil)
	f.coord.decayMood()

	req.Len(room.Scores(), 2)
	req.Equal(0.0, room.Scores()[1])
}

func TestCoordinator_Shutdown_Reaches_Unjoined_Connections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	joined := f.join(t, "conn-1", "10.0.0.1", "#e6a3a3", "")
	lurker := f.connect("conn-2", "10.0.0.2")
	joined.reset()
	lurker.reset()

	f.coord.shutdown()

	for _, sink := range []*recordingSink{joined, lurker} {
		_, ok := sink.last(protocol.EvServerShutdown)
		req.True(ok)
		req.True(sink.kicked)
	}
}
