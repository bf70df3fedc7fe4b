package protocol

import "encoding/json"

// Inbound event names (client to server).
const (
	EvJoin       = "join"
	EvMessage    = "message"
	EvReveal     = "reveal"
	EvTyping     = "typing"
	EvTypingStop = "typing-stop"
	EvPing       = "ping"
	EvFocus      = "focus"
	EvBlur       = "blur"
	EvAffirm     = "affirm"
	EvAway       = "away"
	EvBack       = "back"
	EvCopy       = "copy"
	EvSummon     = "summon"
	EvListRooms  = "list-rooms"
	EvCreateRoom = "create-room"
	EvDeleteRoom = "delete-room"
	EvSwitchRoom = "switch-room"
	EvDM         = "dm"
	EvDMTyping   = "dm-typing"
)

// Outbound event names (server to client).
const (
	EvIdentity         = "identity"
	EvGhosts           = "ghosts"
	EvStream           = "stream"
	EvMood             = "mood"
	EvRoomTitle        = "room-title"
	EvPresence         = "presence"
	EvPresenceGhosts   = "presence-ghosts"
	EvSilence          = "silence"
	EvArrivalVibe      = "arrival-vibe"
	EvAttention        = "attention"
	EvIdentityRevealed = "identity-revealed"
	EvResonance        = "resonance"
	EvAffirmation      = "affirmation"
	EvSummoned         = "summoned"
	EvSummonSent       = "summon-sent"
	EvSummonFailed     = "summon-failed"
	EvMessageRejected  = "message-rejected"
	EvBanned           = "banned"
	EvUserBanned       = "user-banned"
	EvUserAway         = "user-away"
	EvUserBack         = "user-back"
	EvRateLimited      = "rate-limited"
	EvRoomJoined       = "room-joined"
	EvRoomList         = "room-list"
	EvRoomCreated      = "room-created"
	EvRoomCreateFailed = "room-create-failed"
	EvRoomDeleted      = "room-deleted"
	EvRoomDeleteFailed = "room-delete-failed"
	EvRoomSwitchFailed = "room-switch-failed"
	EvDMReceived       = "dm-received"
	EvCrosstalk        = "crosstalk"
	EvCrosstalkEnded   = "crosstalk-ended"
	EvDMFailed         = "dm-failed"
	EvServerShutdown   = "server-shutdown"
)

// Inbound payloads.

type JoinPayload struct {
	Color  string `json:"color,omitempty"`
	Handle string `json:"handle,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Sigil  string `json:"sigil,omitempty"`
	RoomID string `json:"roomId,omitempty"`
}

// MessagePayload accepts both the bare-string and the object form of the
// message event.
type MessagePayload struct {
	Text    string `json:"text"`
	Whisper bool   `json:"whisper,omitempty"`
}

func (p *MessagePayload) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Text)
	}
	type alias MessagePayload
	return json.Unmarshal(data, (*alias)(p))
}

type RevealPayload struct {
	Handle string `json:"handle,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Sigil  string `json:"sigil,omitempty"`
}

type MessageRefPayload struct {
	MessageID string `json:"messageId,omitempty"`
}

type SummonPayload struct {
	Handle string `json:"handle"`
}

type CreateRoomPayload struct {
	Title  string `json:"title"`
	Secret bool   `json:"secret,omitempty"`
}

type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}

type DMPayload struct {
	TargetColor  string `json:"targetColor,omitempty"`
	TargetConnID string `json:"targetConnectionId,omitempty"`
	Text         string `json:"text,omitempty"`
}

// Outbound payloads.

type IdentityPayload struct {
	ConnectionID string `json:"connectionId"`
	Color        string `json:"color"`
	Handle       string `json:"handle,omitempty"`
	Tag          string `json:"tag,omitempty"`
	Sigil        string `json:"sigil,omitempty"`
}

type MessageView struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Color   string `json:"color"`
	Handle  string `json:"handle,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Sigil   string `json:"sigil,omitempty"`
	Whisper bool   `json:"whisper,omitempty"`
	Flagged bool   `json:"flagged,omitempty"`
	TS      int64  `json:"ts"`
}

// GhostView is a buffered message stripped for new joiners: same shape as
// MessageView but the text arrives only as a length hint, never legibly.
type GhostView struct {
	ID         string `json:"id"`
	Color      string `json:"color"`
	Sigil      string `json:"sigil,omitempty"`
	TextLength int    `json:"textLength"`
	Ghost      bool   `json:"ghost"`
	TS         int64  `json:"ts"`
}

// StreamPayload names the ids currently inside the rolling window so
// clients can evict everything else.
type StreamPayload struct {
	IDs []string `json:"ids"`
}

type MoodPayload struct {
	Mood string `json:"mood"`
}

type RoomTitlePayload struct {
	Title string `json:"title"`
}

type PresencePayload struct {
	Count int `json:"count"`
}

type PresenceGhostView struct {
	Color  string  `json:"color"`
	Handle string  `json:"handle,omitempty"`
	Fade   float64 `json:"fade"`
}

type SilencePayload struct {
	Settled bool  `json:"settled"`
	Since   int64 `json:"since,omitempty"`
}

type ArrivalVibePayload struct {
	Presence  int    `json:"presence"`
	Mood      string `json:"mood"`
	QuietFor  int64  `json:"quietFor"`
	HasGhosts bool   `json:"hasGhosts"`
}

type AttentionEntry struct {
	Color   string `json:"color"`
	Handle  string `json:"handle,omitempty"`
	Focused bool   `json:"focused"`
	Away    bool   `json:"away"`
}

type RevealedPayload struct {
	Color  string `json:"color"`
	Handle string `json:"handle,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Sigil  string `json:"sigil,omitempty"`
}

type ResonancePayload struct {
	MessageID string `json:"messageId"`
	Count     int    `json:"count"`
}

type AffirmationPayload struct {
	MessageID string `json:"messageId"`
	Color     string `json:"color"`
}

type SummonedPayload struct {
	ByColor  string `json:"byColor"`
	ByHandle string `json:"byHandle,omitempty"`
}

type ReasonPayload struct {
	Reason string `json:"reason"`
}

type UserBannedPayload struct {
	Color  string `json:"color"`
	Handle string `json:"handle,omitempty"`
	Reason string `json:"reason"`
}

type UserPresencePayload struct {
	Color  string `json:"color"`
	Handle string `json:"handle,omitempty"`
}

type RateLimitedPayload struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

type RoomJoinedPayload struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Secret bool   `json:"secret,omitempty"`
}

type RoomListEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Presence int    `json:"presence"`
	Mood     string `json:"mood"`
}

type RoomCreatedPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type RoomDeletedPayload struct {
	ID string `json:"id"`
}

type TypingPayload struct {
	Color  string `json:"color"`
	Handle string `json:"handle,omitempty"`
}

type DMReceivedPayload struct {
	FromColor  string `json:"fromColor"`
	FromHandle string `json:"fromHandle,omitempty"`
	ToColor    string `json:"toColor"`
	Text       string `json:"text"`
	TS         int64  `json:"ts"`
}

type CrosstalkPayload struct {
	Participants []CrosstalkParticipant `json:"participants"`
	TS           int64                  `json:"ts"`
}

type CrosstalkParticipant struct {
	Color  string `json:"color"`
	Handle string `json:"handle,omitempty"`
}
