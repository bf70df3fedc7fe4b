package domain

import "time"

// PairKey identifies a crosstalk pair inside a room. Colors are ordered so
// both directions of the exchange map to the same key.
type PairKey struct {
	RoomID string
	A, B   string
}

func NewPairKey(roomID, colorA, colorB string) PairKey {
	if colorB < colorA {
		colorA, colorB = colorB, colorA
	}
	return PairKey{RoomID: roomID, A: colorA, B: colorB}
}

// Crosstalk is an active direct-message pair. Only its existence is room
// visible; content never is. Not persisted anywhere.
type Crosstalk struct {
	Key          PairKey
	Participants [2]Participant
	LastActivity time.Time
}

// Participant is the room-visible naming of one side of a crosstalk.
type Participant struct {
	Color  string
	Handle string
}
