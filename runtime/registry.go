// Package runtime owns event dispatch, room and session registries, and
// every timer in the system. All state in this package is mutated from the
// coordinator goroutine only.
package runtime

import (
	"strings"
	"time"

	"log/slog"

	"github.com/samber/lo"

	"driftroom/contract"
	"driftroom/domain"
	"driftroom/errors"
)

// RoomCap bounds the total number of rooms, default one included.
const RoomCap = 50

// Registry owns every Room and Session. It is not safe for concurrent use;
// the coordinator is its only caller.
type Registry struct {
	log          *slog.Logger
	defaultTitle string

	rooms    map[string]*domain.Room
	sessions map[string]*domain.Session
	sinks    map[string]contract.Sink
	members  map[string]map[string]struct{} // roomID -> connIDs
}

func NewRegistry(log *slog.Logger, defaultTitle string) *Registry {
	r := &Registry{
		log:          log,
		defaultTitle: defaultTitle,
		rooms:        make(map[string]*domain.Room),
		sessions:     make(map[string]*domain.Session),
		sinks:        make(map[string]contract.Sink),
		members:      make(map[string]map[string]struct{}),
	}
	r.rooms[domain.DefaultRoomID] = domain.NewRoom(domain.DefaultRoomID, defaultTitle, false, time.Now())
	return r
}

// Room returns the room or nil.
func (r *Registry) Room(id string) *domain.Room {
	return r.rooms[id]
}

// DefaultRoom always exists.
func (r *Registry) DefaultRoom() *domain.Room {
	return r.rooms[domain.DefaultRoomID]
}

// GetOrCreate resolves a room id, lazily creating it. At the room cap an
// unknown id silently resolves to the default room instead.
func (r *Registry) GetOrCreate(id string, now time.Time) *domain.Room {
	if room, ok := r.rooms[id]; ok {
		return room
	}
	if len(r.rooms) >= RoomCap {
		r.log.Debug("room cap reached, falling back to default room", "wanted", id)
		return r.DefaultRoom()
	}
	room := domain.NewRoom(id, id, false, now)
	r.rooms[id] = room
	return room
}

// Create makes a room explicitly from a title. Unlike GetOrCreate it fails
// loudly on cap, empty title, or slug collision.
func (r *Registry) Create(title string, secret bool, now time.Time) (*domain.Room, error) {
	title = trimTitle(title)
	if title == "" {
		return nil, errors.ErrTitleRequired
	}
	if len(r.rooms) >= RoomCap {
		return nil, errors.ErrRoomFull
	}
	id := domain.Slug(title)
	if _, exists := r.rooms[id]; exists {
		return nil, errors.ErrRoomExists
	}
	room := domain.NewRoom(id, title, secret, now)
	r.rooms[id] = room
	return room, nil
}

// Delete removes a room. The default room, unknown rooms, and rooms with
// anyone still inside are refused.
func (r *Registry) Delete(id string) error {
	if id == domain.DefaultRoomID {
		return errors.ErrDeleteMainRoom
	}
	room, ok := r.rooms[id]
	if !ok {
		return errors.ErrRoomNotFound
	}
	if len(r.members[id]) > 0 {
		return errors.ErrRoomNotEmpty
	}
	delete(r.rooms, room.ID)
	delete(r.members, room.ID)
	return nil
}

// Rooms returns every room, default included. Iteration order is undefined.
func (r *Registry) Rooms() []*domain.Room {
	return lo.Values(r.rooms)
}

// PublicRooms filters out secret rooms for listings.
func (r *Registry) PublicRooms() []*domain.Room {
	return lo.Filter(lo.Values(r.rooms), func(room *domain.Room, _ int) bool {
		return !room.Secret
	})
}

// AddSession registers a connection before it joins any room.
func (r *Registry) AddSession(s *domain.Session, sink contract.Sink) {
	r.sessions[s.ConnID] = s
	r.sinks[s.ConnID] = sink
}

// RemoveSession drops the session, its sink, and its room membership.
func (r *Registry) RemoveSession(connID string) {
	if s, ok := r.sessions[connID]; ok && s.RoomID != "" {
		r.leave(connID, s.RoomID)
	}
	delete(r.sessions, connID)
	delete(r.sinks, connID)
}

// Session returns the session or nil.
func (r *Registry) Session(connID string) *domain.Session {
	return r.sessions[connID]
}

// Sink returns the outbound side of a connection, or nil.
func (r *Registry) Sink(connID string) contract.Sink {
	return r.sinks[connID]
}

// Connections returns every live connection id, joined or not.
func (r *Registry) Connections() []string {
	return lo.Keys(r.sinks)
}

// Move places the connection into roomID, leaving its previous room first.
func (r *Registry) Move(connID, roomID string) {
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	if s.RoomID != "" {
		r.leave(connID, s.RoomID)
	}
	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]struct{})
	}
	r.members[roomID][connID] = struct{}{}
	s.RoomID = roomID
}

func (r *Registry) leave(connID, roomID string) {
	if members, ok := r.members[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, roomID)
		}
	}
}

// Members returns the connection ids currently in a room.
func (r *Registry) Members(roomID string) []string {
	return lo.Keys(r.members[roomID])
}

// SessionsIn resolves the live sessions of a room.
func (r *Registry) SessionsIn(roomID string) []*domain.Session {
	out := make([]*domain.Session, 0, len(r.members[roomID]))
	for connID := range r.members[roomID] {
		if s, ok := r.sessions[connID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Presence counts distinct client IPs in a room, not connections, so one
// person with many tabs counts once.
func (r *Registry) Presence(roomID string) int {
	ips := make(map[string]struct{})
	for connID := range r.members[roomID] {
		if s, ok := r.sessions[connID]; ok {
			ips[s.IP] = struct{}{}
		}
	}
	return len(ips)
}

// FindByColor returns the first session in the room asserting the color.
func (r *Registry) FindByColor(roomID, color string) *domain.Session {
	for connID := range r.members[roomID] {
		if s, ok := r.sessions[connID]; ok && s.Color == color {
			return s
		}
	}
	return nil
}

// FindByHandle returns the first session in the room with the handle.
func (r *Registry) FindByHandle(roomID, handle string) *domain.Session {
	for connID := range r.members[roomID] {
		if s, ok := r.sessions[connID]; ok && s.Handle == handle {
			return s
		}
	}
	return nil
}

// trimTitle collapses internal whitespace and trims the ends.
func trimTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
