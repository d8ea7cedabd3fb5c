// Package server tracks rooms: their member sets, keyed by user id, and a
// bounded message history retained for replay to late joiners.
package server

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Room is a named, ephemeral chat scope. Rooms are created on first join and
// deleted as soon as the last member leaves.
type Room struct {
	ID        string
	CreatedAt time.Time

	members map[string]User
	history *messageRing
}

func (r *Room) upsertMember(u User) {
	r.members[u.UserID] = u
}

func (r *Room) removeMember(userID string) {
	delete(r.members, userID)
}

func (r *Room) memberCount() int {
	return len(r.members)
}

// Members returns the current member list, sorted by user id so the order
// presented to clients is stable across broadcasts.
func (r *Room) Members() []User {
	users := lo.Values(r.members)
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (r *Room) recent(n int) []ChatMessage {
	return r.history.last(n)
}

// RoomStats is one row of the /health room listing.
type RoomStats struct {
	ID           string    `json:"id"`
	UserCount    int       `json:"userCount"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RoomStore holds every live room. It performs no locking of its own: the
// Registry is the sole mutator and serializes all access.
type RoomStore struct {
	rooms        map[string]*Room
	historyLimit int
}

// NewRoomStore creates an empty store whose rooms retain at most
// historyLimit messages each.
func NewRoomStore(historyLimit int) *RoomStore {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &RoomStore{
		rooms:        make(map[string]*Room),
		historyLimit: historyLimit,
	}
}

// GetOrCreate returns the room with the given id, creating an empty one if
// it does not exist yet.
func (s *RoomStore) GetOrCreate(roomID string) *Room {
	if room, ok := s.rooms[roomID]; ok {
		return room
	}
	room := &Room{
		ID:        roomID,
		CreatedAt: time.Now().UTC(),
		members:   make(map[string]User),
		history:   newMessageRing(s.historyLimit),
	}
	s.rooms[roomID] = room
	return room
}

// Get looks up a room without creating it.
func (s *RoomStore) Get(roomID string) (*Room, bool) {
	room, ok := s.rooms[roomID]
	return room, ok
}

// Delete removes a room. Deleting an absent room is a no-op.
func (s *RoomStore) Delete(roomID string) {
	delete(s.rooms, roomID)
}

// AppendMessage appends to the room's history, evicting the oldest entry
// once the history limit is reached. It reports false if the room does not
// exist; the caller decides whether that matters.
func (s *RoomStore) AppendMessage(roomID string, msg ChatMessage) bool {
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	room.history.push(msg)
	return true
}

// Len returns the number of live rooms.
func (s *RoomStore) Len() int {
	return len(s.rooms)
}

// Stats returns one row per live room, sorted by room id.
func (s *RoomStore) Stats() []RoomStats {
	rows := lo.MapToSlice(s.rooms, func(id string, room *Room) RoomStats {
		return RoomStats{
			ID:           id,
			UserCount:    room.memberCount(),
			MessageCount: room.history.len(),
			CreatedAt:    room.CreatedAt,
		}
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}
