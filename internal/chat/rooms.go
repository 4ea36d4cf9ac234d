package chat

import (
	"unicode"
	"unicode/utf8"
)

const DefaultHistoryLimit = 100

// Room owns its member set and its bounded message log.
type Room struct {
	ID      string
	Name    string
	members *idSet
	log     []*Message
}

// RoomRegistry holds every room ever created. Rooms are never removed.
type RoomRegistry struct {
	rooms map[string]*Room
	order []string
	limit int
}

// NewRoomRegistry creates the registry with defaultRoom already present.
func NewRoomRegistry(defaultRoom string, limit int) *RoomRegistry {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	r := &RoomRegistry{
		rooms: make(map[string]*Room),
		limit: limit,
	}
	room := r.EnsureRoom(defaultRoom)
	room.Name = titleCase(defaultRoom)
	return r
}

// EnsureRoom returns the room, creating an empty one named after its id.
func (r *RoomRegistry) EnsureRoom(id string) *Room {
	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := &Room{ID: id, Name: id, members: newIDSet()}
	r.rooms[id] = room
	r.order = append(r.order, id)
	return room
}

func (r *RoomRegistry) Room(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// Join reports whether userID was newly added.
func (r *RoomRegistry) Join(roomID, userID string) bool {
	return r.EnsureRoom(roomID).members.Add(userID)
}

// Leave reports whether userID was a member.
func (r *RoomRegistry) Leave(roomID, userID string) bool {
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	return room.members.Remove(userID)
}

func (r *RoomRegistry) IsMember(roomID, userID string) bool {
	room, ok := r.rooms[roomID]
	return ok && room.members.Has(userID)
}

// Append pushes msg to the room log, evicting the oldest entries past the
// limit. It reports false when the room does not exist.
func (r *RoomRegistry) Append(roomID string, msg *Message) bool {
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	room.log = append(room.log, msg)
	if over := len(room.log) - r.limit; over > 0 {
		n := copy(room.log, room.log[over:])
		clear(room.log[n:])
		room.log = room.log[:n]
	}
	return true
}

func (r *RoomRegistry) MembersOf(roomID string) []string {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return room.members.IDs()
}

// History returns the room log oldest first. It is never nil.
func (r *RoomRegistry) History(roomID string) []*Message {
	room, ok := r.rooms[roomID]
	if !ok {
		return []*Message{}
	}
	out := make([]*Message, len(room.log))
	copy(out, room.log)
	return out
}

func (r *RoomRegistry) FindMessage(roomID, messageID string) (*Message, bool) {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	for _, m := range room.log {
		if m.ID == messageID {
			return m, true
		}
	}
	return nil, false
}

// RoomsOf lists the rooms userID belongs to, in room creation order.
func (r *RoomRegistry) RoomsOf(userID string) []string {
	var out []string
	for _, id := range r.order {
		if r.rooms[id].members.Has(userID) {
			out = append(out, id)
		}
	}
	return out
}

func (r *RoomRegistry) Summaries() []RoomSummary {
	out := make([]RoomSummary, 0, len(r.order))
	for _, id := range r.order {
		room := r.rooms[id]
		out = append(out, RoomSummary{
			ID:       room.ID,
			Name:     room.Name,
			Members:  room.members.Len(),
			Messages: len(room.log),
		})
	}
	return out
}

func (r *RoomRegistry) Len() int { return len(r.order) }

func titleCase(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}
