package chat

import (
	"encoding/json"
	"log/slog"
)

// Sink accepts an encoded event for one connection. Deliver must not block;
// it returns false when the event was dropped.
type Sink interface {
	Deliver(payload []byte) bool
}

// Event is the wire envelope used in both directions.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Broadcaster fans events out to connections. Delivery is best effort: a
// missing or full sink loses the event and nothing is retried.
type Broadcaster struct {
	sinks  map[string]Sink
	users  *ConnectionRegistry
	rooms  *RoomRegistry
	logger *slog.Logger
}

func NewBroadcaster(users *ConnectionRegistry, rooms *RoomRegistry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		sinks:  make(map[string]Sink),
		users:  users,
		rooms:  rooms,
		logger: logger,
	}
}

func (b *Broadcaster) Attach(connID string, s Sink) { b.sinks[connID] = s }

func (b *Broadcaster) Detach(connID string) { delete(b.sinks, connID) }

func (b *Broadcaster) Len() int { return len(b.sinks) }

// ToConn delivers to a connection whether or not it has authenticated.
func (b *Broadcaster) ToConn(connID string, ev Event) int {
	payload, ok := b.encode(ev)
	if !ok {
		return 0
	}
	return b.deliver(connID, ev.Name, payload)
}

// ToUser delivers to the connection bound to userID, if it is still live.
func (b *Broadcaster) ToUser(userID string, ev Event) int {
	connID, ok := b.users.ConnOf(userID)
	if !ok {
		return 0
	}
	return b.ToConn(connID, ev)
}

func (b *Broadcaster) ToRoom(roomID string, ev Event) int {
	return b.ToRoomExcept(roomID, "", ev)
}

// ToRoomExcept delivers to every member of roomID other than excludedUserID.
func (b *Broadcaster) ToRoomExcept(roomID, excludedUserID string, ev Event) int {
	members := b.rooms.MembersOf(roomID)
	if len(members) == 0 {
		return 0
	}
	payload, ok := b.encode(ev)
	if !ok {
		return 0
	}
	sent := 0
	for _, userID := range members {
		if userID == excludedUserID {
			continue
		}
		connID, ok := b.users.ConnOf(userID)
		if !ok {
			continue
		}
		sent += b.deliver(connID, ev.Name, payload)
	}
	return sent
}

func (b *Broadcaster) encode(ev Event) ([]byte, bool) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encode event", "event", ev.Name, "error", err)
		return nil, false
	}
	return payload, true
}

func (b *Broadcaster) deliver(connID, name string, payload []byte) int {
	s, ok := b.sinks[connID]
	if !ok {
		return 0
	}
	if !s.Deliver(payload) {
		b.logger.Warn("dropping event for slow consumer", "conn", connID, "event", name)
		return 0
	}
	return 1
}
