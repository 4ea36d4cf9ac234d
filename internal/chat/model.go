package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------
// 👤 Identity
// ---------------------------------------------

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// User is the identity bound to one live connection. ID is minted at
// authentication and is independent of the transport connection id.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	Status   Status    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

// Profile is what a client offers when it authenticates.
type Profile struct {
	Username string
	Avatar   string
}

// ---------------------------------------------
// 💬 Messages
// ---------------------------------------------

// Kind is open ended; unknown kinds are stored and relayed as-is.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Target says where a message goes. Only RoomTarget and DirectTarget
// implement it, so a message always has exactly one destination.
type Target interface {
	isTarget()
}

type RoomTarget struct {
	RoomID string
}

type DirectTarget struct {
	RecipientID string
}

func (RoomTarget) isTarget()   {}
func (DirectTarget) isTarget() {}

// Message is a room or direct message. SenderName is copied at creation
// so later renames do not rewrite history.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Content    string
	Kind       Kind
	CreatedAt  time.Time
	Target     Target

	reactions map[string]*idSet
	readBy    *idSet
}

func newMessage(sender User, content string, kind Kind, target Target, now time.Time) *Message {
	if kind == "" {
		kind = KindText
	}
	name := sender.Username
	if name == "" {
		name = "Unknown"
	}
	return &Message{
		ID:         uuid.NewString(),
		SenderID:   sender.ID,
		SenderName: name,
		Content:    content,
		Kind:       kind,
		CreatedAt:  now,
		Target:     target,
		reactions:  make(map[string]*idSet),
		readBy:     newIDSet(sender.ID),
	}
}

// ToggleReaction adds userID to the reaction set, or removes it if it was
// already there. It reports whether the user now has the reaction.
func (m *Message) ToggleReaction(reaction, userID string) bool {
	set, ok := m.reactions[reaction]
	if !ok {
		set = newIDSet()
		m.reactions[reaction] = set
	}
	if set.Remove(userID) {
		if set.Len() == 0 {
			delete(m.reactions, reaction)
		}
		return false
	}
	set.Add(userID)
	return true
}

func (m *Message) Reactions() map[string][]string {
	out := make(map[string][]string, len(m.reactions))
	for reaction, set := range m.reactions {
		out[reaction] = set.IDs()
	}
	return out
}

// MarkRead reports whether userID was newly added to the read set.
func (m *Message) MarkRead(userID string) bool {
	return m.readBy.Add(userID)
}

func (m *Message) ReadBy() []string {
	return m.readBy.IDs()
}

type messageJSON struct {
	ID          string              `json:"id"`
	SenderID    string              `json:"senderId"`
	SenderName  string              `json:"senderName"`
	Content     string              `json:"content"`
	Kind        Kind                `json:"kind"`
	CreatedAt   time.Time           `json:"createdAt"`
	RoomID      string              `json:"roomId,omitempty"`
	RecipientID string              `json:"recipientId,omitempty"`
	Reactions   map[string][]string `json:"reactions"`
	ReadBy      []string            `json:"readBy"`
}

func (m *Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Kind:       m.Kind,
		CreatedAt:  m.CreatedAt,
		Reactions:  m.Reactions(),
		ReadBy:     m.ReadBy(),
	}
	switch t := m.Target.(type) {
	case RoomTarget:
		out.RoomID = t.RoomID
	case DirectTarget:
		out.RecipientID = t.RecipientID
	}
	return json.Marshal(out)
}

// ---------------------------------------------
// 📊 Snapshots
// ---------------------------------------------

type RoomSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Members  int    `json:"members"`
	Messages int    `json:"messages"`
}

type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}
