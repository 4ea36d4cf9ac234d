package chat

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConnectionRegistry binds live connections to users.
type ConnectionRegistry struct {
	byConn map[string]*User
	byUser map[string]string // user id -> connection id
	conns  *idSet
	now    func() time.Time
}

func NewConnectionRegistry(now func() time.Time) *ConnectionRegistry {
	if now == nil {
		now = time.Now
	}
	return &ConnectionRegistry{
		byConn: make(map[string]*User),
		byUser: make(map[string]string),
		conns:  newIDSet(),
		now:    now,
	}
}

// Register creates an online user for connID. A blank username gets a
// generated guest name and a blank avatar gets a generated one.
func (r *ConnectionRegistry) Register(connID string, p Profile) User {
	name := strings.TrimSpace(p.Username)
	if name == "" {
		name = "Guest-" + uuid.NewString()[:6]
	}
	avatar := strings.TrimSpace(p.Avatar)
	if avatar == "" {
		avatar = DefaultAvatar(name)
	}

	u := &User{
		ID:       uuid.NewString(),
		Username: name,
		Avatar:   avatar,
		Status:   StatusOnline,
		LastSeen: r.now(),
	}
	r.byConn[connID] = u
	r.byUser[u.ID] = connID
	r.conns.Add(connID)
	return *u
}

func (r *ConnectionRegistry) Lookup(connID string) (User, bool) {
	u, ok := r.byConn[connID]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (r *ConnectionRegistry) UserByID(userID string) (User, bool) {
	connID, ok := r.byUser[userID]
	if !ok {
		return User{}, false
	}
	return r.Lookup(connID)
}

// ConnOf returns the connection currently bound to userID.
func (r *ConnectionRegistry) ConnOf(userID string) (string, bool) {
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Remove marks the user offline, stamps lastSeen and drops the binding.
// The returned snapshot is the user as it was on the way out.
func (r *ConnectionRegistry) Remove(connID string) (User, bool) {
	u, ok := r.byConn[connID]
	if !ok {
		return User{}, false
	}
	u.Status = StatusOffline
	u.LastSeen = r.now()

	delete(r.byConn, connID)
	delete(r.byUser, u.ID)
	r.conns.Remove(connID)
	return *u, true
}

// Online lists users in the order they authenticated.
func (r *ConnectionRegistry) Online() []User {
	out := make([]User, 0, r.conns.Len())
	for _, connID := range r.conns.IDs() {
		out = append(out, *r.byConn[connID])
	}
	return out
}

func (r *ConnectionRegistry) Len() int { return r.conns.Len() }

// DefaultAvatar builds a generated avatar URL for name.
func DefaultAvatar(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
