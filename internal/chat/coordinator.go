package chat

import (
	"log/slog"
	"strings"
	"time"
)

const DefaultRoomID = "general"

type Options struct {
	DefaultRoom  string
	HistoryLimit int
	Logger       *slog.Logger
	Now          func() time.Time

	// OnDeparture receives the offline snapshot of every user that
	// disconnects. It runs inside Dispatch and must not block.
	OnDeparture func(User)
}

// Coordinator owns all presence and messaging state. It is not safe for
// concurrent use; the Hub calls it from a single goroutine, and every
// Dispatch runs to completion before the next one starts.
type Coordinator struct {
	users   *ConnectionRegistry
	rooms   *RoomRegistry
	private *PrivateChannelIndex
	typing  *TypingTracker
	out     *Broadcaster

	defaultRoom string
	now         func() time.Time
	logger      *slog.Logger
	onDeparture func(User)
}

func NewCoordinator(opts Options) *Coordinator {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = DefaultRoomID
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	users := NewConnectionRegistry(opts.Now)
	rooms := NewRoomRegistry(opts.DefaultRoom, opts.HistoryLimit)
	return &Coordinator{
		users:       users,
		rooms:       rooms,
		private:     NewPrivateChannelIndex(),
		typing:      NewTypingTracker(),
		out:         NewBroadcaster(users, rooms, opts.Logger),
		defaultRoom: opts.DefaultRoom,
		now:         opts.Now,
		logger:      opts.Logger,
		onDeparture: opts.OnDeparture,
	}
}

// Attach makes connID reachable before it authenticates.
func (c *Coordinator) Attach(connID string, s Sink) {
	c.out.Attach(connID, s)
}

// Dispatch applies one command for connID. Commands other than Authenticate
// and Disconnect are dropped when the connection has not authenticated.
func (c *Coordinator) Dispatch(connID string, cmd Command) {
	switch cmd := cmd.(type) {
	case Authenticate:
		c.authenticate(connID, cmd.Profile)
		return
	case Disconnect:
		c.disconnect(connID)
		return
	}

	user, ok := c.users.Lookup(connID)
	if !ok {
		c.logger.Debug("dropping command from unauthenticated connection", "conn", connID, "command", cmd.command())
		return
	}

	switch cmd := cmd.(type) {
	case JoinRoom:
		c.joinRoom(user, cmd.RoomID)
	case LeaveRoom:
		c.leaveRoom(user, cmd.RoomID)
	case SendMessage:
		c.sendMessage(user, cmd)
	case StartTyping:
		c.startTyping(user, cmd.Target)
	case StopTyping:
		c.stopTyping(user, cmd.Target)
	case ReactMessage:
		c.react(user, cmd)
	case MarkRead:
		c.markRead(user, cmd)
	case GetPrivateMessages:
		c.privateHistory(user, cmd.RecipientID)
	default:
		c.logger.Warn("unhandled command", "conn", connID, "command", cmd.command())
	}
}

func (c *Coordinator) authenticate(connID string, p Profile) {
	if _, ok := c.users.Lookup(connID); ok {
		c.logger.Debug("ignoring repeated authenticate", "conn", connID)
		return
	}

	user := c.users.Register(connID, p)
	c.rooms.Join(c.defaultRoom, user.ID)
	c.logger.Info("user authenticated", "conn", connID, "user", user.ID, "username", user.Username)

	c.out.ToUser(user.ID, Event{EventAuthenticated, user})
	c.sendHistory(user.ID, c.defaultRoom)
	c.out.ToRoomExcept(c.defaultRoom, user.ID, Event{EventUserJoined, membershipPayload{user, c.defaultRoom}})
	c.broadcastRoster(c.defaultRoom)
}

func (c *Coordinator) joinRoom(user User, roomID string) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return
	}
	added := c.rooms.Join(roomID, user.ID)
	c.sendHistory(user.ID, roomID)
	if added {
		c.out.ToRoomExcept(roomID, user.ID, Event{EventUserJoined, membershipPayload{user, roomID}})
	}
	// A rejoin still refreshes the roster for everyone in the room.
	c.broadcastRoster(roomID)
}

func (c *Coordinator) leaveRoom(user User, roomID string) {
	if !c.rooms.Leave(roomID, user.ID) {
		return
	}
	if key := typingKey(user.ID, RoomTarget{roomID}); c.typing.Stop(key, user.ID) {
		c.out.ToRoom(roomID, Event{EventUserStoppedTyping, typingPayload{UserID: user.ID, RoomID: roomID}})
	}
	c.out.ToRoom(roomID, Event{EventUserLeft, membershipPayload{user, roomID}})
	c.broadcastRoster(roomID)
}

func (c *Coordinator) sendMessage(user User, cmd SendMessage) {
	switch t := cmd.Target.(type) {
	case RoomTarget:
		if _, ok := c.rooms.Room(t.RoomID); !ok {
			c.logger.Debug("message for unknown room", "user", user.ID, "room", t.RoomID)
			return
		}
		msg := newMessage(user, cmd.Content, cmd.Kind, t, c.now())
		c.rooms.Append(t.RoomID, msg)
		c.out.ToRoom(t.RoomID, Event{EventNewMessage, msg})

	case DirectTarget:
		if t.RecipientID == "" {
			return
		}
		msg := newMessage(user, cmd.Content, cmd.Kind, t, c.now())
		c.private.Append(user.ID, t.RecipientID, msg)
		ev := Event{EventNewMessage, msg}
		c.out.ToUser(user.ID, ev)
		if t.RecipientID != user.ID {
			c.out.ToUser(t.RecipientID, ev)
		}
	}
}

func (c *Coordinator) startTyping(user User, target Target) {
	key := typingKey(user.ID, target)
	if key == "" {
		return
	}
	c.typing.Start(key, user.ID)
	c.relayTyping(user, target, Event{EventUserTyping, nil})
}

func (c *Coordinator) stopTyping(user User, target Target) {
	key := typingKey(user.ID, target)
	if key == "" {
		return
	}
	c.typing.Stop(key, user.ID)
	c.relayTyping(user, target, Event{EventUserStoppedTyping, nil})
}

// relayTyping sends a typing signal to everyone on the channel but the typer.
func (c *Coordinator) relayTyping(user User, target Target, ev Event) {
	p := typingPayload{UserID: user.ID}
	if ev.Name == EventUserTyping {
		p.Username = user.Username
	}
	switch t := target.(type) {
	case RoomTarget:
		p.RoomID = t.RoomID
		ev.Data = p
		c.out.ToRoomExcept(t.RoomID, user.ID, ev)
	case DirectTarget:
		p.RecipientID = t.RecipientID
		ev.Data = p
		if t.RecipientID != user.ID {
			c.out.ToUser(t.RecipientID, ev)
		}
	}
}

func (c *Coordinator) react(user User, cmd ReactMessage) {
	if cmd.Reaction == "" {
		return
	}
	msg, ok := c.rooms.FindMessage(cmd.RoomID, cmd.MessageID)
	if !ok {
		return
	}
	msg.ToggleReaction(cmd.Reaction, user.ID)
	c.out.ToRoom(cmd.RoomID, Event{EventMessageReaction, reactionPayload{
		MessageID: msg.ID,
		Reactions: msg.Reactions(),
		RoomID:    cmd.RoomID,
	}})
}

func (c *Coordinator) markRead(user User, cmd MarkRead) {
	msg, ok := c.rooms.FindMessage(cmd.RoomID, cmd.MessageID)
	if !ok {
		return
	}
	if !msg.MarkRead(user.ID) {
		return
	}
	c.out.ToRoom(cmd.RoomID, Event{EventMessageRead, readPayload{
		MessageID: msg.ID,
		ReadBy:    msg.ReadBy(),
		RoomID:    cmd.RoomID,
	}})
}

func (c *Coordinator) privateHistory(user User, recipientID string) {
	if recipientID == "" {
		return
	}
	c.out.ToUser(user.ID, Event{EventPrivateMessages, historyPayload{
		RecipientID: recipientID,
		Messages:    c.private.History(user.ID, recipientID),
	}})
}

// disconnect is safe to call more than once; later calls find no user.
func (c *Coordinator) disconnect(connID string) {
	defer c.out.Detach(connID)

	user, ok := c.users.Lookup(connID)
	if !ok {
		return
	}

	for _, roomID := range c.rooms.RoomsOf(user.ID) {
		c.rooms.Leave(roomID, user.ID)
		c.out.ToRoom(roomID, Event{EventUserLeft, membershipPayload{user, roomID}})
		c.broadcastRoster(roomID)
	}

	for _, key := range c.typing.ClearUser(user.ID) {
		target, ok := targetForKey(user.ID, key)
		if !ok {
			continue
		}
		c.relayTyping(user, target, Event{EventUserStoppedTyping, nil})
	}

	departed, _ := c.users.Remove(connID)
	c.logger.Info("user disconnected", "conn", connID, "user", departed.ID, "username", departed.Username)
	if c.onDeparture != nil {
		c.onDeparture(departed)
	}
}

func (c *Coordinator) sendHistory(userID, roomID string) {
	c.out.ToUser(userID, Event{EventRoomMessages, historyPayload{
		RoomID:   roomID,
		Messages: c.rooms.History(roomID),
	}})
}

func (c *Coordinator) broadcastRoster(roomID string) {
	c.out.ToRoom(roomID, Event{EventOnlineUsers, c.roster(roomID)})
}

func (c *Coordinator) roster(roomID string) []User {
	members := c.rooms.MembersOf(roomID)
	out := make([]User, 0, len(members))
	for _, id := range members {
		if u, ok := c.users.UserByID(id); ok {
			out = append(out, u)
		}
	}
	return out
}

// ---------------------------------------------
// 🔎 Read-only views
// ---------------------------------------------

func (c *Coordinator) Stats() Stats {
	return Stats{
		Connections: c.out.Len(),
		Users:       c.users.Len(),
		Rooms:       c.rooms.Len(),
	}
}

func (c *Coordinator) OnlineUsers() []User { return c.users.Online() }

func (c *Coordinator) RoomSummaries() []RoomSummary { return c.rooms.Summaries() }

func (c *Coordinator) RoomHistory(roomID string) []*Message { return c.rooms.History(roomID) }

func (c *Coordinator) PrivateHistory(a, b string) []*Message { return c.private.History(a, b) }

func (c *Coordinator) RoomMembers(roomID string) []string { return c.rooms.MembersOf(roomID) }

func (c *Coordinator) ActiveTypers(userID string, t Target) []string {
	return c.typing.ActiveTypers(typingKey(userID, t))
}

// FindOnline looks a user up by exact, case-insensitive username.
func (c *Coordinator) FindOnline(username string) (User, bool) {
	for _, u := range c.users.Online() {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return User{}, false
}

// SearchOnline returns up to limit online users whose name contains q.
func (c *Coordinator) SearchOnline(q string, limit int) []User {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []User{}
	for _, u := range c.users.Online() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out
}

// ---------------------------------------------
// 📦 Outbound payloads
// ---------------------------------------------

type membershipPayload struct {
	User   User   `json:"user"`
	RoomID string `json:"roomId"`
}

type historyPayload struct {
	RoomID      string     `json:"roomId,omitempty"`
	RecipientID string     `json:"recipientId,omitempty"`
	Messages    []*Message `json:"messages"`
}

type typingPayload struct {
	UserID      string `json:"userId"`
	Username    string `json:"username,omitempty"`
	RoomID      string `json:"roomId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

type reactionPayload struct {
	MessageID string              `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
	RoomID    string              `json:"roomId"`
}

type readPayload struct {
	MessageID string   `json:"messageId"`
	ReadBy    []string `json:"readBy"`
	RoomID    string   `json:"roomId"`
}
