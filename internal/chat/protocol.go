package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Client to server events.
const (
	EventAuthenticate       = "authenticate"
	EventJoinRoom           = "join_room"
	EventLeaveRoom          = "leave_room"
	EventSendMessage        = "send_message"
	EventTypingStart        = "typing_start"
	EventTypingStop         = "typing_stop"
	EventReactMessage       = "react_message"
	EventMarkRead           = "mark_read"
	EventGetPrivateMessages = "get_private_messages"
)

// Server to client events.
const (
	EventAuthenticated     = "authenticated"
	EventRoomMessages      = "room_messages"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventOnlineUsers       = "online_users"
	EventNewMessage        = "new_message"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventMessageReaction   = "message_reaction"
	EventMessageRead       = "message_read"
	EventPrivateMessages   = "private_messages"
)

var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownEvent     = errors.New("unknown event")
)

// Command is one client request. The set is closed: every implementation
// lives in this file and Coordinator.Dispatch handles each one.
type Command interface {
	command() string
}

type Authenticate struct{ Profile Profile }
type JoinRoom struct{ RoomID string }
type LeaveRoom struct{ RoomID string }
type SendMessage struct {
	Content string
	Kind    Kind
	Target  Target
}
type StartTyping struct{ Target Target }
type StopTyping struct{ Target Target }
type ReactMessage struct{ MessageID, Reaction, RoomID string }
type MarkRead struct{ MessageID, RoomID string }
type GetPrivateMessages struct{ RecipientID string }

// Disconnect is raised by the transport when a connection goes away.
type Disconnect struct{}

func (Authenticate) command() string       { return EventAuthenticate }
func (JoinRoom) command() string           { return EventJoinRoom }
func (LeaveRoom) command() string          { return EventLeaveRoom }
func (SendMessage) command() string        { return EventSendMessage }
func (StartTyping) command() string        { return EventTypingStart }
func (StopTyping) command() string         { return EventTypingStop }
func (ReactMessage) command() string       { return EventReactMessage }
func (MarkRead) command() string           { return EventMarkRead }
func (GetPrivateMessages) command() string { return EventGetPrivateMessages }
func (Disconnect) command() string         { return "disconnect" }

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type authData struct {
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	AvatarRef string `json:"avatarRef"`
}

type targetData struct {
	RoomID      string `json:"roomId"`
	RecipientID string `json:"recipientId"`
}

type sendData struct {
	targetData
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
	Type    Kind   `json:"type"`
}

type reactData struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
	RoomID    string `json:"roomId"`
}

type markReadData struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

type privateData struct {
	RecipientID string `json:"recipientId"`
}

// DecodeCommand parses one inbound frame of the form
// {"event": "...", "data": ...}.
func DecodeCommand(raw []byte) (Command, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	switch frame.Event {
	case EventAuthenticate:
		var p authData
		if err := decodeData(frame, &p); err != nil {
			return nil, err
		}
		avatar := p.Avatar
		if avatar == "" {
			avatar = p.AvatarRef
		}
		return Authenticate{Profile: Profile{Username: p.Username, Avatar: avatar}}, nil

	case EventJoinRoom, EventLeaveRoom:
		roomID, err := decodeRoomID(frame)
		if err != nil {
			return nil, err
		}
		if frame.Event == EventJoinRoom {
			return JoinRoom{RoomID: roomID}, nil
		}
		return LeaveRoom{RoomID: roomID}, nil

	case EventSendMessage:
		var p sendData
		if err := decodeData(frame, &p); err != nil {
			return nil, err
		}
		target, err := p.target()
		if err != nil {
			return nil, err
		}
		kind := p.Kind
		if kind == "" {
			kind = p.Type
		}
		return SendMessage{Content: p.Content, Kind: kind, Target: target}, nil

	case EventTypingStart, EventTypingStop:
		var p targetData
		if err := decodeData(frame, &p); err != nil {
			return nil, err
		}
		target, err := p.target()
		if err != nil {
			return nil, err
		}
		if frame.Event == EventTypingStart {
			return StartTyping{Target: target}, nil
		}
		return StopTyping{Target: target}, nil

	case EventReactMessage:
		var p reactData
		if err := decodeData(frame, &p); err != nil {
			return nil, err
		}
		if p.MessageID == "" || p.Reaction == "" || p.RoomID == "" {
			return nil, fmt.Errorf("%w: react_message needs messageId, reaction and roomId", ErrMalformedCommand)
		}
		return ReactMessage{MessageID: p.MessageID, Reaction: p.Reaction, RoomID: p.RoomID}, nil

	case EventMarkRead:
		var p markReadData
		if err := decodeData(frame, &p); err != nil {
			return nil, err
		}
		if p.MessageID == "" || p.RoomID == "" {
			return nil, fmt.Errorf("%w: mark_read needs messageId and roomId", ErrMalformedCommand)
		}
		return MarkRead{MessageID: p.MessageID, RoomID: p.RoomID}, nil

	case EventGetPrivateMessages:
		var p privateData
		if err := decodeData(frame, &p); err != nil {
			return nil, err
		}
		if p.RecipientID == "" {
			return nil, fmt.Errorf("%w: missing recipientId", ErrMalformedCommand)
		}
		return GetPrivateMessages{RecipientID: p.RecipientID}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
}

func decodeData(frame inboundFrame, v any) error {
	if len(frame.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformedCommand, frame.Event)
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedCommand, frame.Event, err)
	}
	return nil
}

// decodeRoomID accepts a bare string, or an object with a roomId field.
func decodeRoomID(frame inboundFrame) (string, error) {
	var roomID string
	if err := json.Unmarshal(frame.Data, &roomID); err != nil {
		var p targetData
		if err := decodeData(frame, &p); err != nil {
			return "", err
		}
		roomID = p.RoomID
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return "", fmt.Errorf("%w: %s without room id", ErrMalformedCommand, frame.Event)
	}
	return roomID, nil
}

func (p targetData) target() (Target, error) {
	switch {
	case p.RoomID != "" && p.RecipientID != "":
		return nil, fmt.Errorf("%w: both roomId and recipientId set", ErrMalformedCommand)
	case p.RoomID != "":
		return RoomTarget{RoomID: p.RoomID}, nil
	case p.RecipientID != "":
		return DirectTarget{RecipientID: p.RecipientID}, nil
	}
	return nil, fmt.Errorf("%w: neither roomId nor recipientId set", ErrMalformedCommand)
}
