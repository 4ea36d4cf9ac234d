package chat

import (
	"slices"
	"strings"
)

const (
	roomTypingPrefix   = "room:"
	directTypingPrefix = "dm:"
)

// TypingTracker records who is typing per channel. Entries only go away on
// an explicit stop or on disconnect.
type TypingTracker struct {
	channels map[string]*idSet
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{channels: make(map[string]*idSet)}
}

// typingKey names the channel a typing signal belongs to. Both sides of a
// direct chat share one key.
func typingKey(userID string, t Target) string {
	switch t := t.(type) {
	case RoomTarget:
		return roomTypingPrefix + t.RoomID
	case DirectTarget:
		return directTypingPrefix + CanonicalKey(userID, t.RecipientID)
	}
	return ""
}

// targetForKey reverses typingKey from the point of view of userID.
func targetForKey(userID, key string) (Target, bool) {
	if roomID, ok := strings.CutPrefix(key, roomTypingPrefix); ok {
		return RoomTarget{RoomID: roomID}, true
	}
	if pair, ok := strings.CutPrefix(key, directTypingPrefix); ok {
		a, b, found := strings.Cut(pair, ":")
		if !found {
			return nil, false
		}
		if a == userID {
			return DirectTarget{RecipientID: b}, true
		}
		return DirectTarget{RecipientID: a}, true
	}
	return nil, false
}

func (t *TypingTracker) Start(key, userID string) bool {
	set, ok := t.channels[key]
	if !ok {
		set = newIDSet()
		t.channels[key] = set
	}
	return set.Add(userID)
}

func (t *TypingTracker) Stop(key, userID string) bool {
	set, ok := t.channels[key]
	if !ok {
		return false
	}
	removed := set.Remove(userID)
	if set.Len() == 0 {
		delete(t.channels, key)
	}
	return removed
}

// ClearUser removes userID everywhere and returns the sorted keys it was
// cleared from.
func (t *TypingTracker) ClearUser(userID string) []string {
	var cleared []string
	for key := range t.channels {
		if t.Stop(key, userID) {
			cleared = append(cleared, key)
		}
	}
	slices.Sort(cleared)
	return cleared
}

func (t *TypingTracker) ActiveTypers(key string) []string {
	set, ok := t.channels[key]
	if !ok {
		return nil
	}
	return set.IDs()
}
