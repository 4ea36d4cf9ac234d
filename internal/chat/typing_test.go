package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingStartStop(t *testing.T) {
	tr := NewTypingTracker()
	assert.True(t, tr.Start("room:general", "a"))
	assert.False(t, tr.Start("room:general", "a"))
	tr.Start("room:general", "b")
	assert.Equal(t, []string{"a", "b"}, tr.ActiveTypers("room:general"))

	assert.True(t, tr.Stop("room:general", "a"))
	assert.False(t, tr.Stop("room:general", "a"))
	assert.False(t, tr.Stop("room:nowhere", "a"))
	assert.Equal(t, []string{"b"}, tr.ActiveTypers("room:general"))
}

func TestTypingClearUser(t *testing.T) {
	tr := NewTypingTracker()
	tr.Start("room:general", "a")
	tr.Start("room:dev", "a")
	tr.Start("room:dev", "b")
	tr.Start("dm:a:b", "a")

	cleared := tr.ClearUser("a")
	assert.Equal(t, []string{"dm:a:b", "room:dev", "room:general"}, cleared)
	assert.Empty(t, tr.ActiveTypers("room:general"))
	assert.Equal(t, []string{"b"}, tr.ActiveTypers("room:dev"))
	assert.Empty(t, tr.ClearUser("a"))
}

func TestTypingKeyRoundTrip(t *testing.T) {
	roomKey := typingKey("a", RoomTarget{RoomID: "team:ops"})
	target, ok := targetForKey("a", roomKey)
	require.True(t, ok)
	assert.Equal(t, RoomTarget{RoomID: "team:ops"}, target)

	assert.Equal(t, typingKey("a", DirectTarget{RecipientID: "b"}), typingKey("b", DirectTarget{RecipientID: "a"}))
	target, ok = targetForKey("b", typingKey("a", DirectTarget{RecipientID: "b"}))
	require.True(t, ok)
	assert.Equal(t, DirectTarget{RecipientID: "a"}, target)

	_, ok = targetForKey("a", "bogus")
	assert.False(t, ok)
}
