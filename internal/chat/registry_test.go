package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsIdentity(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewConnectionRegistry(func() time.Time { return at })

	u := r.Register("conn-1", Profile{Username: "  alice "})
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "conn-1", u.ID)
	assert.Equal(t, StatusOnline, u.Status)
	assert.Equal(t, at, u.LastSeen)
	assert.Equal(t, "https://ui-avatars.com/api/?name=alice&background=random", u.Avatar)

	got, ok := r.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, u, got)

	connID, ok := r.ConnOf(u.ID)
	require.True(t, ok)
	assert.Equal(t, "conn-1", connID)
}

func TestRegisterFallsBackToGuestName(t *testing.T) {
	r := NewConnectionRegistry(nil)
	u := r.Register("c", Profile{Avatar: "https://example.com/me.png"})
	assert.True(t, strings.HasPrefix(u.Username, "Guest-"), u.Username)
	assert.Equal(t, "https://example.com/me.png", u.Avatar)
}

func TestRemoveMarksOfflineAndForgets(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewConnectionRegistry(func() time.Time { return clock })
	u := r.Register("c", Profile{Username: "bob"})

	clock = clock.Add(time.Hour)
	gone, ok := r.Remove("c")
	require.True(t, ok)
	assert.Equal(t, u.ID, gone.ID)
	assert.Equal(t, StatusOffline, gone.Status)
	assert.Equal(t, clock, gone.LastSeen)

	_, ok = r.Lookup("c")
	assert.False(t, ok)
	_, ok = r.ConnOf(u.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Remove("c")
	assert.False(t, ok)
}

func TestOnlineIsInRegistrationOrder(t *testing.T) {
	r := NewConnectionRegistry(nil)
	r.Register("1", Profile{Username: "a"})
	r.Register("2", Profile{Username: "b"})
	r.Register("3", Profile{Username: "c"})
	r.Remove("2")

	var names []string
	for _, u := range r.Online() {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"a", "c"}, names)
}
