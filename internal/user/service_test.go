package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence-chat/internal/chat"
)

type fakeDirectory struct {
	online []chat.User
	err    error
}

func (d *fakeDirectory) FindOnline(_ context.Context, username string) (chat.User, bool, error) {
	if d.err != nil {
		return chat.User{}, false, d.err
	}
	for _, u := range d.online {
		if strings.EqualFold(u.Username, username) {
			return u, true, nil
		}
	}
	return chat.User{}, false, nil
}

func (d *fakeDirectory) SearchOnline(_ context.Context, q string, limit int) ([]chat.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []chat.User
	for _, u := range d.online {
		if strings.Contains(u.Username, q) && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestService(dir Directory) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if dir != nil {
		svc.SetDirectory(dir)
	}
	return svc, repo
}

func TestPresenceOnline(t *testing.T) {
	dir := &fakeDirectory{online: []chat.User{{ID: "u1", Username: "alice", Status: chat.StatusOnline}}}
	svc, _ := newTestService(dir)

	p, err := svc.Presence(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "online", p.Status)
	assert.Equal(t, "u1", p.UserID)
}

func TestPresenceFallsBackToLastSeen(t *testing.T) {
	svc, _ := newTestService(&fakeDirectory{})
	left := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, svc.RecordLastSeen(context.Background(), chat.User{
		ID: "u1", Username: "alice", Status: chat.StatusOffline, LastSeen: left,
	}))

	p, err := svc.Presence(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "offline", p.Status)
	assert.Equal(t, left, p.LastSeen)
	assert.Equal(t, "alice", p.Username)
}

func TestPresenceDirectoryErrorStillChecksStore(t *testing.T) {
	svc, _ := newTestService(&fakeDirectory{err: errors.New("hub stopped")})
	require.NoError(t, svc.RecordLastSeen(context.Background(), chat.User{ID: "u1", Username: "bob"}))

	p, err := svc.Presence(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "offline", p.Status)
}

func TestPresenceUnknown(t *testing.T) {
	svc, _ := newTestService(&fakeDirectory{})
	_, err := svc.Presence(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Presence(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchUsers(t *testing.T) {
	var online []chat.User
	for i := 0; i < 15; i++ {
		online = append(online, chat.User{ID: string(rune('a' + i)), Username: "user" + string(rune('a'+i))})
	}
	svc, _ := newTestService(&fakeDirectory{online: online})

	got, err := svc.SearchUsers(context.Background(), "user")
	require.NoError(t, err)
	assert.Len(t, got, 10)

	none, _ := newTestService(nil)
	got, err = none.SearchUsers(context.Background(), "user")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type ctxAwareRepository struct {
	*MemoryRepository
}

func (r ctxAwareRepository) GetLastSeen(ctx context.Context, username string) (LastSeenRecord, error) {
	if err := ctx.Err(); err != nil {
		return LastSeenRecord{}, err
	}
	return r.MemoryRepository.GetLastSeen(ctx, username)
}

func TestPresenceLookupIgnoresCallerCancellation(t *testing.T) {
	mem := NewMemoryRepository()
	svc := NewService(ctxAwareRepository{mem}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, svc.RecordLastSeen(context.Background(), chat.User{
		ID: "u1", Username: "alice", Status: chat.StatusOffline, LastSeen: time.Now(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := svc.Presence(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
}
