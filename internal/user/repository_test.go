package user

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetLastSeen(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveLastSeen(ctx, LastSeenRecord{Username: "Alice", LastSeen: at}))
	require.NoError(t, repo.SaveLastSeen(ctx, LastSeenRecord{Username: "alice", LastSeen: at.Add(time.Hour)}))

	rec, err := repo.GetLastSeen(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, at.Add(time.Hour), rec.LastSeen)
}

func TestLastSeenKey(t *testing.T) {
	assert.Equal(t, "lastseen:alice", lastSeenKey("Alice"))
}

func TestRedisRepositoryWrapsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	repo := NewRedisRepository(rdb, time.Minute)

	_, err := repo.GetLastSeen(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get last seen")

	err = repo.SaveLastSeen(context.Background(), LastSeenRecord{Username: "alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save last seen")
}
