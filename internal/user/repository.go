package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("user not found")

// Repository stores the last-seen record per username.
type Repository interface {
	SaveLastSeen(ctx context.Context, rec LastSeenRecord) error
	GetLastSeen(ctx context.Context, username string) (LastSeenRecord, error)
}

const lastSeenPrefix = "lastseen:"

type RedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisRepository keeps records for ttl; zero means forever.
func NewRedisRepository(rdb *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisRepository) SaveLastSeen(ctx context.Context, rec LastSeenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode last seen: %w", err)
	}
	if err := r.rdb.Set(ctx, lastSeenKey(rec.Username), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save last seen: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetLastSeen(ctx context.Context, username string) (LastSeenRecord, error) {
	var rec LastSeenRecord
	data, err := r.rdb.Get(ctx, lastSeenKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("get last seen: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode last seen: %w", err)
	}
	return rec, nil
}

func lastSeenKey(username string) string {
	return lastSeenPrefix + strings.ToLower(username)
}

// MemoryRepository is used when no Redis address is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]LastSeenRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]LastSeenRecord)}
}

func (m *MemoryRepository) SaveLastSeen(_ context.Context, rec LastSeenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[lastSeenKey(rec.Username)] = rec
	return nil
}

func (m *MemoryRepository) GetLastSeen(_ context.Context, username string) (LastSeenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[lastSeenKey(username)]
	if !ok {
		return rec, ErrNotFound
	}
	return rec, nil
}
