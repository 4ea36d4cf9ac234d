package user

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"presence-chat/internal/chat"
)

const searchLimit = 10

// Directory answers questions about users who are online right now.
type Directory interface {
	FindOnline(ctx context.Context, username string) (chat.User, bool, error)
	SearchOnline(ctx context.Context, q string, limit int) ([]chat.User, error)
}

type Service struct {
	repo   Repository
	dir    Directory
	group  singleflight.Group
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// SetDirectory wires the live directory. The hub needs the service as its
// last-seen recorder, so the two are built in sequence.
func (s *Service) SetDirectory(dir Directory) { s.dir = dir }

// RecordLastSeen stores the offline snapshot of a departed user.
func (s *Service) RecordLastSeen(ctx context.Context, u chat.User) error {
	return s.repo.SaveLastSeen(ctx, LastSeenRecord{
		UserID:   u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		LastSeen: u.LastSeen,
	})
}

// Presence reports a user as online if connected, otherwise as offline
// with the last recorded time.
func (s *Service) Presence(ctx context.Context, username string) (*Presence, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNotFound
	}

	if s.dir != nil {
		u, ok, err := s.dir.FindOnline(ctx, username)
		if err != nil {
			s.logger.Warn("online lookup failed", "username", username, "error", err)
		} else if ok {
			return presenceOf(u), nil
		}
	}

	// The lookup is shared, so one caller going away must not fail the rest.
	loadCtx := context.WithoutCancel(ctx)
	val, err, shared := s.group.Do(lastSeenKey(username), func() (any, error) {
		return s.repo.GetLastSeen(loadCtx, username)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("shared last seen lookup", "username", username)
	}
	rec := val.(LastSeenRecord)
	return &Presence{
		Username: rec.Username,
		UserID:   rec.UserID,
		Avatar:   rec.Avatar,
		Status:   string(chat.StatusOffline),
		LastSeen: rec.LastSeen,
	}, nil
}

// SearchUsers matches online users by name. Limited to 10 like the search box
// expects.
func (s *Service) SearchUsers(ctx context.Context, q string) ([]Presence, error) {
	out := []Presence{}
	if s.dir == nil {
		return out, nil
	}
	users, err := s.dir.SearchOnline(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, *presenceOf(u))
	}
	return out, nil
}

func presenceOf(u chat.User) *Presence {
	return &Presence{
		Username: u.Username,
		UserID:   u.ID,
		Avatar:   u.Avatar,
		Status:   string(u.Status),
		LastSeen: u.LastSeen,
	}
}
