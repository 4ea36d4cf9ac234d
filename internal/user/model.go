package user

import "time"

// Presence is what the directory knows about a username: either a live
// online user or the last time someone by that name went offline.
type Presence struct {
	Username string    `json:"username"`
	UserID   string    `json:"userId,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

type LastSeenRecord struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	LastSeen time.Time `json:"lastSeen"`
}
