package domain

import (
	"time"
)

// User represents an anonymous visitor identified by a device cookie.
// The registry only tracks identity and activity; conversation state
// lives in per-session memory and is never persisted.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IdleFor reports whether the user has been inactive for at least ttl.
func (u *User) IdleFor(ttl time.Duration) bool {
	return time.Since(u.LastSeenAt) >= ttl
}
