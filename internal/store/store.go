// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/vdlabs/vd-assistant/internal/domain"
)

// Repository defines the interface for persisting the anonymous
// identity registry. Conversation state is never stored here; sessions
// live in memory only.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetIdleUsers retrieves users inactive for at least ttl.
	GetIdleUsers(ctx context.Context, ttl time.Duration) ([]*domain.User, error)

	// DeleteIdleUsers removes registry rows inactive for at least ttl
	// and returns how many were deleted.
	DeleteIdleUsers(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
