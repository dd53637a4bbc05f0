package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/vdlabs/vd-assistant/internal/store"
)

// StartReaper runs a background worker that removes identity records
// idle past ttl. Before deleting, each idle user is reported through
// onReap so in-memory state tied to the user (chat sessions) is torn
// down with the record. onReap may be nil.
func StartReaper(ctx context.Context, repo store.Repository, interval, ttl time.Duration, onReap func(userID string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reapOnce(ctx, repo, ttl, onReap)
			}
		}
	}()
}

func reapOnce(ctx context.Context, repo store.Repository, ttl time.Duration, onReap func(userID string)) {
	idle, err := repo.GetIdleUsers(ctx, ttl)
	if err != nil {
		slog.Error("Failed to list idle users", "error", err)
		return
	}
	if len(idle) == 0 {
		return
	}

	for _, user := range idle {
		slog.Info("Reaping idle user", "user_id", user.UserID, "username", user.Username, "last_seen", user.LastSeenAt)
		if onReap != nil {
			onReap(user.UserID)
		}
	}

	deleted, err := repo.DeleteIdleUsers(ctx, ttl)
	if err != nil {
		slog.Error("Failed to delete idle users", "error", err)
		return
	}
	slog.Info("Reaped idle users", "count", deleted)
}
