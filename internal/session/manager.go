package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// Manager keeps the live sessions, one per user and browser tab.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Session // userID -> tabID -> session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]map[string]*Session),
	}
}

// Get returns the session for a user and tab, or nil.
func (m *Manager) Get(userID, tabID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tabs, ok := m.active[userID]; ok {
		return tabs[tabID]
	}
	return nil
}

// GetOrCreate returns the existing session for a user and tab, creating
// and seeding a fresh one on first contact.
func (m *Manager) GetOrCreate(userID, tabID string) *Session {
	if s := m.Get(userID, tabID); s != nil {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tabs, ok := m.active[userID]; ok {
		if s, ok := tabs[tabID]; ok {
			return s
		}
	} else {
		m.active[userID] = make(map[string]*Session)
	}

	s := New(userID, tabID)
	m.active[userID][tabID] = s
	slog.Info("Chat session created", "user_id", userID, "tab_id", tabID, "session_uuid", s.ID)
	return s
}

// Remove drops a single session.
func (m *Manager) Remove(userID, tabID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tabs, ok := m.active[userID]; ok {
		if _, exists := tabs[tabID]; exists {
			delete(tabs, tabID)
			if len(tabs) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat session removed", "user_id", userID, "tab_id", tabID)
		}
	}
}

// CloseUser drops every session owned by a user.
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tabs, ok := m.active[userID]
	if !ok {
		return
	}
	for tabID := range tabs {
		slog.Info("Chat session closed", "user_id", userID, "tab_id", tabID)
	}
	delete(m.active, userID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tabs := range m.active {
		n += len(tabs)
	}
	return n
}

// SweepIdle removes sessions with no interaction for at least ttl and
// returns how many were dropped.
func (m *Manager) SweepIdle(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-ttl)
	for userID, tabs := range m.active {
		for tabID, s := range tabs {
			if s.LastActive().Before(cutoff) {
				delete(tabs, tabID)
				removed++
				slog.Info("Idle chat session reaped", "user_id", userID, "tab_id", tabID, "session_uuid", s.ID)
			}
		}
		if len(tabs) == 0 {
			delete(m.active, userID)
		}
	}
	return removed
}

// StartSweeper runs a background goroutine that periodically reaps idle
// sessions until ctx is canceled.
func (m *Manager) StartSweeper(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", ttl)
		for {
			select {
			case <-ticker.C:
				if n := m.SweepIdle(ttl); n > 0 {
					slog.Info("Session sweep complete", "reaped", n)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
