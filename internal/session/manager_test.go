package session

import (
	"testing"
	"time"
)

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	t.Parallel()

	m := NewManager()
	a := m.GetOrCreate("user-1", "tab-1")
	b := m.GetOrCreate("user-1", "tab-1")
	if a != b {
		t.Error("expected the same session for the same user and tab")
	}
	if m.GetOrCreate("user-1", "tab-2") == a {
		t.Error("expected a distinct session per tab")
	}
	if m.Count() != 2 {
		t.Errorf("expected 2 live sessions, got %d", m.Count())
	}
}

func TestRemoveAndCloseUser(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.GetOrCreate("user-1", "tab-1")
	m.GetOrCreate("user-1", "tab-2")
	m.GetOrCreate("user-2", "tab-1")

	m.Remove("user-1", "tab-1")
	if m.Get("user-1", "tab-1") != nil {
		t.Error("expected removed session to be gone")
	}

	m.CloseUser("user-1")
	if m.Get("user-1", "tab-2") != nil {
		t.Error("expected all user sessions to be closed")
	}
	if m.Get("user-2", "tab-1") == nil {
		t.Error("other users must be unaffected")
	}
}

func TestSweepIdleReapsOnlyStaleSessions(t *testing.T) {
	t.Parallel()

	m := NewManager()
	stale := m.GetOrCreate("user-1", "tab-1")
	fresh := m.GetOrCreate("user-2", "tab-1")

	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()
	fresh.Touch()

	if n := m.SweepIdle(time.Hour); n != 1 {
		t.Fatalf("expected 1 reaped session, got %d", n)
	}
	if m.Get("user-1", "tab-1") != nil {
		t.Error("stale session should have been reaped")
	}
	if m.Get("user-2", "tab-1") == nil {
		t.Error("fresh session should survive the sweep")
	}
}
