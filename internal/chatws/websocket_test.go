package chatws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vdlabs/vd-assistant/internal/chatlog"
	"github.com/vdlabs/vd-assistant/internal/domain"
	"github.com/vdlabs/vd-assistant/internal/identity"
	"github.com/vdlabs/vd-assistant/internal/session"
)

type fakeGateway struct {
	reply string
	err   error
}

func (f *fakeGateway) Generate(_ context.Context, _ []domain.Turn) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGateway) Close() error { return nil }

// withIdentity injects a fixed user into the request context, standing
// in for the cookie middleware.
func withIdentity(userID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := identity.WithUserID(r.Context(), userID)
		ctx = identity.WithSessionID(ctx, "default")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func dialTestServer(t *testing.T, gw *fakeGateway, sessions *session.Manager) *websocket.Conn {
	t.Helper()

	chatLog, err := chatlog.New(chatlog.Config{Enabled: false})
	if err != nil {
		t.Fatalf("chatlog.New failed: %v", err)
	}
	h := NewHandler(sessions, gw, chatLog, "*", true)

	srv := httptest.NewServer(withIdentity("anon_test", h))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, out wsMessage) wsMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, ws, out); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var in wsMessage
	if err := wsjson.Read(ctx, ws, &in); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return in
}

func TestAskReturnsReplyAndAppendsTurns(t *testing.T) {
	t.Parallel()

	sessions := session.NewManager()
	ws := dialTestServer(t, &fakeGateway{reply: "A1"}, sessions)

	got := roundTrip(t, ws, wsMessage{Type: "ask", Content: "Q1"})
	if got.Type != "reply" || got.Content != "A1" {
		t.Fatalf("got %+v, want reply A1", got)
	}

	sess := sessions.GetOrCreate("anon_test", "default")
	if n := len(sess.TurnsForDisplay()); n != 2 {
		t.Errorf("expected 2 display turns, got %d", n)
	}
}

func TestAskFailureSendsErrorAndKeepsQuestion(t *testing.T) {
	t.Parallel()

	sessions := session.NewManager()
	ws := dialTestServer(t, &fakeGateway{err: errors.New("down")}, sessions)

	got := roundTrip(t, ws, wsMessage{Type: "ask", Content: "Q1"})
	if got.Type != "error" {
		t.Fatalf("got %+v, want error message", got)
	}

	sess := sessions.GetOrCreate("anon_test", "default")
	turns := sess.TurnsForDisplay()
	if len(turns) != 1 || turns[0].Kind != domain.TurnUserText {
		t.Errorf("expected the retained user turn only, got %+v", turns)
	}
}

func TestPingPong(t *testing.T) {
	t.Parallel()

	ws := dialTestServer(t, &fakeGateway{reply: "A1"}, session.NewManager())
	got := roundTrip(t, ws, wsMessage{Type: "ping"})
	if got.Type != "pong" {
		t.Errorf("got %+v, want pong", got)
	}
}
