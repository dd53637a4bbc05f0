// Package chatws provides the WebSocket transport for the chat cycle.
// It runs the same ask/reply exchange as the HTTP endpoint over a
// persistent connection.
package chatws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vdlabs/vd-assistant/internal/chatlog"
	"github.com/vdlabs/vd-assistant/internal/gateway"
	"github.com/vdlabs/vd-assistant/internal/identity"
	"github.com/vdlabs/vd-assistant/internal/session"
)

// askTimeout bounds a single model exchange on the socket.
const askTimeout = 2 * time.Minute

// Handler handles WebSocket-based chat sessions.
type Handler struct {
	sessions      *session.Manager
	gw            gateway.Gateway
	chatLog       *chatlog.Logger
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new WebSocket chat handler.
func NewHandler(sessions *session.Manager, gw gateway.Gateway, chatLog *chatlog.Logger, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		sessions:      sessions,
		gw:            gw,
		chatLog:       chatLog,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage represents the WebSocket message structure in both
// directions. Type is one of "ask", "reply", "error", "ping", "pong".
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "no identity", http.StatusUnauthorized)
		return
	}
	slog.Info("WebSocket chat connection", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.sessions.GetOrCreate(userID, sessionID)
	h.readLoop(ctx, ws, sess, userID)
	slog.Info("WebSocket chat ended", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session, userID string) {
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		switch msg.Type {
		case "ask":
			h.handleAsk(ctx, ws, sess, userID, msg.Content)
		case "ping":
			if err := wsjson.Write(ctx, ws, wsMessage{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
				return
			}
		default:
			if err := wsjson.Write(ctx, ws, wsMessage{Type: "error", Content: "unknown message type"}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleAsk(ctx context.Context, ws *websocket.Conn, sess *session.Session, userID, question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		if err := wsjson.Write(ctx, ws, wsMessage{Type: "error", Content: "message is required"}); err != nil {
			slog.Debug("Failed to send error", "error", err)
		}
		return
	}

	askCtx, cancel := context.WithTimeout(ctx, askTimeout)
	reply, err := sess.Ask(askCtx, h.gw, question)
	cancel()
	if err != nil {
		content := "the assistant is unavailable; your question was kept"
		if errors.Is(err, gateway.ErrBlocked) {
			content = "the assistant declined to answer this question"
		}
		slog.Warn("Chat exchange failed", "error", err, "user_id", userID)
		if werr := wsjson.Write(ctx, ws, wsMessage{Type: "error", Content: content}); werr != nil {
			slog.Debug("Failed to send error", "error", werr)
		}
		return
	}

	h.chatLog.LogExchange(sess.ID.String(), question, reply)
	if err := wsjson.Write(ctx, ws, wsMessage{Type: "reply", Content: reply}); err != nil {
		slog.Debug("Failed to send reply", "error", err, "user_id", userID)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
