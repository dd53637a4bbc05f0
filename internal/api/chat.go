package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vdlabs/vd-assistant/internal/gateway"
	"github.com/vdlabs/vd-assistant/internal/identity"
)

// defaultMaxRequestBodySize is the maximum allowed chat request body (1MB).
const defaultMaxRequestBodySize = 1 << 20

// ChatRequest is a user question submitted to the assistant.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the assistant reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// HandleChat handles POST /api/chat. The user's turn is appended before
// the gateway call, so a failed call leaves the question in the
// conversation and the user can resubmit or rephrase.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	slog.Info("Chat request",
		"user_id", userID,
		"session_id", sessionID,
		"session_uuid", sess.ID,
		"message_length", len(req.Message),
	)

	reply, err := sess.Ask(r.Context(), h.gw, req.Message)
	if err != nil {
		if errors.Is(err, gateway.ErrBlocked) {
			slog.Warn("Reply blocked", "user_id", userID, "session_uuid", sess.ID)
			Error(w, http.StatusUnprocessableEntity, "the reply was blocked or empty; please rephrase your question")
			return
		}
		slog.Error("Gateway call failed", "user_id", userID, "session_uuid", sess.ID, "error", err)
		Error(w, http.StatusBadGateway, "the assistant is unavailable right now; your question was kept, try again")
		return
	}

	h.chatLog.LogExchange(sess.ID.String(), req.Message, reply)

	JSON(w, http.StatusOK, ChatResponse{Reply: reply})
}
