package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vdlabs/vd-assistant/internal/export"
	"github.com/vdlabs/vd-assistant/internal/identity"
)

// HandleGetConversation handles GET /api/conversation. The instruction
// turn is never part of the rendered view.
func (h *Handler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	JSON(w, http.StatusOK, sess.TurnsForDisplay())
}

// HandleReset handles POST /api/conversation/reset: the conversation
// shrinks back to its instruction turn and uploaded documents are
// cleared with it.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	sess.Reset()
	slog.Info("Conversation reset", "user_id", userID, "session_uuid", sess.ID)
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleCloseSession handles DELETE /api/conversation: the session is
// dropped from the registry entirely, instruction turn included. The
// next request under the same identity starts from a fresh session.
func (h *Handler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.sessions.Remove(userID, sessionID)
	slog.Info("Chat session closed", "user_id", userID, "session_id", sessionID)
	JSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// HandleExport handles GET /api/export?format=txt|pdf and streams the
// transcript as a downloadable artifact. Nothing is persisted
// server-side.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	turns := sess.TurnsForGateway()

	switch r.URL.Query().Get("format") {
	case "", "txt":
		data := export.PlainText(turns)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="vd-chat.txt"`)
		if _, err := w.Write(data); err != nil {
			slog.Warn("failed to write txt export", "user_id", userID, "error", err)
		}
	case "pdf":
		data, err := export.PDF(turns)
		if err != nil {
			slog.Error("PDF export failed", "user_id", userID, "session_uuid", sess.ID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to render the PDF export")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="vd-chat.pdf"`)
		if _, err := w.Write(data); err != nil {
			slog.Warn("failed to write pdf export", "user_id", userID, "error", err)
		}
	default:
		Error(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", r.URL.Query().Get("format")))
	}
}
