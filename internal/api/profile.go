package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vdlabs/vd-assistant/internal/domain"
	"github.com/vdlabs/vd-assistant/internal/identity"
	"github.com/vdlabs/vd-assistant/internal/session"
)

// HandleGetProfile handles GET /api/profile.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	JSON(w, http.StatusOK, sess.Profile())
}

// HandleUpdateProfile handles PUT /api/profile: a partial update of the
// onboarding fields, accepted only while onboarding is still collecting.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	if err := sess.UpdateProfile(update); err != nil {
		if errors.Is(err, session.ErrProfileLocked) {
			Error(w, http.StatusConflict, "onboarding is already completed")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	JSON(w, http.StatusOK, sess.Profile())
}

// HandleCompleteProfile handles POST /api/profile/complete. Completion
// is explicit: it fails while any field is empty, and on success the
// instruction turn is recomposed from the finished profile.
func (h *Handler) HandleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	if err := sess.CompleteProfile(); err != nil {
		if errors.Is(err, domain.ErrProfileIncomplete) {
			Error(w, http.StatusConflict, "all onboarding fields must be filled before completing")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to complete onboarding")
		return
	}

	slog.Info("Onboarding completed", "user_id", userID, "session_uuid", sess.ID)
	JSON(w, http.StatusOK, sess.Profile())
}
