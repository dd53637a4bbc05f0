// Package api provides HTTP handlers for the VD assistant API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vdlabs/vd-assistant/internal/chatlog"
	"github.com/vdlabs/vd-assistant/internal/config"
	"github.com/vdlabs/vd-assistant/internal/gateway"
	"github.com/vdlabs/vd-assistant/internal/ingest"
	"github.com/vdlabs/vd-assistant/internal/session"
	"github.com/vdlabs/vd-assistant/internal/store"
)

// Handler handles VD API requests.
type Handler struct {
	sessions    *session.Manager
	gw          gateway.Gateway
	ingestor    *ingest.Ingestor
	chatLog     *chatlog.Logger
	repo        store.Repository
	rateLimiter *RateLimiter
	cfg         *config.Config
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(sessions *session.Manager, gw gateway.Gateway, ingestor *ingest.Ingestor, chatLog *chatlog.Logger, repo store.Repository, cfg *config.Config) *Handler {
	return &Handler{
		sessions:    sessions,
		gw:          gw,
		ingestor:    ingestor,
		chatLog:     chatLog,
		repo:        repo,
		rateLimiter: NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration),
		cfg:         cfg,
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", h.HandleGetProfile)
		r.Put("/profile", h.HandleUpdateProfile)
		r.Post("/profile/complete", h.HandleCompleteProfile)

		r.Post("/chat", h.HandleChat)
		r.Get("/conversation", h.HandleGetConversation)
		r.Post("/conversation/reset", h.HandleReset)
		r.Delete("/conversation", h.HandleCloseSession)

		r.Post("/documents", h.HandleUploadDocument)
		r.Get("/documents", h.HandleListDocuments)
		r.Get("/documents/{name}", h.HandleGetDocument)

		r.Get("/export", h.HandleExport)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
