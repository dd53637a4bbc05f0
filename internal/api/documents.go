package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vdlabs/vd-assistant/internal/identity"
	"github.com/vdlabs/vd-assistant/internal/ingest"
)

// DocumentResponse describes one ingested document.
type DocumentResponse struct {
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
	Chars     int    `json:"chars"`
}

// HandleUploadDocument handles POST /api/documents (multipart form,
// field "file"). Uploading a name that already exists in the session is
// a no-op, checked before any extraction work.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "a PDF file upload is required")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close uploaded file", "error", closeErr)
		}
	}()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		Error(w, http.StatusBadRequest, "only PDF uploads are supported")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	if sess.HasDocument(name) {
		// Idempotent by name: the earlier extraction stands.
		JSON(w, http.StatusOK, map[string]string{"name": name, "status": "already uploaded"})
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	doc, turn, err := h.ingestor.Ingest(name, raw)
	if err != nil {
		var extErr *ingest.ExtractionError
		if errors.As(err, &extErr) {
			slog.Warn("Document extraction failed", "user_id", userID, "name", name, "error", err)
			Error(w, http.StatusBadRequest, "could not extract any text from this PDF")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to ingest document")
		return
	}

	if !sess.AttachDocument(doc, turn) {
		JSON(w, http.StatusOK, map[string]string{"name": name, "status": "already uploaded"})
		return
	}

	slog.Info("Document ingested",
		"user_id", userID,
		"session_uuid", sess.ID,
		"name", name,
		"pages", doc.PageCount,
		"chars", len(doc.ExtractedText),
	)
	JSON(w, http.StatusCreated, DocumentResponse{
		Name:      doc.Name,
		PageCount: doc.PageCount,
		Chars:     len(doc.ExtractedText),
	})
}

// HandleListDocuments handles GET /api/documents.
func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess := h.sessions.GetOrCreate(userID, sessionID)
	names := sess.DocumentNames()
	docs := make([]DocumentResponse, 0, len(names))
	for _, name := range names {
		if doc := sess.Document(name); doc != nil {
			docs = append(docs, DocumentResponse{
				Name:      doc.Name,
				PageCount: doc.PageCount,
				Chars:     len(doc.ExtractedText),
			})
		}
	}
	JSON(w, http.StatusOK, docs)
}

// HandleGetDocument handles GET /api/documents/{name}. It returns the
// full untruncated text, which may be longer than what the gateway saw.
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	name := chi.URLParam(r, "name")
	sess := h.sessions.GetOrCreate(userID, sessionID)
	doc := sess.Document(name)
	if doc == nil {
		Error(w, http.StatusNotFound, "document not found")
		return
	}

	JSON(w, http.StatusOK, doc)
}
