package domain

import "time"

// UploadedDocument holds the full extracted text of an uploaded PDF,
// keyed by name within a session. The stored text is untruncated; the
// conversation turn derived from it may carry only a bounded prefix.
// Documents are immutable once created.
type UploadedDocument struct {
	Name          string    `json:"name"`
	ExtractedText string    `json:"extracted_text"`
	PageCount     int       `json:"page_count"`
	UploadedAt    time.Time `json:"uploaded_at"`
}
