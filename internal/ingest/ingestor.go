// Package ingest extracts text from uploaded PDFs and turns it into
// synthetic conversation turns.
package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/vdlabs/vd-assistant/internal/domain"
)

// DefaultCharBudget bounds how much extracted text is carried into the
// conversation turn. The full text is still stored for preview.
const DefaultCharBudget = 3000

// ExtractionError reports a malformed upload or one yielding no text
// on any page.
type ExtractionError struct {
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Ingestor converts PDF bytes into an UploadedDocument plus the
// synthetic user turn injected into the conversation.
type Ingestor struct {
	// CharBudget is the maximum number of characters of extracted text
	// included in the conversation turn. Zero means DefaultCharBudget.
	CharBudget int
}

// Ingest extracts the document's text. Pages with no extractable text
// are silently skipped; extraction fails only when the file is not a
// well-formed PDF or no page yields any text. The returned turn carries
// at most CharBudget characters while the document record keeps the
// full text.
func (ing *Ingestor) Ingest(name string, raw []byte) (*domain.UploadedDocument, domain.Turn, error) {
	text, pages, err := extractText(raw)
	if err != nil {
		return nil, domain.Turn{}, &ExtractionError{Name: name, Err: err}
	}
	if text == "" {
		return nil, domain.Turn{}, &ExtractionError{Name: name, Err: fmt.Errorf("no extractable text on any page")}
	}

	doc := &domain.UploadedDocument{
		Name:          name,
		ExtractedText: text,
		PageCount:     pages,
		UploadedAt:    time.Now(),
	}

	budget := ing.CharBudget
	if budget <= 0 {
		budget = DefaultCharBudget
	}
	turn := domain.Turn{
		Kind:         domain.TurnUserDocument,
		Content:      fmt.Sprintf("Extracted from uploaded PDF '%s':\n%s", name, truncate(text, budget)),
		DocumentName: name,
	}
	return doc, turn, nil
}

// extractText concatenates the text of every page, blank-line
// separated. The pdf library panics on some malformed files, so the
// whole pass runs under a recover.
func extractText(raw []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", 0, fmt.Errorf("parse pdf: %w", err)
	}

	pages = reader.NumPage()
	var parts []string
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable page, same policy as an empty one: skip.
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		parts = append(parts, pageText)
	}

	return strings.Join(parts, "\n\n"), pages, nil
}

// truncate cuts s to at most limit bytes, backing off to the nearest
// rune boundary so the result is always valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
