// Package export renders a conversation transcript as plain text or a
// paginated PDF document.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/vdlabs/vd-assistant/internal/domain"
)

// PlainText renders every non-instruction turn as "<Speaker>: <content>"
// joined by blank lines, in conversation order. The output is full
// fidelity UTF-8.
func PlainText(turns []domain.Turn) []byte {
	var lines []string
	for _, t := range turns {
		if t.Kind == domain.TurnInstruction {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", t.SpeakerLabel(), t.Content))
	}
	return []byte(strings.Join(lines, "\n\n"))
}

// PDF flows the same transcript lines into A4 pages with automatic
// page breaks. Runes outside the core font encoding are transliterated
// to their closest CP-1252 form; no text is truncated.
func PDF(turns []domain.Turn) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetAutoPageBreak(true, 15)
	doc.SetFont("Arial", "", 11)
	doc.AddPage()

	for i, t := range turns {
		if t.Kind == domain.TurnInstruction {
			continue
		}
		if i > 0 && doc.GetY() > 20 {
			doc.Ln(4)
		}
		doc.MultiCell(0, 6, tr(fmt.Sprintf("%s: %s", t.SpeakerLabel(), t.Content)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
