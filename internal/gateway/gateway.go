// Package gateway talks to the hosted model API. The rest of the
// system treats it as an opaque request/response collaborator: the full
// turn sequence goes in, a reply or an error comes out.
package gateway

import (
	"context"
	"errors"

	"github.com/vdlabs/vd-assistant/internal/domain"
)

// ErrBlocked indicates the model call succeeded but produced no usable
// payload (content-policy rejection or an empty candidate). The caller
// keeps the user's turn and asks them to rephrase.
var ErrBlocked = errors.New("reply blocked or empty")

// Gateway generates an assistant reply from the ordered turn sequence.
type Gateway interface {
	Generate(ctx context.Context, turns []domain.Turn) (string, error)
	Close() error
}
