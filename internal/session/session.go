// Package session holds per-session conversation state: the onboarding
// profile, the ordered turn log, and uploaded documents. Nothing in
// this package is persisted; a session lives exactly as long as its
// entry in the Manager.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vdlabs/vd-assistant/internal/domain"
	"github.com/vdlabs/vd-assistant/internal/prompt"
)

// ErrProfileLocked is returned when a profile update arrives after
// onboarding has been completed. The completed state has no transition
// back to collecting.
var ErrProfileLocked = errors.New("onboarding already completed")

// Generator produces an assistant reply from the full ordered turn
// sequence. Implemented by the gateway client.
type Generator interface {
	Generate(ctx context.Context, turns []domain.Turn) (string, error)
}

// Session owns one conversation. All methods are safe for concurrent
// use; Ask holds the session lock for the whole request/reply cycle so
// a session processes at most one interaction at a time.
type Session struct {
	ID        uuid.UUID
	UserID    string
	TabID     string
	CreatedAt time.Time

	mu         sync.Mutex
	profile    domain.OnboardingProfile
	turns      []domain.Turn
	docs       map[string]*domain.UploadedDocument
	docOrder   []string
	lastActive time.Time
}

// New creates a session seeded with the instruction turn composed from
// an empty profile. Index 0 of the turn log is always the instruction.
func New(userID, tabID string) *Session {
	s := &Session{
		ID:         uuid.New(),
		UserID:     userID,
		TabID:      tabID,
		CreatedAt:  time.Now(),
		docs:       make(map[string]*domain.UploadedDocument),
		lastActive: time.Now(),
	}
	s.turns = []domain.Turn{prompt.InstructionTurn(&s.profile)}
	return s
}

// Profile returns a copy of the onboarding profile.
func (s *Session) Profile() domain.OnboardingProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// UpdateProfile applies a partial onboarding update. Updates are
// rejected once the profile is completed.
func (s *Session) UpdateProfile(update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile.Completed {
		return ErrProfileLocked
	}
	update.Apply(&s.profile)
	s.lastActive = time.Now()
	return nil
}

// CompleteProfile transitions onboarding to completed and replaces the
// instruction turn with one recomposed from the finished profile. The
// instruction is replaced in place, never appended a second time.
func (s *Session) CompleteProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.profile.Complete(); err != nil {
		return err
	}
	s.turns[0] = prompt.InstructionTurn(&s.profile)
	s.lastActive = time.Now()
	return nil
}

// Ask appends the user's message, replays the full turn log to the
// generator, and appends the reply. On any generator error the user
// turn stays in the log (input is never silently dropped) and no
// assistant turn is appended.
func (s *Session) Ask(ctx context.Context, gen Generator, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	s.turns = append(s.turns, domain.Turn{Kind: domain.TurnUserText, Content: message})

	reply, err := gen.Generate(ctx, s.copyTurnsLocked())
	if err != nil {
		return "", err
	}

	s.turns = append(s.turns, domain.Turn{Kind: domain.TurnAssistant, Content: reply})
	return reply, nil
}

// HasDocument reports whether a document with this name was already
// ingested. Callers check this before extracting so a duplicate upload
// costs nothing.
func (s *Session) HasDocument(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[name]
	return ok
}

// AttachDocument stores the full extracted text and appends the
// synthetic document turn. Returns false without any state change if a
// document with the same name already exists (idempotent by name, not
// by content).
func (s *Session) AttachDocument(doc *domain.UploadedDocument, turn domain.Turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.Name]; ok {
		return false
	}
	s.docs[doc.Name] = doc
	s.docOrder = append(s.docOrder, doc.Name)
	s.turns = append(s.turns, turn)
	s.lastActive = time.Now()
	return true
}

// Document returns the full untruncated text record for name, or nil.
func (s *Session) Document(name string) *domain.UploadedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[name]
}

// DocumentNames returns document names in upload order.
func (s *Session) DocumentNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.docOrder))
	copy(out, s.docOrder)
	return out
}

// Reset truncates the conversation back to the single instruction turn
// and clears all uploaded documents. Document turns are conversational
// state, so the two resets are coupled.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = s.turns[:1]
	s.docs = make(map[string]*domain.UploadedDocument)
	s.docOrder = nil
	s.lastActive = time.Now()
}

// TurnsForDisplay returns every turn except the instruction, re-derived
// from the log on each call. The instruction turn is never shown.
func (s *Session) TurnsForDisplay() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.turns)-1)
	copy(out, s.turns[1:])
	return out
}

// TurnsForGateway returns the full turn sequence including the
// instruction. The log is replayed unwindowed on every call; bounding
// or summarizing history would go here if it were ever introduced.
func (s *Session) TurnsForGateway() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTurnsLocked()
}

// Len returns the number of turns including the instruction.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// LastActive returns the time of the most recent interaction.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) copyTurnsLocked() []domain.Turn {
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}
