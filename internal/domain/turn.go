// Package domain contains core domain types for the VD assistant.
package domain

// TurnKind tags a conversation turn with its provenance.
type TurnKind string

const (
	// TurnInstruction is the synthetic first turn carrying persona and policy.
	// It is always sent to the gateway and never rendered to the user.
	TurnInstruction TurnKind = "instruction"
	// TurnUserText is a question typed by the user.
	TurnUserText TurnKind = "user_text"
	// TurnUserDocument is a synthetic user turn carrying extracted document text.
	TurnUserDocument TurnKind = "user_document"
	// TurnAssistant is a reply generated by the model.
	TurnAssistant TurnKind = "assistant"
)

// Turn is one entry in the conversation log. Turns are immutable once
// appended to a conversation.
type Turn struct {
	Kind    TurnKind `json:"kind"`
	Content string   `json:"content"`
	// DocumentName is set only for user_document turns.
	DocumentName string `json:"document_name,omitempty"`
}

// FromUser reports whether the turn is sent with the user role,
// including instruction and document turns, which the gateway sees
// as user input.
func (t Turn) FromUser() bool {
	return t.Kind != TurnAssistant
}

// SpeakerLabel returns the label used when rendering the turn in a
// transcript. Instruction turns are never rendered, so they have no label.
func (t Turn) SpeakerLabel() string {
	switch t.Kind {
	case TurnAssistant:
		return "VD"
	case TurnUserText, TurnUserDocument:
		return "User"
	default:
		return ""
	}
}
