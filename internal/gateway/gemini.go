package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vdlabs/vd-assistant/internal/domain"
)

// DefaultModel is the fixed model used for all conversations. Model
// selection is not part of the request surface.
const DefaultModel = "gemini-2.0-flash"

// GeminiGateway implements Gateway over the Gemini SDK.
type GeminiGateway struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a Gemini-backed gateway.
func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiGateway{client: client, modelName: modelName}, nil
}

// Generate replays the full turn sequence as chat history and returns
// the model's reply. Errors from the transport (network, auth, quota)
// pass through wrapped; a blocked or empty reply maps to ErrBlocked.
func (g *GeminiGateway) Generate(ctx context.Context, turns []domain.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("empty turn sequence")
	}

	model := g.client.GenerativeModel(g.modelName)
	cs := model.StartChat()

	last := turns[len(turns)-1]
	for _, t := range turns[:len(turns)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  roleFor(t),
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", ErrBlocked
		}
		return "", fmt.Errorf("generate reply: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", ErrBlocked
	}
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiGateway) Close() error {
	return g.client.Close()
}

func roleFor(t domain.Turn) string {
	if t.FromUser() {
		return "user"
	}
	return "model"
}

// extractText concatenates the text parts of the first candidate.
// Candidates without content (safety stops) yield an empty string.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
