package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vdlabs/vd-assistant/internal/chatlog"
	"github.com/vdlabs/vd-assistant/internal/config"
	"github.com/vdlabs/vd-assistant/internal/domain"
	"github.com/vdlabs/vd-assistant/internal/gateway"
	"github.com/vdlabs/vd-assistant/internal/identity"
	"github.com/vdlabs/vd-assistant/internal/ingest"
	"github.com/vdlabs/vd-assistant/internal/session"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	u := *user
	return &u, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *user
	f.users[user.UserID] = &u
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeRepo) GetIdleUsers(_ context.Context, _ time.Duration) ([]*domain.User, error) {
	return nil, nil
}

func (f *fakeRepo) DeleteIdleUsers(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

type fakeGateway struct {
	reply string
	err   error
}

func (f *fakeGateway) Generate(_ context.Context, _ []domain.Turn) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGateway) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8080",
		DBPath:         "ignored",
		SessionTTL:     time.Hour,
		GeminiAPIKey:   "test",
		DocCharBudget:  3000,
		MaxUploadBytes: 10 << 20,
		RateLimit:      config.RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute},
		ChatLog:        config.ChatLogConfig{Enabled: false},
	}
}

func newTestRouter(t *testing.T, gw gateway.Gateway) (http.Handler, *session.Manager) {
	t.Helper()

	chatLog, err := chatlog.New(chatlog.Config{Enabled: false})
	if err != nil {
		t.Fatalf("chatlog.New failed: %v", err)
	}

	repo := newFakeRepo()
	sessions := session.NewManager()
	h := NewHandler(sessions, gw, &ingest.Ingestor{}, chatLog, repo, testConfig())

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, true))
	h.RegisterRoutes(r)
	return r, sessions
}

// do issues a request, reusing the anonymous identity cookie when one
// is supplied, and returns the response plus any newly set cookie.
func do(t *testing.T, router http.Handler, method, path, contentType string, body io.Reader, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == identity.AnonCookieName {
			return w, c
		}
	}
	return w, cookie
}

func chatBody(message string) io.Reader {
	data, _ := json.Marshal(ChatRequest{Message: message})
	return bytes.NewReader(data)
}

func TestChatSuccessAppendsBothTurns(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})

	w, cookie := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody("Q1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "A1" {
		t.Errorf("reply = %q, want A1", resp.Reply)
	}

	w, _ = do(t, router, http.MethodGet, "/api/conversation", "", nil, cookie)
	var turns []domain.Turn
	if err := json.NewDecoder(w.Body).Decode(&turns); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 display turns, got %d", len(turns))
	}
	if turns[0].Kind != domain.TurnUserText || turns[1].Kind != domain.TurnAssistant {
		t.Errorf("unexpected turn kinds: %+v", turns)
	}
}

func TestChatGatewayFailureRetainsUserTurn(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{err: errors.New("quota exceeded")})

	w, cookie := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody("Q1"), nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	w, _ = do(t, router, http.MethodGet, "/api/conversation", "", nil, cookie)
	var turns []domain.Turn
	if err := json.NewDecoder(w.Body).Decode(&turns); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(turns) != 1 || turns[0].Kind != domain.TurnUserText {
		t.Fatalf("expected exactly the retained user turn, got %+v", turns)
	}
}

func TestChatBlockedReply(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{err: gateway.ErrBlocked})

	w, cookie := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody("Q1"), nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}

	w, _ = do(t, router, http.MethodGet, "/api/conversation", "", nil, cookie)
	var turns []domain.Turn
	if err := json.NewDecoder(w.Body).Decode(&turns); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("blocked reply must retain the user turn only, got %d turns", len(turns))
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})
	w, _ := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody(""), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", w.Code)
	}
}

func TestProfileCompletionFlow(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})

	// Completing an empty profile is blocked.
	w, cookie := do(t, router, http.MethodPost, "/api/profile/complete", "", nil, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for incomplete profile, got %d", w.Code)
	}

	update := `{"company_name":"Acme","industry":"Fintech","maturity":"New","jurisdiction":"Delaware","founded_date":"01/01/2024"}`
	w, cookie = do(t, router, http.MethodPut, "/api/profile", "application/json", strings.NewReader(update), cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("profile update failed: %d %s", w.Code, w.Body.String())
	}

	w, cookie = do(t, router, http.MethodPost, "/api/profile/complete", "", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("profile completion failed: %d %s", w.Code, w.Body.String())
	}
	var profile domain.OnboardingProfile
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if !profile.Completed {
		t.Error("expected completed profile")
	}

	// Further edits are rejected once completed.
	w, _ = do(t, router, http.MethodPut, "/api/profile", "application/json", strings.NewReader(update), cookie)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for post-completion update, got %d", w.Code)
	}
}

func TestResetClearsConversation(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})

	_, cookie := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody("Q1"), nil)
	w, cookie := do(t, router, http.MethodPost, "/api/conversation/reset", "", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("reset failed: %d", w.Code)
	}

	w, _ = do(t, router, http.MethodGet, "/api/conversation", "", nil, cookie)
	var turns []domain.Turn
	if err := json.NewDecoder(w.Body).Decode(&turns); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty display view after reset, got %d turns", len(turns))
	}
}

func TestCloseSessionDropsItFromRegistry(t *testing.T) {
	t.Parallel()

	router, sessions := newTestRouter(t, &fakeGateway{reply: "A1"})

	userID := "anon_fedcba9876543210fedcba9876543210"
	cookie := &http.Cookie{Name: identity.AnonCookieName, Value: userID}

	if w, _ := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody("Q1"), cookie); w.Code != http.StatusOK {
		t.Fatalf("chat failed: %d", w.Code)
	}
	if sessions.Get(userID, identity.DefaultSessionIDValue) == nil {
		t.Fatal("expected a live session after chat")
	}

	if w, _ := do(t, router, http.MethodDelete, "/api/conversation", "", nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("close failed: %d", w.Code)
	}
	if sessions.Get(userID, identity.DefaultSessionIDValue) != nil {
		t.Error("expected the session to be gone after close")
	}

	// A fresh session takes its place on the next request.
	w, _ := do(t, router, http.MethodGet, "/api/conversation", "", nil, cookie)
	var turns []domain.Turn
	if err := json.NewDecoder(w.Body).Decode(&turns); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected an empty fresh conversation, got %d turns", len(turns))
	}
}

func TestExportPlainText(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})

	_, cookie := do(t, router, http.MethodPost, "/api/chat", "application/json", chatBody("Q1"), nil)
	w, _ := do(t, router, http.MethodGet, "/api/export?format=txt", "", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("export failed: %d", w.Code)
	}
	if got := w.Body.String(); got != "User: Q1\n\nVD: A1" {
		t.Errorf("export = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})
	w, _ := do(t, router, http.MethodGet, "/api/export?format=docx", "", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", w.Code)
	}
}

func uploadBody(t *testing.T, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadRejectsNonPDFExtension(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})
	body, ct := uploadBody(t, "notes.txt", []byte("hello"))
	w, _ := do(t, router, http.MethodPost, "/api/documents", ct, body, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-pdf extension, got %d", w.Code)
	}
}

func TestUploadRejectsMalformedPDF(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})
	body, ct := uploadBody(t, "broken.pdf", []byte("not a pdf at all"))
	w, cookie := do(t, router, http.MethodPost, "/api/documents", ct, body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed pdf, got %d", w.Code)
	}

	// A failed extraction must leave no trace in the session.
	w, _ = do(t, router, http.MethodGet, "/api/documents", "", nil, cookie)
	var docs []DocumentResponse
	if err := json.NewDecoder(w.Body).Decode(&docs); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents after failed extraction, got %+v", docs)
	}
}

func TestUploadIsIdempotentByName(t *testing.T) {
	t.Parallel()

	router, sessions := newTestRouter(t, &fakeGateway{reply: "A1"})

	// A fixed valid anonymous ID lets the test reach the same session
	// the handler will resolve.
	userID := "anon_0123456789abcdef0123456789abcdef"
	cookie := &http.Cookie{Name: identity.AnonCookieName, Value: userID}

	sess := sessions.GetOrCreate(userID, identity.DefaultSessionIDValue)
	doc := &domain.UploadedDocument{Name: "dup.pdf", ExtractedText: "original text", PageCount: 1}
	turn := domain.Turn{Kind: domain.TurnUserDocument, Content: "original text", DocumentName: "dup.pdf"}
	if !sess.AttachDocument(doc, turn) {
		t.Fatal("initial attach failed")
	}

	// Re-uploading the same name short-circuits before extraction, so
	// even unparseable bytes are accepted as a no-op.
	body, ct := uploadBody(t, "dup.pdf", []byte("garbage, never parsed"))
	w, _ := do(t, router, http.MethodPost, "/api/documents", ct, body, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate name, got %d: %s", w.Code, w.Body.String())
	}

	if got := sess.Document("dup.pdf"); got == nil || got.ExtractedText != "original text" {
		t.Errorf("duplicate upload must not replace the stored document, got %+v", got)
	}
	if n := len(sess.TurnsForDisplay()); n != 1 {
		t.Errorf("expected the single original document turn, got %d", n)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, &fakeGateway{reply: "A1"})
	w, _ := do(t, router, http.MethodGet, "/api/documents/missing.pdf", "", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
