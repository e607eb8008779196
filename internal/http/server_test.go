package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthassist/internal/auth"
	"healthassist/internal/core"
	"healthassist/internal/llm"
	"healthassist/internal/store"
	"healthassist/pkg"
)

type cannedModel struct {
	content string
	err     error
}

func (m *cannedModel) Complete(context.Context, llm.Request) (*llm.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: m.content}, nil
}

func (m *cannedModel) Stream(_ context.Context, _ llm.Request, onDelta func(string)) (*llm.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, word := range strings.SplitAfter(m.content, " ") {
		onDelta(word)
	}
	return &llm.Response{Content: m.content}, nil
}

type noTools struct{}

func (noTools) Tools() []llm.Tool { return nil }

func (noTools) Dispatch(context.Context, string, string) (string, error) {
	return "", errors.New("no tools")
}

type memHistory struct {
	mu      sync.Mutex
	threads map[string][]pkg.Message
}

func (h *memHistory) Append(_ context.Context, thread string, msgs ...pkg.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.threads == nil {
		h.threads = map[string][]pkg.Message{}
	}
	h.threads[thread] = append(h.threads[thread], msgs...)
	return nil
}

func (h *memHistory) Messages(_ context.Context, thread string, _ int) ([]pkg.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.threads[thread], nil
}

func (h *memHistory) Delete(_ context.Context, thread string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.threads, thread)
	return nil
}

type fixture struct {
	srv     *Server
	handler http.Handler
	model   *cannedModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := zerolog.Nop()
	model := &cannedModel{content: `{"response":"Drink water and rest.","fact":"Has asthma","risk_level":"low","urgency":"monitor"}`}

	facts := store.NewFactStore(dir)
	users := store.NewUserStore(dir)
	tracking := store.NewTrackingStore(dir)
	risk := store.NewRiskStore(dir)
	threads := store.NewThreadStore(dir)
	history := &memHistory{}

	chat := &core.ChatService{
		Orchestrator: core.NewOrchestrator(model, noTools{}, 2, log),
		Assembler:    &core.Assembler{Facts: facts, Users: users, Tracking: tracking},
		History:      history,
		Facts:        facts,
		Risk:         risk,
		Threads:      threads,
		HistoryLimit: 10,
		Log:          log,
	}
	srv := &Server{
		Chat:           chat,
		Insight:        core.NewInsight(nil, nil, log),
		Auth:           auth.NewService(users, store.NewSessionStore(dir), "test-secret", time.Hour),
		History:        history,
		Facts:          facts,
		Users:          users,
		Tracking:       tracking,
		Risk:           risk,
		Alerts:         store.NewAlertStore(dir),
		Threads:        threads,
		Model:          "gpt-4o-mini",
		MaxUploadBytes: 1 << 20,
		Log:            log,
	}
	return &fixture{srv: srv, handler: srv.Handler(), model: model}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *fixture) login(t *testing.T, username string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/auth/register", credentials{Username: username, Password: "secret1", Email: username + "@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = f.do(t, http.MethodPost, "/auth/login", credentials{Username: username, Password: "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "model": "gpt-4o-mini"}, decode(t, w))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", decode(t, w)["error"])

	w = f.do(t, http.MethodGet, "/chat", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "method not allowed", decode(t, w)["error"])
}

func TestChat_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/chat", map[string]string{"message": "   "}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "message is required", decode(t, w)["error"])

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_AnonymousUsesThreadAsUser(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/chat", map[string]string{"message": " I have a cough "}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Drink water and rest.", body["response"])
	assert.Equal(t, "low", body["risk_level"])
	assert.Equal(t, "monitor", body["urgency"])
	assert.Equal(t, false, body["emergency_alert_sent"])
	thread := body["thread_id"].(string)
	require.NotEmpty(t, thread)

	assert.Equal(t, "Has asthma", f.srv.Facts.Text(thread))
	assert.Len(t, f.srv.Risk.History(thread, 0), 1)

	w = f.do(t, http.MethodGet, "/chat/history?thread_id="+thread, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]interface{}{"role": "user", "content": "I have a cough"}, msgs[0])

	w = f.do(t, http.MethodGet, "/threads?user_id="+thread, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["threads"], 1)
}

func TestChatHistory_Delete(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/chat", map[string]string{"message": "I have a cough"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	thread := decode(t, w)["thread_id"].(string)

	w = f.do(t, http.MethodDelete, "/chat/history", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/chat/history?thread_id="+thread, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["existed"])

	w = f.do(t, http.MethodGet, "/chat/history?thread_id="+thread, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["messages"])
	assert.Empty(t, f.srv.Threads.Recent(thread, 10))

	w = f.do(t, http.MethodDelete, "/chat/history?thread_id="+thread, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["existed"])
}

func TestChat_NullableFields(t *testing.T) {
	f := newFixture(t)
	f.model.content = `{"response":"Hello!"}`

	w := f.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi", "thread_id": "t1", "user_id": "ada"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["risk_level"])
	assert.Nil(t, body["urgency"])
	assert.Equal(t, "t1", body["thread_id"])
	assert.Empty(t, f.srv.Risk.History("ada", 0))
}

func TestChat_ModelFailure(t *testing.T) {
	f := newFixture(t)
	f.model.err = errors.New("upstream unavailable")

	w := f.do(t, http.MethodPost, "/chat", map[string]string{"message": "hi"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "upstream unavailable", decode(t, w)["error"])
}

func TestChat_SessionSuppliesUser(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")

	w := f.do(t, http.MethodPost, "/chat", map[string]string{"message": "hello"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Has asthma", f.srv.Facts.Text("ada"))

	w = f.do(t, http.MethodGet, "/memory", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Has asthma", decode(t, w)["facts"])

	w = f.do(t, http.MethodGet, "/memory/users", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["users"], 1)

	w = f.do(t, http.MethodDelete, "/memory?user_id=ada", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", f.srv.Facts.Text("ada"))
}

func TestChatStream(t *testing.T) {
	f := newFixture(t)
	f.model.content = "Rest and hydrate."

	w := f.do(t, http.MethodPost, "/chat/stream", map[string]string{"message": "tired", "thread_id": "t9"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `data: {"type":"token","content":"Rest "}`)
	assert.Contains(t, body, `data: {"type":"token","content":"hydrate."}`)
	assert.True(t, strings.HasSuffix(body, "data: {\"type\":\"done\",\"thread_id\":\"t9\"}\n\n"), body)

	msgs, err := f.srv.History.Messages(context.Background(), "t9", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Rest and hydrate.", msgs[1].Content)
}

func TestMemory_RequiresUser(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/memory", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_id is required", decode(t, w)["error"])
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_RejectsExtension(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, uploadRequest(t, "scan.exe", "MZ", map[string]string{"user_id": "ada"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "unsupported file type")
	assert.Empty(t, f.srv.Facts.Facts("ada"))
}

func TestUpload_StoresExcerpt(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, uploadRequest(t, "notes.txt", "Blood pressure 120/80", map[string]string{
		"user_id":       "ada",
		"extract_facts": "false",
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "notes.txt", body["filename"])
	assert.Equal(t, float64(len("Blood pressure 120/80")), body["characters"])
	assert.Equal(t, true, body["facts_added"])

	facts := f.srv.Facts.Text("ada")
	assert.Contains(t, facts, "--- Document: notes.txt ---")
	assert.Contains(t, facts, "Blood pressure 120/80")
}

func TestUpload_TooLarge(t *testing.T) {
	f := newFixture(t)
	f.srv.MaxUploadBytes = 64
	h := f.srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "notes.txt", strings.Repeat("x", 4096), map[string]string{"user_id": "ada"}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/register", credentials{Username: "ada", Password: "123"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 6 characters", decode(t, w)["error"])

	token := f.login(t, "ada")

	w = f.do(t, http.MethodPost, "/auth/register", credentials{Username: "ada", Password: "another1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already exists", decode(t, w)["error"])

	w = f.do(t, http.MethodPost, "/auth/login", credentials{Username: "ada", Password: "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid username or password", decode(t, w)["error"])

	w = f.do(t, http.MethodGet, "/auth/verify", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada", decode(t, w)["user_id"])

	w = f.do(t, http.MethodGet, "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password_hash")
	assert.Contains(t, w.Body.String(), "ada@example.com")

	w = f.do(t, http.MethodPost, "/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])

	w = f.do(t, http.MethodGet, "/auth/verify", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileAndTracking(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/onboarding/profile", map[string]interface{}{"user_id": "ghost", "blood_group": "O+"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	token := f.login(t, "ada")
	w = f.do(t, http.MethodPost, "/onboarding/profile", map[string]interface{}{
		"allergies":     []string{"penicillin"},
		"blood_group":   "O+",
		"mark_complete": true,
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p := f.srv.Users.Profile("ada")
	assert.True(t, p.OnboardingComplete)
	assert.Equal(t, []string{"penicillin"}, p.MedicalData.Allergies)

	w = f.do(t, http.MethodGet, "/onboarding/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"blood_group":"O+"`)

	w = f.do(t, http.MethodPost, "/tracking/daily", map[string]interface{}{"mood": "good", "symptoms": []string{"headache"}}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/tracking/history", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["entries"], 1)

	w = f.do(t, http.MethodGet, "/tracking/summary?days=7", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["summary"], "Mood: good")
}

func TestRiskAndAlerts_EmptyHistories(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/risk/history", "/alerts/history"} {
		w := f.do(t, http.MethodGet, path+"?user_id=ada", nil, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), "null", path)
	}

	w := f.do(t, http.MethodGet, "/risk/summary?user_id=ada", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total_assessments"])

	w = f.do(t, http.MethodGet, "/alerts/summary?user_id=ada", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total_alerts"])
}

func TestSpeech_Unconfigured(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/speech/generate", map[string]string{"text": "hello"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(t, http.MethodGet, "/speech/languages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["languages"], 4)
}

func TestRecovery(t *testing.T) {
	f := newFixture(t)
	f.srv.Chat = nil
	h := f.srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", nil, "")

	w := f.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `healthassist_http_requests_total{method="GET",route="/health",status="200"}`)
}
