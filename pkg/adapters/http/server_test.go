package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/callflow"
	"github.com/aretw0/parley/pkg/dialogue"
	"github.com/aretw0/parley/pkg/dialogue/dialoguetest"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/language"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	handler http.Handler
	gen     *dialoguetest.Generator
	store   *memory.Store
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store := memory.NewStore()
	gen := dialoguetest.New()
	ctrl := callflow.NewController(session.NewManager(store), language.Default(), dialogue.NewEngine(gen))
	return &testEnv{handler: NewHandler(ctrl, opts...), gen: gen, store: store}
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CallLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.gen.AddReply("my mic isn't working", "Check whether you're muted.")

	rec := env.post(t, "/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15550100"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `action="/language"`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = env.post(t, "/language", url.Values{"CallSid": {"CA1"}, "Digits": {"2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Polly.Lupe")
	assert.Contains(t, rec.Body.String(), `action="/respond"`)

	sess, err := env.store.Load(context.Background(), "CA1")
	require.NoError(t, err)
	assert.Equal(t, domain.LocaleSpanish, sess.Language)

	rec = env.post(t, "/respond", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"my mic isn't working"}, "Confidence": {"0.92"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Check whether you")

	rec = env.post(t, "/respond", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"Adiós"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Hangup")

	_, err = env.store.Load(context.Background(), "CA1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHandler_MissingCallSid(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/voice", "/language", "/respond", "/status"} {
		rec := env.post(t, path, url.Values{"SpeechResult": {"hello"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestHandler_RespondWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.post(t, "/respond", url.Values{"CallSid": {"CA-ghost"}, "SpeechResult": {"hello"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/voice</Redirect>")
	assert.Zero(t, env.gen.Calls())
}

func TestHandler_BackendFailureIsNotAnHTTPError(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/language", url.Values{"CallSid": {"CA1"}, "Digits": {"1"}})
	env.gen.FailWith(domain.NewBackendError("fake", domain.BackendAuth, nil))

	rec := env.post(t, "/respond", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"hello"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "technical difficulty")
	assert.NotContains(t, rec.Body.String(), "<Hangup")
}

func TestHandler_StatusCallbackRemovesSession(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/language", url.Values{"CallSid": {"CA1"}, "Digits": {"1"}})

	rec := env.post(t, "/status", url.Values{"CallSid": {"CA1"}, "CallStatus": {"in-progress"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, env.store.Len())

	rec = env.post(t, "/status", url.Values{"CallSid": {"CA1"}, "CallStatus": {"completed"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, env.store.Len())
}

func TestHandler_Health(t *testing.T) {
	env := newTestEnv(t, WithInfo("GoToMeeting AI Voice Support", "v1.0.0", "fake"))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "GoToMeeting AI Voice Support", body["agent"])
	assert.Equal(t, []any{"en", "es", "fr", "pt"}, body["languages"])
}

func TestHandler_Metrics(t *testing.T) {
	m := observability.NewMetrics("")
	env := newTestEnv(t, WithMetrics(m))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandler_SignatureValidation(t *testing.T) {
	const token = "secret-token"
	env := newTestEnv(t, WithSignatureValidation(token, "https://voice.example.com"))
	form := url.Values{"CallSid": {"CA1"}, "From": {"+15550100"}}

	rec := env.post(t, "/voice", form)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sign(token, "https://voice.example.com/voice", form))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
