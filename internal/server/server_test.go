package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecanov/bienestar-api/internal/config"
	"github.com/ecanov/bienestar-api/internal/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		Port:        0,
		DBPath:      ":memory:",
		JWTSecret:   "test-secret-key-0123456789",
		TokenTTL:    time.Hour,
		FrontendURL: "http://localhost:5173",
	}

	logger := testLogger()

	srv, err := server.New(cfg, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func register(t *testing.T, ts *httptest.Server, username, email, password string) *http.Response {
	t.Helper()
	body := strings.NewReader(`{"username":"` + username + `","email":"` + email + `","password":"` + password + `"}`)
	resp, err := http.Post(ts.URL+"/api/register", "application/json", body)
	require.NoError(t, err)
	return resp
}

func obtainToken(t *testing.T, ts *httptest.Server, login, password string) string {
	t.Helper()
	form := url.Values{"username": {login}, "password": {password}}
	resp, err := http.PostForm(ts.URL+"/api/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tr struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	require.Equal(t, "bearer", tr.TokenType)
	require.NotEmpty(t, tr.AccessToken)
	return tr.AccessToken
}

func authedRequest(t *testing.T, ts *httptest.Server, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ==========================================================================
// Auth flow
// ==========================================================================

func TestRegisterTokenMeFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := register(t, ts, "ana", "ana@example.com", "correct-horse")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"username":"ana"`)
	assert.NotContains(t, string(body), "correct-horse", "password must never appear in a response")
	assert.NotContains(t, string(body), "password_hash")

	token := obtainToken(t, ts, "ana", "correct-horse")

	me := authedRequest(t, ts, http.MethodGet, "/api/users/me", token, "")
	defer me.Body.Close()
	assert.Equal(t, http.StatusOK, me.StatusCode)

	meBody, _ := io.ReadAll(me.Body)
	assert.Contains(t, string(meBody), `"username":"ana"`)
	assert.Contains(t, string(meBody), `"email":"ana@example.com"`)
}

func TestTokenByEmail(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "correct-horse").Body.Close()

	// The same password works with the email as login key.
	token := obtainToken(t, ts, "ana@example.com", "correct-horse")
	assert.NotEmpty(t, token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "pw1").Body.Close()

	resp := register(t, ts, "other", "ana@example.com", "pw2")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "duplicate")
}

func TestTokenWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "correct-horse").Body.Close()

	form := url.Values{"username": {"ana"}, "password": {"wrong"}}
	resp, err := http.PostForm(ts.URL+"/api/token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "incorrect username or password")
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/users/me", "/api/mood", "/api/community", "/api/calendar"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "GET %s without token", path)
	}
}

func TestProtectedRoutesRejectGarbageToken(t *testing.T) {
	ts := newTestServer(t)

	resp := authedRequest(t, ts, http.MethodGet, "/api/users/me", "not-a-jwt", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

// ==========================================================================
// Mood and community over HTTP
// ==========================================================================

func TestMoodRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "pw").Body.Close()
	token := obtainToken(t, ts, "ana", "pw")

	created := authedRequest(t, ts, http.MethodPost, "/api/mood", token,
		`{"mood":"contenta","note":"buen día"}`)
	defer created.Body.Close()
	assert.Equal(t, http.StatusCreated, created.StatusCode)

	list := authedRequest(t, ts, http.MethodGet, "/api/mood", token, "")
	defer list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode)

	var entries []map[string]any
	require.NoError(t, json.NewDecoder(list.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "contenta", entries[0]["mood"])
}

func TestMoodEntriesAreIsolatedPerUser(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "pw").Body.Close()
	register(t, ts, "bob", "bob@example.com", "pw").Body.Close()

	anaToken := obtainToken(t, ts, "ana", "pw")
	bobToken := obtainToken(t, ts, "bob", "pw")

	authedRequest(t, ts, http.MethodPost, "/api/mood", anaToken, `{"mood":"bien"}`).Body.Close()

	list := authedRequest(t, ts, http.MethodGet, "/api/mood", bobToken, "")
	defer list.Body.Close()

	var entries []map[string]any
	require.NoError(t, json.NewDecoder(list.Body).Decode(&entries))
	assert.Empty(t, entries, "one user's journal must not leak into another's")
}

func TestCommunityFeedIsShared(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "pw").Body.Close()
	register(t, ts, "bob", "bob@example.com", "pw").Body.Close()

	anaToken := obtainToken(t, ts, "ana", "pw")
	bobToken := obtainToken(t, ts, "bob", "pw")

	authedRequest(t, ts, http.MethodPost, "/api/community", anaToken,
		`{"content":"hoy fue un gran día"}`).Body.Close()

	list := authedRequest(t, ts, http.MethodGet, "/api/community", bobToken, "")
	defer list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode)

	var posts []map[string]any
	require.NoError(t, json.NewDecoder(list.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "ana", posts[0]["author"])
}

// ==========================================================================
// Chat, root, metrics
// ==========================================================================

func TestChatSimulatedMode(t *testing.T) {
	// No GOOGLE_API_KEY in the test config, so the assistant answers
	// with its fixed demo reply instead of calling out.
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "pw").Body.Close()
	token := obtainToken(t, ts, "ana", "pw")

	resp := authedRequest(t, ts, http.MethodPost, "/api/chat", token, `{"message":"hola"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var chat struct {
		Response string `json:"response"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	assert.NotEmpty(t, chat.Response)
}

func TestRootEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Bienestar Docente API")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	register(t, ts, "ana", "ana@example.com", "pw").Body.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "bienestar_registrations_total 1")
	assert.Contains(t, string(body), "bienestar_http_requests_total")
}

func TestGoogleRoutesDisabledWithoutCredentials(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/auth/google")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
