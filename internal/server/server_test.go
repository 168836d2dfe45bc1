package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/sorma/internal/assistant"
	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/llm"
	"github.com/rcliao/sorma/internal/memory"
	"github.com/rcliao/sorma/internal/metrics"
	"github.com/rcliao/sorma/internal/model"
	"github.com/rcliao/sorma/internal/store"
)

type echoModels struct{}

func (echoModels) Generate(_ context.Context, prompt, _ string) (llm.Result, error) {
	return llm.Result{Text: "echo: " + prompt, Backend: llm.KindCloud, Model: "echo"}, nil
}

func (echoModels) Availability(context.Context) map[llm.Kind]bool {
	return map[llm.Kind]bool{llm.KindCloud: true, llm.KindLocal: false}
}

type testServer struct {
	*httptest.Server
	srv     *Server
	mem     *memory.Store
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend, err := store.NewSQLiteBackend(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	mem := memory.New(backend, memory.Config{Logger: logger})
	gate := auth.NewGate(&model.OwnerProfile{
		Name:        "Chandan",
		AuthPhrases: []string{"unlock agent chandan"},
	}, backend, logger)

	srv := New(Options{
		Assistant: assistant.New(assistant.Options{
			Memory: mem, Gate: gate, Models: echoModels{}, Metrics: m, Logger: logger,
		}),
		SessionTTL: time.Hour,
		Metrics:    m,
		Logger:     logger,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv, mem: mem, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, path, session string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/auth", "", map[string]string{"phrase": "Unlock Agent Chandan"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, id, resp.Header.Get(SessionHeader))
	return id
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/auth", "", map[string]string{"phrase": "let me in"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid authorization phrase", body["error"])

	resp, _ = ts.do(t, http.MethodPost, "/api/auth", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	id := ts.login(t)
	assert.Equal(t, 1, ts.srv.Sessions().Count())

	// Re-authenticating with a live token keeps it.
	resp, body = ts.do(t, http.MethodPost, "/api/auth", id, map[string]string{"phrase": "unlock agent chandan"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["session_id"])

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.AuthAttempts.WithLabelValues("denied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.AuthAttempts.WithLabelValues("granted")))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/chat"},
		{http.MethodGet, "/api/memory"},
		{http.MethodPost, "/api/memory"},
		{http.MethodDelete, "/api/memory"},
		{http.MethodPost, "/api/memory/search"},
		{http.MethodPost, "/api/memory/forget"},
		{http.MethodPost, "/api/auth/logout"},
	}
	for _, rt := range routes {
		for _, token := range []string{"", "not-a-session"} {
			resp, body := ts.do(t, rt.method, rt.path, token, map[string]string{})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", rt.method, rt.path)
			assert.Equal(t, "Not authorized", body["error"])
		}
	}
}

func TestChat(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)

	resp, body := ts.do(t, http.MethodPost, "/api/chat", id, map[string]string{"message": "hello there"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "echo: hello there", body["response"])
	assert.Equal(t, "cloud", body["model_used"])
	assert.NotEmpty(t, body["timestamp"])

	resp, body = ts.do(t, http.MethodPost, "/api/chat", id, map[string]string{"message": "remember I park on level 2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Remembered: I park on level 2", body["response"])
	assert.Equal(t, "command", body["model_used"])
	assert.Equal(t, "remember", body["command"])

	resp, _ = ts.do(t, http.MethodPost, "/api/chat", id, map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Len(t, ts.mem.RecentConversations(context.Background(), 0), 1)
}

func TestMemoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	ctx := context.Background()

	resp, body := ts.do(t, http.MethodGet, "/api/memory", id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["facts"])
	assert.Equal(t, []any{}, body["conversations"])

	resp, body = ts.do(t, http.MethodPost, "/api/memory", id, map[string]string{"fact": "likes green tea", "category": "preference"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Remembered: likes green tea", body["message"])
	fact := body["fact"].(map[string]any)
	assert.Equal(t, "preference", fact["category"])

	resp, _ = ts.do(t, http.MethodPost, "/api/memory", id, map[string]string{"fact": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.do(t, http.MethodPost, "/api/chat", id, map[string]string{"message": "what tea is best?"})

	resp, body = ts.do(t, http.MethodPost, "/api/memory/search", id, map[string]string{"query": "TEA"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, body["count"])
	results := body["results"].([]any)
	assert.Equal(t, "fact", results[0].(map[string]any)["type"])
	assert.Equal(t, "conversation", results[1].(map[string]any)["type"])

	resp, body = ts.do(t, http.MethodGet, "/api/memory", id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, 1.0, stats["short_term_count"])
	assert.Equal(t, 1.0, stats["long_term_count"])
	assert.Equal(t, 2.0, stats["total_memory_items"])

	resp, body = ts.do(t, http.MethodPost, "/api/memory/forget", id, map[string]string{"keyword": "green"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["removed"])
	assert.Empty(t, ts.mem.Facts(ctx))

	resp, _ = ts.do(t, http.MethodDelete, "/api/memory?scope=bogus", id, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/memory?scope=short", id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, ts.mem.RecentConversations(ctx, 0))
}

func TestSearchForm(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	_, err := ts.mem.RememberFact(context.Background(), "dentist on monday", "")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/memory/search", strings.NewReader(url.Values{"query": {"dentist"}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SessionHeader, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out searchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Count)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/auth/logout", id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, ts.srv.Sessions().Count())

	resp, _ = ts.do(t, http.MethodPost, "/api/chat", id, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Chandan", body["owner"])
	assert.Equal(t, false, body["authenticated"])
	assert.NotContains(t, body, "authorized_at")
	assert.Equal(t, 50.0, body["short_term_limit"])
	models := body["models"].(map[string]any)
	assert.Equal(t, true, models["cloud"])

	id := ts.login(t)
	_, body = ts.do(t, http.MethodGet, "/api/status", id, nil)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, 1.0, body["sessions"])
	assert.NotEmpty(t, body["authorized_at"])
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodOptions, "/api/chat", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), SessionHeader)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health", "", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `sorma_http_requests_total{route="GET /health",status="200"} 1`)
}
