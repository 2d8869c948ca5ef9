package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/uninavi/internal/config"
	"github.com/hitoshi/uninavi/internal/nav"
)

// newTestApp はバックエンドをモックしたAppを構築するテストヘルパー。
// プッシュチャネルは無効化される。
func newTestApp(t *testing.T, backend http.Handler) *App {
	t.Helper()

	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		APIBaseURL:          ts.URL,
		HTTPTimeout:         5 * time.Second,
		APIRateLimit:        100,
		StateDir:            t.TempDir(),
		FeedRefreshInterval: time.Minute,
		LocalPort:           "0",
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

// loginBackend はトークン交換とログアウトだけを受けるバックエンドのモック。
func loginBackend() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/google/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","user":{"id":1,"name":"留学生"}}`))
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestRouter_Healthz(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())
	a.metrics.RecordRefresh("initial")

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "uninavi_refresh_total") {
		t.Errorf("metrics output should contain uninavi_refresh_total:\n%s", rec.Body.String())
	}
}

func TestRouter_AuthCallback_MissingCredential(t *testing.T) {
	a := newTestApp(t, loginBackend())

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if a.Session().IsAuthenticated() {
		t.Error("session should not be authenticated")
	}
}

func TestRouter_AuthCallback_EstablishesSession(t *testing.T) {
	a := newTestApp(t, loginBackend())

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?credential=google-id-token", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if !a.Session().IsAuthenticated() {
		t.Fatal("session should be authenticated after callback")
	}
	if a.Session().Token() != "tok-123" {
		t.Errorf("token = %q, want tok-123", a.Session().Token())
	}
}

func TestRouter_AuthCallback_BackendFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/google/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})
	a := newTestApp(t, mux)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?credential=bad", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if a.Session().IsAuthenticated() {
		t.Error("session should not be authenticated after failed login")
	}
}

func TestRouter_Logout(t *testing.T) {
	a := newTestApp(t, loginBackend())

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?credential=google-id-token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if a.Session().IsAuthenticated() {
		t.Error("session should be cleared after logout")
	}
}

func TestApp_Navigation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/community/posts/5", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":5,"title":"質問","content":"<p>本文</p>"}}`))
	})
	a := newTestApp(t, mux)

	a.SwitchTab(nav.TabCommunity)
	d := a.OpenPost(context.Background(), 5)

	if d.Post() == nil || d.Post().ID != 5 {
		t.Fatalf("post detail not loaded: %+v", d.Post())
	}
	if route, ok := a.Shell().Current().(nav.PostDetailRoute); !ok || route.ID != 5 {
		t.Fatalf("current route = %+v, want PostDetailRoute{5}", a.Shell().Current())
	}

	a.Back()
	if _, ok := a.Shell().Current().(nav.CommunityRoute); !ok {
		t.Fatalf("current route = %+v, want CommunityRoute", a.Shell().Current())
	}
}
