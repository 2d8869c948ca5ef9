package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/uninavi/internal/metrics"
	"github.com/hitoshi/uninavi/internal/model"
)

// Router はローカルサーバーのルーターを構築する。
// メトリクス公開・ヘルスチェック・Googleサインインのコールバック受け口を提供する。
// バックエンドAPIのプロキシではない。
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(a.registry))
	r.Get("/auth/callback", a.handleAuthCallback)
	r.Post("/auth/logout", a.handleLogout)

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuthCallback はGoogleサインインのリダイレクトを受け取り、
// IDトークンをバックエンドで交換してセッションを確立する。
func (a *App) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	idToken := r.URL.Query().Get("credential")
	if idToken == "" {
		idToken = r.URL.Query().Get("id_token")
	}
	if idToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "credential is required"})
		return
	}

	resp, err := a.session.Login(r.Context(), idToken)
	if err != nil {
		slog.Error("ログインに失敗しました", slog.String("error", err.Error()))
		writeJSON(w, loginErrorStatus(err), map[string]string{"error": "login failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": resp.User})
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// loginErrorStatus はログイン失敗をローカルサーバーのステータスコードへ写す。
// バックエンド起因の失敗は502、それ以外は500とする。
func loginErrorStatus(err error) int {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Status > 0 {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("レスポンスの書き込みに失敗しました", slog.String("error", err.Error()))
	}
}
