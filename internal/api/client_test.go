package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/uninavi/internal/model"
	"github.com/hitoshi/uninavi/internal/query"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestClient(server *httptest.Server) *Client {
	var buf bytes.Buffer
	return NewClient(server.Client(), newTestLogger(&buf), server.URL, nil)
}

func TestClient_ListUniversities_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/universities" {
			t.Errorf("パス = %s, want /api/v1/universities", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sort") != "qs_rank" {
			t.Errorf("sort = %s, want qs_rank", q.Get("sort"))
		}
		if q.Get("is_seoul") != "1" {
			t.Errorf("is_seoul = %s, want 1", q.Get("is_seoul"))
		}
		// 未指定のフィルタキーは送出されない
		if q.Has("ownership_type") {
			t.Error("ownership_type が送出されている")
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("一覧取得にAuthorizationヘッダが付与されている")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": 1, "name_jp": "ソウル大学校", "qs_rank": 31, "is_seoul": true},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server)
	unis, err := c.ListUniversities(context.Background(), query.Params{"sort": "qs_rank", "is_seoul": "1"})
	if err != nil {
		t.Fatalf("ListUniversities がエラーを返した: %v", err)
	}
	if len(unis) != 1 || unis[0].NameJP != "ソウル大学校" {
		t.Errorf("取得結果 = %+v", unis)
	}
}

func TestClient_GetPost_OptionalBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": 7, "title": "入学手続きについて"},
		})
	}))
	defer server.Close()

	c := newTestClient(server)

	// トークンなし
	if _, err := c.GetPost(context.Background(), 7, ""); err != nil {
		t.Fatalf("GetPost がエラーを返した: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("トークンなしでAuthorizationヘッダが付与された: %s", gotAuth)
	}

	// トークンあり
	if _, err := c.GetPost(context.Background(), 7, "tok123"); err != nil {
		t.Fatalf("GetPost がエラーを返した: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %s, want Bearer tok123", gotAuth)
	}
}

func TestClient_CreateComment_RequiresToken(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := newTestClient(server)
	_, err := c.CreateComment(context.Background(), 1, model.CreateCommentInput{Content: "test"}, "")
	if err == nil {
		t.Fatal("トークンなしのコメント作成はエラーを返さなければならない")
	}
	if called {
		t.Error("トークンなしなのにネットワーク呼び出しが発生した")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginRequired {
		t.Errorf("エラー = %v, want LOGIN_REQUIRED", err)
	}
}

func TestClient_CreateComment_ReplyBodyAndErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var input model.CreateCommentInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatalf("ボディのデコードに失敗: %v", err)
		}
		if input.CommentID == nil || *input.CommentID != 12 {
			t.Errorf("comment_id = %v, want 12", input.CommentID)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %s, want Bearer tok", r.Header.Get("Authorization"))
		}

		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"content too long"}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	parent := 12
	_, err := c.CreateComment(context.Background(), 1, model.CreateCommentInput{Content: "返信です", CommentID: &parent}, "tok")
	if err == nil {
		t.Fatal("エラーステータスに対してエラーを返さなければならない")
	}
	// コメント作成のエラーにはレスポンスボディの本文が含まれる
	if !strings.Contains(err.Error(), "content too long") {
		t.Errorf("エラーにボディ本文が含まれていない: %v", err)
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("エラーにステータスコードが含まれていない: %v", err)
	}
}

func TestClient_LoginWithGoogle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/google/token" {
			t.Errorf("パス = %s, want /api/auth/google/token", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["access_token"] != "google-id-token" {
			t.Errorf("access_token = %s, want google-id-token", body["access_token"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "session-token",
			"user":         map[string]any{"id": 3, "name": "ひとし"},
		})
	}))
	defer server.Close()

	c := newTestClient(server)
	resp, err := c.LoginWithGoogle(context.Background(), "google-id-token")
	if err != nil {
		t.Fatalf("LoginWithGoogle がエラーを返した: %v", err)
	}
	if resp.AccessToken != "session-token" {
		t.Errorf("AccessToken = %s, want session-token", resp.AccessToken)
	}
	if resp.User == nil || resp.User.Name != "ひとし" {
		t.Errorf("User = %+v", resp.User)
	}
}

func TestClient_Logout_Tolerates401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("token expired"))
	}))
	defer server.Close()

	c := newTestClient(server)
	if err := c.Logout(context.Background(), "expired-token"); err != nil {
		t.Errorf("401に対するLogoutはエラーを返してはならない: %v", err)
	}
}

func TestClient_Logout_PropagatesOtherErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server)
	if err := c.Logout(context.Background(), "tok"); err == nil {
		t.Error("500に対するLogoutはエラーを返さなければならない")
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 即座に閉じて接続エラーを誘発

	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), server.URL, nil)

	_, err := c.ListAnnouncements(context.Background())
	if err == nil {
		t.Fatal("トランスポート障害に対してエラーを返さなければならない")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("エラー型 = %T, want *model.APIError", err)
	}
	if apiErr.Status != 0 {
		t.Errorf("トランスポート障害のStatus = %d, want 0", apiErr.Status)
	}
	if !strings.Contains(apiErr.Message, "ListAnnouncements") {
		t.Errorf("エラーに操作名が含まれていない: %v", apiErr)
	}
}

func TestClient_RequestIDHeader(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	c := newTestClient(server)
	if _, err := c.ListTags(context.Background()); err != nil {
		t.Fatalf("ListTags がエラーを返した: %v", err)
	}
	if gotID == "" {
		t.Error("X-Request-ID ヘッダが付与されていない")
	}
}
