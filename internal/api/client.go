// Package api はバックエンドREST APIのクライアントを提供する。
// 各エンドポイントに対応するメソッドを持ち、クエリパラメータの組み立て、
// Bearerトークンの付与、エラーステータスの正規化を行う。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/uninavi/internal/model"
	"github.com/hitoshi/uninavi/internal/query"
)

// Recorder はAPI呼び出しのメトリクス記録インターフェース。
// nilの場合は記録しない。
type Recorder interface {
	RecordAPIRequest(operation string, status int, duration time.Duration)
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
	metrics    Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string, recorder Recorder) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		metrics:    recorder,
	}
}

// dataEnvelope は一覧・詳細エンドポイント共通の {data: ...} 形式を表す。
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ListUniversities は大学一覧を取得する。
// params のキー（sort, ownership_type, is_seoul）のみクエリ文字列に含める。
func (c *Client) ListUniversities(ctx context.Context, params query.Params) ([]model.University, error) {
	var env dataEnvelope[[]model.University]
	if err := c.doJSON(ctx, "ListUniversities", http.MethodGet, "/api/v1/universities", params, "", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListAnnouncements はお知らせ一覧を取得する。
func (c *Client) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	var env dataEnvelope[[]model.Announcement]
	if err := c.doJSON(ctx, "ListAnnouncements", http.MethodGet, "/api/v1/announcements", nil, "", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetUniversity は大学の詳細を取得する。
func (c *Client) GetUniversity(ctx context.Context, id int) (*model.University, error) {
	var env dataEnvelope[*model.University]
	path := fmt.Sprintf("/api/v1/universities/%d", id)
	if err := c.doJSON(ctx, "GetUniversity", http.MethodGet, path, nil, "", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListPosts はコミュニティ投稿一覧を取得する。
// params のキー（sort, tags）のみクエリ文字列に含める。
func (c *Client) ListPosts(ctx context.Context, params query.Params) ([]model.Post, error) {
	var env dataEnvelope[[]model.Post]
	if err := c.doJSON(ctx, "ListPosts", http.MethodGet, "/api/v1/community/posts", params, "", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListTags はコミュニティのタグ一覧を取得する。
func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var env dataEnvelope[[]model.Tag]
	if err := c.doJSON(ctx, "ListTags", http.MethodGet, "/api/v1/community/tags", nil, "", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetPost は投稿の詳細（2階層のコメントツリー込み）を取得する。
// tokenが空でない場合のみAuthorizationヘッダを付与する。
func (c *Client) GetPost(ctx context.Context, id int, token string) (*model.Post, error) {
	var env dataEnvelope[*model.Post]
	path := fmt.Sprintf("/api/v1/community/posts/%d", id)
	if err := c.doJSON(ctx, "GetPost", http.MethodGet, path, nil, token, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreatePost は投稿を作成する。tokenは必須。
func (c *Client) CreatePost(ctx context.Context, input model.CreatePostInput, token string) (*model.Post, error) {
	if token == "" {
		return nil, model.NewLoginRequiredError()
	}
	var env dataEnvelope[*model.Post]
	if err := c.doJSON(ctx, "CreatePost", http.MethodPost, "/api/v1/community/posts", nil, token, input, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateComment は投稿へのコメントを作成する。tokenは必須。
// input.CommentID が設定されている場合は返信として親コメントにぶら下がる。
// 失敗時のエラーにはレスポンスボディの本文が含まれる。
func (c *Client) CreateComment(ctx context.Context, postID int, input model.CreateCommentInput, token string) (*model.Comment, error) {
	if token == "" {
		return nil, model.NewLoginRequiredError()
	}
	var env dataEnvelope[*model.Comment]
	path := fmt.Sprintf("/api/v1/community/posts/%d/comments", postID)
	if err := c.doJSON(ctx, "CreateComment", http.MethodPost, path, nil, token, input, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// loginRequest は外部IdPトークン交換リクエストのボディ。
type loginRequest struct {
	AccessToken string `json:"access_token"`
}

// LoginWithGoogle は外部IdPの資格情報をセッショントークンへ交換する。
// 資格情報文字列はそのまま転送し、クライアント側で検証・デコードはしない。
func (c *Client) LoginWithGoogle(ctx context.Context, idToken string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.doJSON(ctx, "LoginWithGoogle", http.MethodPost, "/api/auth/google/token", nil, "", loginRequest{AccessToken: idToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout はサーバー側のセッションを破棄する。
// トークン失効による401は致命的ではないため成功として扱う。
func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.doJSON(ctx, "Logout", http.MethodPost, "/api/auth/logout", nil, token, nil, nil)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.logger.Info("ログアウト時にトークンが失効していたため無視します")
			return nil
		}
		return err
	}
	return nil
}

// doJSON はリクエストの組み立て・実行・レスポンスのデコードを共通処理する。
// paramsに含まれるキーのみクエリ文字列へ追加する（未指定キーは送らない）。
// tokenが空でない場合のみ Authorization: Bearer ヘッダを付与する。
// 2xx以外のステータスは操作名・ステータス・ボディを含むエラーへ正規化する。
func (c *Client) doJSON(ctx context.Context, operation, method, path string, params query.Params, token string, reqBody, out any) error {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("リクエストURLのパースに失敗しました: %w", err)
	}

	if len(params) > 0 {
		q := reqURL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		reqURL.RawQuery = q.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// ログ相関用のリクエストID
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(operation, 0, time.Since(start))
		c.logger.Error("API呼び出しに失敗しました",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return model.NewRequestFailedError(operation, 0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(operation, resp.StatusCode, time.Since(start))
		return model.NewRequestFailedError(operation, resp.StatusCode, "レスポンスボディの読み取りに失敗しました")
	}

	c.record(operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("APIがエラーステータスを返しました",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewRequestFailedError(operation, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return model.NewRequestFailedError(operation, resp.StatusCode, "レスポンスJSONのパースに失敗しました")
	}

	c.logger.Debug("API呼び出しが完了しました",
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (c *Client) record(operation string, status int, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordAPIRequest(operation, status, d)
}
