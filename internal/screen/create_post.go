package screen

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hitoshi/uninavi/internal/model"
)

const (
	maxTitleRunes   = 100
	maxContentRunes = 2000
	maxTags         = 5
)

// CreatePostAPI は投稿作成画面が必要とするAPIクライアントの操作を表す。
type CreatePostAPI interface {
	CreatePost(ctx context.Context, input model.CreatePostInput, token string) (*model.Post, error)
}

// CreatePost は投稿作成画面のコントローラ。
// タイトル・本文・タグの下書きを保持し、送信失敗時も下書きを失わない。
type CreatePost struct {
	api     CreatePostAPI
	session SessionReader
	logger  *slog.Logger

	mu         sync.Mutex
	title      string
	content    string
	tags       []string
	submitting bool
}

// NewCreatePost は投稿作成画面のコントローラを生成する。
func NewCreatePost(api CreatePostAPI, session SessionReader, logger *slog.Logger) *CreatePost {
	return &CreatePost{
		api:     api,
		session: session,
		logger:  logger,
	}
}

// SetTitle はタイトルの下書きを設定する。
func (c *CreatePost) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// SetContent は本文の下書きを設定する。
func (c *CreatePost) SetContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = content
}

// AddTag はタグを追加する。空白のみ・重複・上限超過のタグは無視される。
func (c *CreatePost) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tags) >= maxTags {
		return
	}
	for _, t := range c.tags {
		if t == tag {
			return
		}
	}
	c.tags = append(c.tags, tag)
}

// RemoveTag は指定タグを下書きから取り除く。
func (c *CreatePost) RemoveTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tags {
		if t == tag {
			c.tags = append(c.tags[:i], c.tags[i+1:]...)
			return
		}
	}
}

// Tags は現在のタグ下書きを返す。
func (c *CreatePost) Tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tags...)
}

// Draft は現在のタイトルと本文の下書きを返す。
func (c *CreatePost) Draft() (title, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title, c.content
}

// CanSubmit はタイトル・本文がともに入力済みで送信中でないかを返す。
func (c *CreatePost) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(c.title) != "" &&
		strings.TrimSpace(c.content) != "" &&
		!c.submitting
}

// Submit は下書きを投稿として送信する。
// 未ログインの場合はネットワーク呼び出しなしでログイン必須エラーを返す。
// 検証エラー・送信失敗時は下書きを保持したままエラーを返す。
// 成功時は下書きをクリアし、作成された投稿を返す。
func (c *CreatePost) Submit(ctx context.Context) (*model.Post, error) {
	c.mu.Lock()
	title := strings.TrimSpace(c.title)
	content := strings.TrimSpace(c.content)
	tags := append([]string(nil), c.tags...)
	c.mu.Unlock()

	if title == "" || content == "" {
		return nil, model.NewInvalidInputError("タイトルと本文を入力してください")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, model.NewInvalidInputError("タイトルは100文字以内で入力してください")
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		return nil, model.NewInvalidInputError("本文は2000文字以内で入力してください")
	}
	if !c.session.IsAuthenticated() {
		return nil, model.NewLoginRequiredError()
	}

	c.mu.Lock()
	c.submitting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if tags == nil {
		tags = []string{}
	}
	input := model.CreatePostInput{Title: title, Content: content, Tags: tags}
	post, err := c.api.CreatePost(ctx, input, c.session.Token())
	if err != nil {
		c.logger.Error("投稿の作成に失敗しました", slog.String("error", err.Error()))
		return nil, err
	}

	c.mu.Lock()
	c.title = ""
	c.content = ""
	c.tags = nil
	c.mu.Unlock()

	c.logger.Info("投稿を作成しました")
	return post, nil
}
