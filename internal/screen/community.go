package screen

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/uninavi/internal/model"
	"github.com/hitoshi/uninavi/internal/query"
	"github.com/hitoshi/uninavi/internal/security"
)

// CommunityAPI はコミュニティ一覧画面が必要とするAPIクライアントの操作を表す。
type CommunityAPI interface {
	ListPosts(ctx context.Context, params query.Params) ([]model.Post, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

// Community はコミュニティ投稿一覧画面のコントローラ。
// フィルタ・ソート変更による再取得に加えて、一定間隔のサイレント更新で
// フィード型の画面を操作なしでもおおむね最新に保つ。
type Community struct {
	api       CommunityAPI
	logger    *slog.Logger
	metrics   Recorder
	sanitizer security.ContentSanitizerService
	filter    *query.Controller
	guard     fetchGuard
	interval  time.Duration

	mu             sync.Mutex
	posts          []model.Post
	tags           []model.Tag
	params         query.Params
	searchQuery    string
	initialLoading bool
	refreshing     bool
}

// NewCommunity はコミュニティ一覧画面のコントローラを生成する。
// interval が0以下の場合はデフォルトの10秒を使用する。
func NewCommunity(api CommunityAPI, sanitizer security.ContentSanitizerService, logger *slog.Logger, rec Recorder, interval time.Duration) *Community {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	c := &Community{
		api:            api,
		logger:         logger,
		metrics:        rec,
		sanitizer:      sanitizer,
		filter:         query.NewCommunityFilter(),
		interval:       interval,
		initialLoading: true,
	}
	c.filter.Subscribe(func(p query.Params) {
		c.mu.Lock()
		c.params = p
		c.mu.Unlock()
	})
	return c
}

// Load は初回取得を行う。タグ一覧の取得失敗は空リストへ縮退し、
// 投稿一覧の取得を妨げない。
func (c *Community) Load(ctx context.Context) {
	tags, err := c.api.ListTags(ctx)
	if err != nil {
		c.logger.Error("タグ一覧の取得に失敗しました", slog.String("error", err.Error()))
		tags = nil
	}
	c.mu.Lock()
	c.tags = tags
	c.mu.Unlock()

	c.refresh(ctx, TriggerInitial)
}

// StartAutoRefresh は一定間隔のサイレント更新ループを開始する。
// コンテキストがキャンセルされるまで実行を継続するため、
// 画面を離れる際は必ずキャンセルすること。goルーチンで起動する想定。
func (c *Community) StartAutoRefresh(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("コミュニティの自動更新を開始しました",
		slog.Duration("interval", c.interval),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("コミュニティの自動更新を停止しました")
			return
		case <-ticker.C:
			c.refresh(ctx, TriggerTimer)
		}
	}
}

// ToggleTag はタグフィルタを切り替えて再取得する。
// 同じタグの再選択はフィルタ解除になる。
func (c *Community) ToggleTag(ctx context.Context, tagID int) {
	c.filter.ToggleFilter("tag", strconv.Itoa(tagID))
	c.refresh(ctx, TriggerFilter)
}

// ToggleSort はソート項目（time, likes, views）を切り替えて再取得する。
func (c *Community) ToggleSort(ctx context.Context, field string) {
	c.filter.ToggleSort(field)
	c.refresh(ctx, TriggerFilter)
}

// refresh はシーケンスガード付きで投稿一覧を再取得する。
// タイマー起因の更新はローディング表示を一切変更しない。
func (c *Community) refresh(ctx context.Context, trigger Trigger) {
	seq := c.guard.begin()
	recordRefresh(c.metrics, trigger)

	c.mu.Lock()
	params := c.params
	switch trigger {
	case TriggerInitial:
		c.initialLoading = true
	case TriggerFilter:
		c.refreshing = true
	}
	c.mu.Unlock()

	posts, err := c.api.ListPosts(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch trigger {
	case TriggerInitial:
		c.initialLoading = false
	case TriggerFilter:
		c.refreshing = false
	}

	if !c.guard.commit(seq) {
		recordStale(c.metrics)
		return
	}

	if err != nil {
		c.logger.Error("投稿一覧の取得に失敗しました", slog.String("error", err.Error()))
		c.posts = nil
		return
	}
	c.posts = posts
}

// SetSearch はクライアント側の全文検索クエリを設定する。
// ネットワーク呼び出しは発生しない。
func (c *Community) SetSearch(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchQuery = q
}

// VisiblePosts は検索クエリでフィルタした表示対象の投稿を返す。
// タイトルと本文に対する大文字小文字を区別しない部分一致で絞り込む。
func (c *Community) VisiblePosts() []model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.searchQuery == "" {
		return c.posts
	}

	q := strings.ToLower(c.searchQuery)
	filtered := make([]model.Post, 0, len(c.posts))
	for _, p := range c.posts {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Content), q) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// Tags は表示中のタグ一覧を返す。
func (c *Community) Tags() []model.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags
}

// Excerpt は一覧表示用に投稿本文からタグを除いた抜粋を返す。
// maxRunes が0以下の場合は全文を返す。
func (c *Community) Excerpt(p model.Post, maxRunes int) string {
	text := c.sanitizer.PlainText(p.Content)
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "…"
}

// IsInitialLoading は全画面ローディングを表示すべきかを返す。
func (c *Community) IsInitialLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialLoading
}

// IsRefreshing は非ブロッキングの更新中表示をすべきかを返す。
func (c *Community) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Filter はフィルタ・ソートの表示状態参照用にコントローラを返す。
func (c *Community) Filter() *query.Controller {
	return c.filter
}
