package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/uninavi/internal/api"
	"github.com/hitoshi/uninavi/internal/config"
	"github.com/hitoshi/uninavi/internal/metrics"
	"github.com/hitoshi/uninavi/internal/nav"
	"github.com/hitoshi/uninavi/internal/realtime"
	"github.com/hitoshi/uninavi/internal/screen"
	"github.com/hitoshi/uninavi/internal/security"
	"github.com/hitoshi/uninavi/internal/session"
)

// App は全依存関係を束ねたアプリケーション本体。
// タブ直下の画面（ホーム・コミュニティ）は常駐し、
// ドリルダウン画面（詳細・投稿作成）はナビゲーションのたびに生成される。
type App struct {
	cfg       *config.Config
	api       *api.Client
	session   *session.Store
	push      *realtime.Client
	sanitizer security.ContentSanitizerService
	metrics   *metrics.Collector
	registry  *prometheus.Registry

	shell     *nav.Shell
	home      *screen.Home
	community *screen.Community

	mu               sync.Mutex
	universityDetail *screen.UniversityDetail
	postDetail       *screen.PostDetail
	createPost       *screen.CreatePost
}

// New は設定から全依存関係をワイヤリングしてAppを生成する。
// PusherAppKeyが空の場合はプッシュチャネルなしで動作する
// （投稿詳細は定期更新なしの手動更新のみになる）。
// プッシュチャネルへの接続失敗も同様に縮退し、起動は妨げない。
func New(cfg *config.Config) (*App, error) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	httpClient := api.NewHTTPClient(cfg.HTTPTimeout, cfg.APIRateLimit)
	client := api.NewClient(httpClient, slog.Default(), cfg.APIBaseURL, collector)

	storage := session.NewFileStorage(cfg.StateDir)
	store := session.NewStore(client, storage, slog.Default())
	store.Restore()

	sanitizer := security.NewContentSanitizer()

	a := &App{
		cfg:       cfg,
		api:       client,
		session:   store,
		sanitizer: sanitizer,
		metrics:   collector,
		registry:  registry,
		shell:     nav.NewShell(),
	}

	if cfg.PusherAppKey != "" {
		push, err := realtime.New(realtime.Config{
			AppKey:  cfg.PusherAppKey,
			Cluster: cfg.PusherCluster,
			Scheme:  cfg.PusherScheme,
		}, slog.Default())
		if err != nil {
			slog.Error("プッシュチャネルなしで継続します", slog.String("error", err.Error()))
		} else {
			a.push = push
		}
	}

	a.home = screen.NewHome(client, slog.Default(), collector)
	a.community = screen.NewCommunity(client, sanitizer, slog.Default(), collector, cfg.FeedRefreshInterval)

	return a, nil
}

// Start はタブ直下の画面の初回取得と、コミュニティの自動更新ループを開始する。
// 自動更新はctxのキャンセルで停止する。
func (a *App) Start(ctx context.Context) {
	a.home.Load(ctx)
	a.community.Load(ctx)
	go a.community.StartAutoRefresh(ctx)
}

// Close は保持しているリソースを解放する。
func (a *App) Close() {
	a.closePostDetail()
	if a.push != nil {
		if err := a.push.Close(); err != nil {
			slog.Error("プッシュチャネルのクローズに失敗しました", slog.String("error", err.Error()))
		}
	}
}

// Session はセッションストアを返す。
func (a *App) Session() *session.Store {
	return a.session
}

// Shell はナビゲーションシェルを返す。
func (a *App) Shell() *nav.Shell {
	return a.shell
}

// Home はホーム画面のコントローラを返す。
func (a *App) Home() *screen.Home {
	return a.home
}

// Community はコミュニティ一覧画面のコントローラを返す。
func (a *App) Community() *screen.Community {
	return a.community
}

// SwitchTab はタブを切り替える。ドリルダウン中の画面は閉じられる。
func (a *App) SwitchTab(tab nav.Tab) {
	a.closePostDetail()
	a.shell.SwitchTab(tab)
}

// OpenUniversity は大学詳細画面へ遷移し、取得済みのコントローラを返す。
func (a *App) OpenUniversity(ctx context.Context, id int) *screen.UniversityDetail {
	a.shell.OpenUniversity(id)

	d := screen.NewUniversityDetail(a.api, slog.Default(), a.metrics, id)
	d.Load(ctx)

	a.mu.Lock()
	a.universityDetail = d
	a.mu.Unlock()
	return d
}

// OpenPost は投稿詳細画面へ遷移し、購読開始済みのコントローラを返す。
// 表示中の投稿詳細があれば先に閉じる（アクティブな購読は常に最大1つ）。
func (a *App) OpenPost(ctx context.Context, id int) *screen.PostDetail {
	a.closePostDetail()
	a.shell.OpenPost(id)

	d := screen.NewPostDetail(a.api, a.session, a.subscriber(), a.sanitizer, slog.Default(), a.metrics, id)
	d.Open(ctx)

	a.mu.Lock()
	a.postDetail = d
	a.mu.Unlock()
	return d
}

// OpenCreatePost は投稿作成画面へ遷移し、コントローラを返す。
// 下書きは画面を離れるまで保持される。
func (a *App) OpenCreatePost() *screen.CreatePost {
	a.shell.OpenCreatePost()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createPost == nil {
		a.createPost = screen.NewCreatePost(a.api, a.session, slog.Default())
	}
	return a.createPost
}

// Back はドリルダウン画面からタブのルート画面へ戻る。
// 投稿詳細を表示中だった場合は購読も解除される。
func (a *App) Back() {
	a.closePostDetail()
	a.shell.Back()
}

// closePostDetail は表示中の投稿詳細があれば購読を解除して手放す。
func (a *App) closePostDetail() {
	a.mu.Lock()
	d := a.postDetail
	a.postDetail = nil
	a.mu.Unlock()
	if d != nil {
		d.Close()
	}
}

// subscriber はプッシュチャネル未接続の場合にnilインターフェースを返す。
func (a *App) subscriber() screen.Subscriber {
	if a.push == nil {
		return nil
	}
	return a.push
}
