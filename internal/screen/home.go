package screen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/uninavi/internal/model"
	"github.com/hitoshi/uninavi/internal/query"
)

// HomeAPI はホーム画面が必要とするAPIクライアントの操作を表す。
type HomeAPI interface {
	ListUniversities(ctx context.Context, params query.Params) ([]model.University, error)
	ListAnnouncements(ctx context.Context) ([]model.Announcement, error)
}

// Home は大学一覧とお知らせカルーセルを表示するホーム画面のコントローラ。
type Home struct {
	api     HomeAPI
	logger  *slog.Logger
	metrics Recorder
	filter  *query.Controller
	guard   fetchGuard

	mu             sync.Mutex
	universities   []model.University
	announcements  []model.Announcement
	params         query.Params
	initialLoading bool
	refreshing     bool
	favourites     map[int]bool
}

// NewHome はホーム画面のコントローラを生成する。
// フィルタコントローラの初期送出はパラメータの保持のみで、取得は行わない。
func NewHome(api HomeAPI, logger *slog.Logger, rec Recorder) *Home {
	h := &Home{
		api:            api,
		logger:         logger,
		metrics:        rec,
		filter:         query.NewUniversityFilter(),
		initialLoading: true,
		favourites:     make(map[int]bool),
	}
	h.filter.Subscribe(func(p query.Params) {
		h.mu.Lock()
		h.params = p
		h.mu.Unlock()
	})
	return h
}

// Load は初回取得を行う。お知らせの取得失敗は空リストへ縮退し、
// 大学一覧の取得を妨げない。
func (h *Home) Load(ctx context.Context) {
	anns, err := h.api.ListAnnouncements(ctx)
	if err != nil {
		h.logger.Error("お知らせの取得に失敗しました", slog.String("error", err.Error()))
		anns = nil
	}
	h.mu.Lock()
	h.announcements = anns
	h.mu.Unlock()

	h.refresh(ctx, TriggerInitial)
}

// ToggleCity は所在地フィルタを切り替えて再取得する。
func (h *Home) ToggleCity(ctx context.Context, value string) {
	h.filter.ToggleFilter("city", value)
	h.refresh(ctx, TriggerFilter)
}

// ToggleType は設立区分フィルタを切り替えて再取得する。
func (h *Home) ToggleType(ctx context.Context, value string) {
	h.filter.ToggleFilter("type", value)
	h.refresh(ctx, TriggerFilter)
}

// ToggleSort はソート項目を切り替えて再取得する。
func (h *Home) ToggleSort(ctx context.Context, field string) {
	h.filter.ToggleSort(field)
	h.refresh(ctx, TriggerFilter)
}

// refresh はシーケンスガード付きで大学一覧を再取得する。
// 取得失敗時は空リストへ縮退する（エラーは画面へ伝播しない）。
func (h *Home) refresh(ctx context.Context, trigger Trigger) {
	seq := h.guard.begin()
	recordRefresh(h.metrics, trigger)

	h.mu.Lock()
	params := h.params
	switch trigger {
	case TriggerInitial:
		h.initialLoading = true
	case TriggerFilter:
		h.refreshing = true
	}
	h.mu.Unlock()

	unis, err := h.api.ListUniversities(ctx, params)

	h.mu.Lock()
	defer h.mu.Unlock()
	switch trigger {
	case TriggerInitial:
		h.initialLoading = false
	case TriggerFilter:
		h.refreshing = false
	}

	if !h.guard.commit(seq) {
		recordStale(h.metrics)
		return
	}

	if err != nil {
		h.logger.Error("大学一覧の取得に失敗しました", slog.String("error", err.Error()))
		h.universities = nil
		return
	}
	h.universities = unis
}

// Universities は表示中の大学一覧を返す。
func (h *Home) Universities() []model.University {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.universities
}

// Announcements は表示中のお知らせ一覧を返す。
func (h *Home) Announcements() []model.Announcement {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.announcements
}

// IsInitialLoading は全画面ローディングを表示すべきかを返す。
func (h *Home) IsInitialLoading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialLoading
}

// IsRefreshing は非ブロッキングの更新中表示をすべきかを返す。
func (h *Home) IsRefreshing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshing
}

// Filter はフィルタ・ソートの表示状態参照用にコントローラを返す。
func (h *Home) Filter() *query.Controller {
	return h.filter
}

// ToggleFavourite は大学のお気に入り表示を画面内でのみ切り替える。
// バックエンドへの永続化は行わない（対応エンドポイント未提供）。
func (h *Home) ToggleFavourite(universityID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.favourites[universityID] = !h.favourites[universityID]
}

// IsFavourite は画面内のお気に入りトグル状態を返す。
func (h *Home) IsFavourite(universityID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.favourites[universityID]
}
