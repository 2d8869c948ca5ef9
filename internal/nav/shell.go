// Package nav はどの画面を表示するかを選択するナビゲーションシェルを提供する。
// データ取得は行わず、画面選択の状態機械のみを扱う。
package nav

import "sync"

// Tab はトップレベルのタブを表す。
type Tab string

const (
	// TabHome はホーム（大学一覧）タブ。
	TabHome Tab = "home"
	// TabCommunity はコミュニティタブ。
	TabCommunity Tab = "community"
	// TabSettings は設定タブ。
	TabSettings Tab = "settings"
)

// Route は表示中の画面を表すタグ付き共用体。
// 同時にアクティブになれるバリアントは常に1つだけで、
// 複数のドリルダウンIDが同時に非nilになる状態は型レベルで存在しない。
type Route interface {
	isRoute()
}

// HomeRoute はホーム画面（大学一覧）を表す。
type HomeRoute struct{}

// CommunityRoute はコミュニティ一覧画面を表す。
type CommunityRoute struct{}

// SettingsRoute は設定画面を表す。
type SettingsRoute struct{}

// UniversityDetailRoute は大学詳細画面を表す。
type UniversityDetailRoute struct{ ID int }

// PostDetailRoute は投稿詳細画面を表す。
type PostDetailRoute struct{ ID int }

// CreatePostRoute は投稿作成画面を表す。
type CreatePostRoute struct{}

func (HomeRoute) isRoute()             {}
func (CommunityRoute) isRoute()        {}
func (SettingsRoute) isRoute()         {}
func (UniversityDetailRoute) isRoute() {}
func (PostDetailRoute) isRoute()       {}
func (CreatePostRoute) isRoute()       {}

// rootRoute はタブに対応するルート画面を返す。
func rootRoute(tab Tab) Route {
	switch tab {
	case TabCommunity:
		return CommunityRoute{}
	case TabSettings:
		return SettingsRoute{}
	default:
		return HomeRoute{}
	}
}

// Shell はアクティブなタブとドリルダウン画面を保持する。
type Shell struct {
	mu    sync.Mutex
	tab   Tab
	route Route
}

// NewShell はホームタブを表示した状態のシェルを生成する。
func NewShell() *Shell {
	return &Shell{tab: TabHome, route: HomeRoute{}}
}

// Current は表示中の画面を返す。
func (s *Shell) Current() Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// ActiveTab はアクティブなタブを返す。
func (s *Shell) ActiveTab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// SwitchTab はタブを切り替え、ドリルダウンをタブのルート画面へ戻す。
func (s *Shell) SwitchTab(tab Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = tab
	s.route = rootRoute(tab)
}

// OpenUniversity はホームタブ上で大学詳細へドリルダウンする。
func (s *Shell) OpenUniversity(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = TabHome
	s.route = UniversityDetailRoute{ID: id}
}

// OpenPost はコミュニティタブ上で投稿詳細へドリルダウンする。
func (s *Shell) OpenPost(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = TabCommunity
	s.route = PostDetailRoute{ID: id}
}

// OpenCreatePost はコミュニティタブ上で投稿作成画面を開く。
func (s *Shell) OpenCreatePost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = TabCommunity
	s.route = CreatePostRoute{}
}

// Back はドリルダウンを閉じ、アクティブなタブのルート画面へ戻る。
func (s *Shell) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = rootRoute(s.tab)
}
