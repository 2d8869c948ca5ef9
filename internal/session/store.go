package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/uninavi/internal/model"
)

// AuthAPI はセッション操作に必要なAPIクライアントの操作を表す。
type AuthAPI interface {
	LoginWithGoogle(ctx context.Context, idToken string) (*model.LoginResponse, error)
	Logout(ctx context.Context, token string) error
}

// Snapshot はセッションの読み取り専用ビュー。
// 画面側はこれを参照するだけで、セッションを直接変更することはない。
type Snapshot struct {
	User            *model.User
	Token           string
	Loading         bool
	IsAuthenticated bool
}

// Store は認証セッションを保持するプロセス内で唯一のストア。
// ローカルストレージからの復元、ログイン（外部IdPトークンの交換）、
// ログアウトを提供する。変更はすべてStore自身が行う。
type Store struct {
	api     AuthAPI
	storage Storage
	logger  *slog.Logger

	mu      sync.Mutex
	user    *model.User
	token   string
	loading bool

	restoreOnce sync.Once
}

// NewStore はStoreの新しいインスタンスを生成する。
// Restoreが完了するまでloadingはtrueのまま。
func NewStore(api AuthAPI, storage Storage, logger *slog.Logger) *Store {
	return &Store{
		api:     api,
		storage: storage,
		logger:  logger,
		loading: true,
	}
}

// Restore は起動時に1回だけローカルストレージからセッションを復元する。
// トークンとユーザーの両方が存在する場合のみ復元し、
// 結果にかかわらずloadingをfalseにする。2回目以降の呼び出しは何もしない。
func (s *Store) Restore() {
	s.restoreOnce.Do(func() {
		defer func() {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
		}()

		token, err := s.storage.LoadToken()
		if err != nil {
			s.logger.Error("トークンの復元に失敗しました", slog.String("error", err.Error()))
			return
		}
		user, err := s.storage.LoadUser()
		if err != nil {
			s.logger.Error("ユーザーの復元に失敗しました", slog.String("error", err.Error()))
			return
		}

		// 両方そろっている場合のみ認証済みとして扱う
		if token == "" || user == nil {
			return
		}

		s.mu.Lock()
		s.token = token
		s.user = user
		s.mu.Unlock()

		s.logger.Info("セッションを復元しました", slog.String("user", user.Name))
	})
}

// Login は外部IdPの資格情報をセッショントークンへ交換し、
// 成功時はメモリとローカルストレージの両方へ保存する。
// 失敗時は状態を変更せず、エラーをそのまま呼び出し元へ返す。
func (s *Store) Login(ctx context.Context, idToken string) (*model.LoginResponse, error) {
	resp, err := s.api.LoginWithGoogle(ctx, idToken)
	if err != nil {
		s.logger.Error("ログインに失敗しました", slog.String("error", err.Error()))
		return nil, err
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.user = resp.User
	s.mu.Unlock()

	if err := s.storage.Save(resp.AccessToken, resp.User); err != nil {
		// 永続化失敗はメモリ上のセッションを妨げない
		s.logger.Error("セッションの保存に失敗しました", slog.String("error", err.Error()))
	}

	s.logger.Info("ログインしました", slog.String("user", resp.User.Name))
	return resp, nil
}

// Logout はリモートのログアウトを試みたうえで、結果にかかわらず
// メモリとローカルストレージのセッションを無条件にクリアする。
// リモート呼び出しの失敗（401を含む）は記録するのみで呼び出し元へは返さない。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			// ログアウトAPIが失敗してもローカルのクリアは続行する
			s.logger.Error("ログアウトAPIの呼び出しに失敗しました", slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	if err := s.storage.Clear(); err != nil {
		s.logger.Error("セッションの削除に失敗しました", slog.String("error", err.Error()))
	}

	s.logger.Info("ログアウトしました")
}

// Snapshot は現在のセッション状態の読み取り専用コピーを返す。
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		User:            s.user,
		Token:           s.token,
		Loading:         s.loading,
		IsAuthenticated: s.user != nil,
	}
}

// Token は現在のセッショントークンを返す。未ログインの場合は空文字列。
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// IsAuthenticated はユーザーがログイン済みかどうかを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}
