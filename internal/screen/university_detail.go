package screen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/uninavi/internal/model"
)

// UniversityAPI は大学詳細画面が必要とするAPIクライアントの操作を表す。
type UniversityAPI interface {
	GetUniversity(ctx context.Context, id int) (*model.University, error)
}

// UniversityDetail は大学詳細画面のコントローラ。
// ナビゲーションごとに1回、単一のドキュメントを取得する。
type UniversityDetail struct {
	api     UniversityAPI
	logger  *slog.Logger
	metrics Recorder
	guard   fetchGuard

	universityID int

	mu         sync.Mutex
	university *model.University
	loading    bool
}

// NewUniversityDetail は大学詳細画面のコントローラを生成する。
func NewUniversityDetail(api UniversityAPI, logger *slog.Logger, rec Recorder, universityID int) *UniversityDetail {
	return &UniversityDetail{
		api:          api,
		logger:       logger,
		metrics:      rec,
		universityID: universityID,
		loading:      true,
	}
}

// Load は大学詳細を取得する。取得失敗時は詳細なし（空状態）へ縮退する。
func (d *UniversityDetail) Load(ctx context.Context) {
	seq := d.guard.begin()
	recordRefresh(d.metrics, TriggerInitial)

	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	uni, err := d.api.GetUniversity(ctx, d.universityID)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false

	if !d.guard.commit(seq) {
		recordStale(d.metrics)
		return
	}

	if err != nil {
		d.logger.Error("大学詳細の取得に失敗しました",
			slog.Int("university_id", d.universityID),
			slog.String("error", err.Error()),
		)
		d.university = nil
		return
	}
	d.university = uni
}

// University は表示中の大学詳細を返す。取得前・失敗時はnil。
func (d *UniversityDetail) University() *model.University {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.university
}

// IsLoading は全画面ローディングを表示すべきかを返す。
func (d *UniversityDetail) IsLoading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}
