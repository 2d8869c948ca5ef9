package screen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/uninavi/internal/model"
	"github.com/hitoshi/uninavi/internal/realtime"
	"github.com/hitoshi/uninavi/internal/security"
)

// postUpdatedEvent は投稿更新を通知するプッシュイベント名。
const postUpdatedEvent = "PostUpdated"

// PostAPI は投稿詳細画面が必要とするAPIクライアントの操作を表す。
type PostAPI interface {
	GetPost(ctx context.Context, id int, token string) (*model.Post, error)
	CreateComment(ctx context.Context, postID int, input model.CreateCommentInput, token string) (*model.Comment, error)
}

// SessionReader は画面が参照するセッションの読み取り操作を表す。
// 画面はセッションを読むだけで、変更は行わない。
type SessionReader interface {
	IsAuthenticated() bool
	Token() string
}

// Subscriber はプッシュチャネルの購読操作を表す。
type Subscriber interface {
	Subscribe(name string) (*realtime.Channel, error)
	Unsubscribe(name string)
}

// PostDetail は投稿詳細画面のコントローラ。
// マウント時に community.{postId} チャネルを購読し、PostUpdated イベントで
// ローディング表示なしに再取得する。Closeで購読は完全に解除される。
// 投稿IDが変わる場合は古いコントローラをCloseしてから新しく生成すること
// （アクティブな購読は常に最大1つ）。
type PostDetail struct {
	api       PostAPI
	session   SessionReader
	push      Subscriber
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
	metrics   Recorder
	guard     fetchGuard

	postID      int
	channelName string
	channel     *realtime.Channel

	mu         sync.Mutex
	post       *model.Post
	loading    bool
	draft      string
	replyTo    *int
	submitting bool
}

// NewPostDetail は投稿詳細画面のコントローラを生成する。
// push と rec はnilでもよい。
func NewPostDetail(api PostAPI, session SessionReader, push Subscriber, sanitizer security.ContentSanitizerService, logger *slog.Logger, rec Recorder, postID int) *PostDetail {
	return &PostDetail{
		api:         api,
		session:     session,
		push:        push,
		sanitizer:   sanitizer,
		logger:      logger,
		metrics:     rec,
		postID:      postID,
		channelName: fmt.Sprintf("community.%d", postID),
		loading:     true,
	}
}

// Open は初回取得とプッシュチャネル購読を行う。
// 購読の失敗は記録するのみで、画面の表示は継続する。
func (d *PostDetail) Open(ctx context.Context) {
	d.refresh(ctx, TriggerInitial)

	if d.push == nil {
		return
	}
	ch, err := d.push.Subscribe(d.channelName)
	if err != nil {
		d.logger.Error("プッシュチャネルの購読に失敗しました",
			slog.String("channel", d.channelName),
			slog.String("error", err.Error()),
		)
		return
	}
	d.channel = ch

	ch.Bind(postUpdatedEvent, func(data json.RawMessage) {
		recordRealtime(d.metrics, d.channelName)
		// 受信ゴルーチンを塞がないよう、再取得はバックグラウンドで行う
		go d.refresh(context.Background(), TriggerPush)
	})
}

// Close はプッシュチャネルのバインディングと購読を解除する。
// アンマウント時・投稿ID変更時に必ず呼ぶこと。呼び出し後、
// 旧IDに対するバインディングはひとつも残らない。
func (d *PostDetail) Close() {
	if d.push == nil {
		return
	}
	if d.channel != nil {
		d.channel.Unbind(postUpdatedEvent)
		d.channel = nil
	}
	d.push.Unsubscribe(d.channelName)
}

// refresh はシーケンスガード付きで投稿詳細を再取得する。
// ログイン済みの場合はトークンを付与して取得する（自分の状態を含む応答のため）。
// サイレント更新の失敗は表示中の内容を維持する。
func (d *PostDetail) refresh(ctx context.Context, trigger Trigger) {
	seq := d.guard.begin()
	recordRefresh(d.metrics, trigger)

	if trigger == TriggerInitial {
		d.mu.Lock()
		d.loading = true
		d.mu.Unlock()
	}

	post, err := d.api.GetPost(ctx, d.postID, d.session.Token())

	d.mu.Lock()
	defer d.mu.Unlock()
	if trigger == TriggerInitial {
		d.loading = false
	}

	if !d.guard.commit(seq) {
		recordStale(d.metrics)
		return
	}

	if err != nil {
		d.logger.Error("投稿詳細の取得に失敗しました",
			slog.Int("post_id", d.postID),
			slog.String("error", err.Error()),
		)
		// 初回のみ空状態へ縮退する。サイレント更新は表示中の内容を保持する。
		if trigger == TriggerInitial {
			d.post = nil
		}
		return
	}

	d.sanitizePost(post)
	d.post = post
}

// sanitizePost は投稿本文と全コメントのHTMLを表示前にサニタイズする。
func (d *PostDetail) sanitizePost(p *model.Post) {
	if p == nil || d.sanitizer == nil {
		return
	}
	p.Content = d.sanitizer.Sanitize(p.Content)
	for i := range p.Comments {
		p.Comments[i].Content = d.sanitizer.Sanitize(p.Comments[i].Content)
		for j := range p.Comments[i].Comments {
			p.Comments[i].Comments[j].Content = d.sanitizer.Sanitize(p.Comments[i].Comments[j].Content)
		}
	}
}

// SetDraft はコメントの下書きを設定する。
func (d *PostDetail) SetDraft(content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draft = content
}

// Draft は現在のコメント下書きを返す。
func (d *PostDetail) Draft() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// ReplyTo は返信対象のコメントを設定する。
// 未ログインの場合はネットワーク呼び出しなしでログイン必須エラーを返す。
func (d *PostDetail) ReplyTo(commentID int) error {
	if !d.session.IsAuthenticated() {
		return model.NewLoginRequiredError()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replyTo = &commentID
	return nil
}

// CancelReply は返信対象と下書きをクリアする。
func (d *PostDetail) CancelReply() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replyTo = nil
	d.draft = ""
}

// SubmitComment は下書きをコメントとして投稿する。
// 未ログインの場合はネットワーク呼び出しなしでログイン必須エラーを返す。
// 返信対象が設定されている場合は comment_id 付きで送信され、
// 親コメントの返信リストにぶら下がる。
// 失敗時は下書きを保持したままエラーを返す（再試行できるように）。
// 成功時は下書きと返信対象をクリアし、サイレント更新を行う。
func (d *PostDetail) SubmitComment(ctx context.Context) error {
	d.mu.Lock()
	draft := strings.TrimSpace(d.draft)
	replyTo := d.replyTo
	d.mu.Unlock()

	if draft == "" {
		return model.NewInvalidInputError("コメントを入力してください")
	}
	if !d.session.IsAuthenticated() {
		return model.NewLoginRequiredError()
	}

	d.mu.Lock()
	d.submitting = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.submitting = false
		d.mu.Unlock()
	}()

	input := model.CreateCommentInput{Content: draft, CommentID: replyTo}
	if _, err := d.api.CreateComment(ctx, d.postID, input, d.session.Token()); err != nil {
		d.logger.Error("コメントの投稿に失敗しました",
			slog.Int("post_id", d.postID),
			slog.String("error", err.Error()),
		)
		return err
	}

	d.mu.Lock()
	d.draft = ""
	d.replyTo = nil
	d.mu.Unlock()

	d.refresh(ctx, TriggerManual)
	return nil
}

// Post は表示中の投稿詳細を返す。取得前・失敗時はnil。
func (d *PostDetail) Post() *model.Post {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.post
}

// IsLoading は全画面ローディングを表示すべきかを返す。
func (d *PostDetail) IsLoading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// IsSubmitting はコメント送信中かどうかを返す。
func (d *PostDetail) IsSubmitting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitting
}
