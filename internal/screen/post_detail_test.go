package screen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/uninavi/internal/model"
	"github.com/hitoshi/uninavi/internal/realtime"
	"github.com/hitoshi/uninavi/internal/security"
)

// mockPostAPI はPostAPIのテスト用モック。
type mockPostAPI struct {
	mu                sync.Mutex
	getPostFunc       func(ctx context.Context, id int, token string) (*model.Post, error)
	createCommentFunc func(ctx context.Context, postID int, input model.CreateCommentInput, token string) (*model.Comment, error)
	getPostCalls      int
	commentInputs     []model.CreateCommentInput
	commentTokens     []string
}

func (m *mockPostAPI) GetPost(ctx context.Context, id int, token string) (*model.Post, error) {
	m.mu.Lock()
	m.getPostCalls++
	m.mu.Unlock()
	if m.getPostFunc != nil {
		return m.getPostFunc(ctx, id, token)
	}
	return &model.Post{ID: id, Title: "質問", Content: "<p>本文</p>"}, nil
}

func (m *mockPostAPI) CreateComment(ctx context.Context, postID int, input model.CreateCommentInput, token string) (*model.Comment, error) {
	m.mu.Lock()
	m.commentInputs = append(m.commentInputs, input)
	m.commentTokens = append(m.commentTokens, token)
	m.mu.Unlock()
	if m.createCommentFunc != nil {
		return m.createCommentFunc(ctx, postID, input, token)
	}
	return &model.Comment{ID: 1, Content: input.Content}, nil
}

func (m *mockPostAPI) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getPostCalls
}

func (m *mockPostAPI) comments() []model.CreateCommentInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CreateCommentInput(nil), m.commentInputs...)
}

// mockSession はSessionReaderのテスト用モック。
type mockSession struct {
	authenticated bool
	token         string
}

func (m *mockSession) IsAuthenticated() bool { return m.authenticated }
func (m *mockSession) Token() string         { return m.token }

// fakePush は接続なしでチャネル購読を模倣するSubscriberのテストダブル。
type fakePush struct {
	mu           sync.Mutex
	channels     map[string]*realtime.Channel
	unsubscribed []string
}

func newFakePush() *fakePush {
	return &fakePush{channels: make(map[string]*realtime.Channel)}
}

func (f *fakePush) Subscribe(name string) (*realtime.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[name]; ok {
		return ch, nil
	}
	ch := realtime.NewChannel(name)
	f.channels[name] = ch
	return ch, nil
}

func (f *fakePush) Unsubscribe(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, name)
	f.unsubscribed = append(f.unsubscribed, name)
}

func (f *fakePush) channel(name string) *realtime.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[name]
}

func newTestPostDetail(api *mockPostAPI, session *mockSession, push Subscriber, rec Recorder, postID int) *PostDetail {
	return NewPostDetail(api, session, push, security.NewContentSanitizer(), testLogger(), rec, postID)
}

func TestPostDetail_Open_PushEventRefreshesSilently(t *testing.T) {
	api := &mockPostAPI{}
	push := newFakePush()
	rec := &mockRecorder{}
	d := newTestPostDetail(api, &mockSession{}, push, rec, 42)

	d.Open(context.Background())

	if d.IsLoading() {
		t.Fatal("初回取得後はローディング中でないべき")
	}
	ch := push.channel("community.42")
	if ch == nil {
		t.Fatal("community.42チャネルが購読されていない")
	}
	if ch.BoundEvents() != 1 {
		t.Fatalf("バインディング数が想定と異なる: %d", ch.BoundEvents())
	}

	ch.Emit("PostUpdated", json.RawMessage(`{"post_id":42}`))

	waitUntil(t, time.Second, func() bool {
		return api.getCalls() >= 2
	})
	if d.IsLoading() {
		t.Fatal("プッシュ起因の更新でローディング表示が変化した")
	}
	if len(rec.realtimeEvents) != 1 || rec.realtimeEvents[0] != "community.42" {
		t.Fatalf("イベント受信の記録が想定と異なる: %v", rec.realtimeEvents)
	}
}

func TestPostDetail_Close_RemovesAllBindings(t *testing.T) {
	api := &mockPostAPI{}
	push := newFakePush()
	d := newTestPostDetail(api, &mockSession{}, push, nil, 42)

	d.Open(context.Background())
	ch := push.channel("community.42")

	d.Close()

	if ch.BoundEvents() != 0 {
		t.Fatalf("Close後もバインディングが残っている: %d", ch.BoundEvents())
	}
	if len(push.unsubscribed) != 1 || push.unsubscribed[0] != "community.42" {
		t.Fatalf("購読解除の記録が想定と異なる: %v", push.unsubscribed)
	}

	// 旧イベントが届いても再取得は発生しない
	before := api.getCalls()
	ch.Emit("PostUpdated", nil)
	time.Sleep(20 * time.Millisecond)
	if api.getCalls() != before {
		t.Fatal("Close後のイベントで再取得が発生した")
	}
}

func TestPostDetail_SilentRefreshFailureKeepsContent(t *testing.T) {
	api := &mockPostAPI{}
	push := newFakePush()
	d := newTestPostDetail(api, &mockSession{}, push, nil, 42)

	d.Open(context.Background())
	if d.Post() == nil {
		t.Fatal("初回取得後に投稿が設定されていない")
	}

	api.mu.Lock()
	api.getPostFunc = func(ctx context.Context, id int, token string) (*model.Post, error) {
		return nil, errors.New("boom")
	}
	api.mu.Unlock()

	push.channel("community.42").Emit("PostUpdated", nil)
	waitUntil(t, time.Second, func() bool {
		return api.getCalls() >= 2
	})

	if d.Post() == nil {
		t.Fatal("サイレント更新の失敗で表示中の内容が失われた")
	}
}

func TestPostDetail_SanitizesPostAndComments(t *testing.T) {
	api := &mockPostAPI{
		getPostFunc: func(ctx context.Context, id int, token string) (*model.Post, error) {
			return &model.Post{
				ID:      id,
				Content: `<p>本文</p><script>alert(1)</script>`,
				Comments: []model.Comment{
					{
						ID:      1,
						Content: `<img src="javascript:alert(1)">コメント`,
						Comments: []model.Comment{
							{ID: 2, Content: `<iframe src="https://evil.example"></iframe>返信`},
						},
					},
				},
			}, nil
		},
	}
	d := newTestPostDetail(api, &mockSession{}, nil, nil, 1)

	d.Open(context.Background())

	post := d.Post()
	if post == nil {
		t.Fatal("投稿が取得されていない")
	}
	if strings.Contains(post.Content, "<script>") {
		t.Fatalf("本文にscriptタグが残っている: %q", post.Content)
	}
	if strings.Contains(post.Comments[0].Content, "javascript:") {
		t.Fatalf("コメントに危険なスキームが残っている: %q", post.Comments[0].Content)
	}
	if strings.Contains(post.Comments[0].Comments[0].Content, "<iframe") {
		t.Fatalf("返信にiframeタグが残っている: %q", post.Comments[0].Comments[0].Content)
	}
}

func TestPostDetail_SubmitComment_RequiresLogin(t *testing.T) {
	api := &mockPostAPI{}
	d := newTestPostDetail(api, &mockSession{authenticated: false}, nil, nil, 1)

	d.SetDraft("はじめまして")
	err := d.SubmitComment(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginRequired {
		t.Fatalf("ログイン必須エラーが返されていない: %v", err)
	}
	if len(api.comments()) != 0 {
		t.Fatal("未ログインでネットワーク呼び出しが発生した")
	}
	if d.Draft() != "はじめまして" {
		t.Fatal("失敗時に下書きが失われた")
	}
}

func TestPostDetail_SubmitComment_EmptyDraft(t *testing.T) {
	api := &mockPostAPI{}
	d := newTestPostDetail(api, &mockSession{authenticated: true, token: "tok"}, nil, nil, 1)

	d.SetDraft("   ")
	err := d.SubmitComment(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidInput {
		t.Fatalf("入力エラーが返されていない: %v", err)
	}
	if len(api.comments()) != 0 {
		t.Fatal("空の下書きでネットワーク呼び出しが発生した")
	}
}

func TestPostDetail_SubmitComment_ReplyForwardsParent(t *testing.T) {
	api := &mockPostAPI{}
	session := &mockSession{authenticated: true, token: "tok"}
	d := newTestPostDetail(api, session, nil, nil, 1)

	if err := d.ReplyTo(5); err != nil {
		t.Fatalf("返信対象の設定に失敗した: %v", err)
	}
	d.SetDraft("同じく知りたいです")
	if err := d.SubmitComment(context.Background()); err != nil {
		t.Fatalf("コメント投稿に失敗した: %v", err)
	}

	inputs := api.comments()
	if len(inputs) != 1 {
		t.Fatalf("コメント送信回数が想定と異なる: %d", len(inputs))
	}
	if inputs[0].CommentID == nil || *inputs[0].CommentID != 5 {
		t.Fatalf("返信先コメントIDが転送されていない: %+v", inputs[0])
	}
	if api.commentTokens[0] != "tok" {
		t.Fatalf("セッショントークンが付与されていない: %q", api.commentTokens[0])
	}

	// 成功時は下書きと返信対象がクリアされ、サイレント更新が走る
	if d.Draft() != "" {
		t.Fatal("成功後も下書きが残っている")
	}
	if api.getCalls() != 1 {
		t.Fatalf("成功後の再取得回数が想定と異なる: %d", api.getCalls())
	}
}

func TestPostDetail_SubmitComment_FailurePreservesDraft(t *testing.T) {
	api := &mockPostAPI{
		createCommentFunc: func(ctx context.Context, postID int, input model.CreateCommentInput, token string) (*model.Comment, error) {
			return nil, model.NewRequestFailedError("createComment", 422, "content too long")
		},
	}
	d := newTestPostDetail(api, &mockSession{authenticated: true, token: "tok"}, nil, nil, 1)

	d.SetDraft("長すぎる本文")
	err := d.SubmitComment(context.Background())
	if err == nil {
		t.Fatal("送信失敗がエラーとして返されていない")
	}
	if d.Draft() != "長すぎる本文" {
		t.Fatal("失敗時に下書きが失われた")
	}
	if api.getCalls() != 0 {
		t.Fatal("失敗時に再取得が発生した")
	}
}

func TestPostDetail_ReplyTo_RequiresLogin(t *testing.T) {
	d := newTestPostDetail(&mockPostAPI{}, &mockSession{authenticated: false}, nil, nil, 1)

	err := d.ReplyTo(5)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginRequired {
		t.Fatalf("ログイン必須エラーが返されていない: %v", err)
	}
}
