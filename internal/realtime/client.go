// Package realtime はマネージドなプッシュメッセージングサービス
// （Pusherプロトコル互換）へのチャネル購読クライアントを提供する。
// チャネル購読とイベントごとのコールバック登録のみを扱い、
// 再接続はトランスポートに任せる（独自の再接続ポリシーは持たない）。
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Config はプッシュチャネル接続の設定を表す。
type Config struct {
	AppKey  string
	Cluster string
	Scheme  string // "https" の場合はwss、それ以外はws

	// Endpoint はテスト用に接続先URLを直接指定する。
	// 空の場合はAppKey/Clusterから標準のエンドポイントを組み立てる。
	Endpoint string
}

// endpointURL は接続先のWebSocket URLを返す。
func (c Config) endpointURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	scheme := "ws"
	if c.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://ws-%s.pusher.com/app/%s?protocol=7&client=uninavi&version=1.0",
		scheme, c.Cluster, c.AppKey)
}

// frame はPusherプロトコルのメッセージフレームを表す。
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Handler はチャネルイベントのコールバック。
// 受信ゴルーチン上で呼び出されるため、重い処理を行ってはならない。
type Handler func(data json.RawMessage)

// Channel は購読済みチャネルのハンドルを表す。
type Channel struct {
	name   string
	client *Client

	mu       sync.Mutex
	bindings map[string]Handler
}

// NewChannel は接続に紐づかないチャネルハンドルを生成する。
// Bindしたコールバックは Emit で呼び出せる。Subscriberの
// テストダブルが返すハンドルとして使用する。
func NewChannel(name string) *Channel {
	return &Channel{
		name:     name,
		bindings: make(map[string]Handler),
	}
}

// Emit は指定イベントに登録済みのコールバックを同期的に呼び出す。
// 未登録のイベントは無視する。
func (ch *Channel) Emit(event string, data json.RawMessage) {
	ch.dispatch(event, data)
}

// Name はチャネル名を返す。
func (ch *Channel) Name() string {
	return ch.name
}

// Bind は指定イベント名のコールバックを登録する。
// 同名イベントへの再登録は前のコールバックを置き換える。
func (ch *Channel) Bind(event string, fn Handler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.bindings[event] = fn
}

// Unbind は指定イベント名のコールバックを解除する。
func (ch *Channel) Unbind(event string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	delete(ch.bindings, event)
}

// BoundEvents は登録中のイベント数を返す。購読解除の検証に使用する。
func (ch *Channel) BoundEvents() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.bindings)
}

func (ch *Channel) dispatch(event string, data json.RawMessage) {
	ch.mu.Lock()
	fn := ch.bindings[event]
	ch.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// Client はプッシュメッセージングサービスへのプロセス内で唯一の接続。
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex // WriteJSONの直列化

	mu       sync.Mutex
	channels map[string]*Channel
	closed   bool
}

// New は接続を確立し、受信ループを開始する。
// 接続・切断・エラーはログに記録するのみで、それ以上の制御は行わない。
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(cfg.endpointURL(), nil)
	if err != nil {
		logger.Error("プッシュチャネルへの接続に失敗しました", slog.String("error", err.Error()))
		return nil, fmt.Errorf("プッシュチャネルへの接続に失敗しました: %w", err)
	}

	c := &Client{
		conn:     conn,
		logger:   logger,
		channels: make(map[string]*Channel),
	}
	go c.readLoop()
	return c, nil
}

// Subscribe は指定名のチャネルを購読してハンドルを返す。
// すでに購読済みの場合は既存のハンドルを返す。
func (c *Client) Subscribe(name string) (*Channel, error) {
	c.mu.Lock()
	if ch, ok := c.channels[name]; ok {
		c.mu.Unlock()
		return ch, nil
	}
	ch := &Channel{
		name:     name,
		client:   c,
		bindings: make(map[string]Handler),
	}
	c.channels[name] = ch
	c.mu.Unlock()

	if err := c.send(frame{
		Event: "pusher:subscribe",
		Data:  mustMarshal(map[string]string{"channel": name}),
	}); err != nil {
		c.mu.Lock()
		delete(c.channels, name)
		c.mu.Unlock()
		return nil, err
	}

	c.logger.Info("チャネルを購読しました", slog.String("channel", name))
	return ch, nil
}

// Unsubscribe は指定名のチャネルの購読を解除し、バインディングを破棄する。
// 未購読のチャネル名は無視する。
func (c *Client) Unsubscribe(name string) {
	c.mu.Lock()
	ch, ok := c.channels[name]
	if ok {
		delete(c.channels, name)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	ch.mu.Lock()
	ch.bindings = make(map[string]Handler)
	ch.mu.Unlock()

	if err := c.send(frame{
		Event: "pusher:unsubscribe",
		Data:  mustMarshal(map[string]string{"channel": name}),
	}); err != nil {
		c.logger.Error("購読解除の送信に失敗しました",
			slog.String("channel", name),
			slog.String("error", err.Error()),
		)
	}

	c.logger.Info("チャネルの購読を解除しました", slog.String("channel", name))
}

// BoundEvents は指定チャネルに登録中のイベント数を返す。
// 未購読のチャネルは0を返す。
func (c *Client) BoundEvents(name string) int {
	c.mu.Lock()
	ch, ok := c.channels[name]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return ch.BoundEvents()
}

// Close は接続を閉じる。以降の購読・送信は失敗する。
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) send(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

// readLoop は受信フレームをイベント名で振り分ける。
// プロトコルイベント（接続確立・ping・エラー）はここで処理し、
// それ以外はチャネルのバインディングへディスパッチする。
func (c *Client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				c.logger.Info("プッシュチャネルを切断しました")
			} else {
				c.logger.Error("プッシュチャネルの受信に失敗しました", slog.String("error", err.Error()))
			}
			return
		}

		switch f.Event {
		case "pusher:connection_established":
			c.logger.Info("プッシュチャネルに接続しました")
		case "pusher:ping":
			if err := c.send(frame{Event: "pusher:pong"}); err != nil {
				c.logger.Error("pongの送信に失敗しました", slog.String("error", err.Error()))
			}
		case "pusher:error":
			c.logger.Error("プッシュチャネルがエラーを通知しました", slog.String("data", string(f.Data)))
		default:
			if f.Channel == "" {
				continue
			}
			c.mu.Lock()
			ch := c.channels[f.Channel]
			c.mu.Unlock()
			if ch != nil {
				ch.dispatch(f.Event, f.Data)
			}
		}
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// 固定構造のマップのみ渡すためここには到達しない
		panic(err)
	}
	return b
}
