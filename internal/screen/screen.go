// Package screen は一覧・詳細画面のコントローラを提供する。
// 各画面はAPIクライアントとフィルタ・ソートコントローラ
// （投稿詳細はさらにプッシュチャネル）を組み合わせ、
// 取得したデータと読み込み状態を保持する。
//
// すべての再取得はシーケンス番号ガードを通る。タイマー起因と
// プッシュ起因の更新は同一の更新関数へ収束し、取得が重なっても
// 古いレスポンスがより新しい結果を上書きすることはない。
package screen

import "sync"

// Trigger は再取得のきっかけを表す。
type Trigger string

const (
	// TriggerInitial は画面マウント時の初回取得。全画面ローディングを表示する。
	TriggerInitial Trigger = "initial"
	// TriggerFilter はフィルタ・ソート変更による再取得。更新中表示のみ。
	TriggerFilter Trigger = "filter"
	// TriggerTimer は定期的なサイレント更新。ローディング表示なし。
	TriggerTimer Trigger = "timer"
	// TriggerPush はプッシュチャネルのイベントによるサイレント更新。
	TriggerPush Trigger = "push"
	// TriggerManual は操作成功後（コメント投稿など）のサイレント更新。
	TriggerManual Trigger = "manual"
)

// Recorder は画面の再取得メトリクスの記録インターフェース。nil可。
type Recorder interface {
	RecordRefresh(trigger string)
	RecordRealtimeEvent(channel string)
	RecordStaleResponseDropped()
}

// fetchGuard は単調増加のシーケンス番号で取得結果の適用順を制御する。
// commit はより新しい結果がすでに適用済みの場合にfalseを返し、
// 呼び出し元は古いレスポンスを破棄する。
type fetchGuard struct {
	mu      sync.Mutex
	nextSeq uint64
	applied uint64
}

// begin は新しい取得のシーケンス番号を払い出す。
func (g *fetchGuard) begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSeq++
	return g.nextSeq
}

// commit は指定シーケンスの結果を適用してよいかを返す。
// 適用を許可した場合、それより古いシーケンスは以後すべて拒否される。
func (g *fetchGuard) commit(seq uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq <= g.applied {
		return false
	}
	g.applied = seq
	return true
}

// recordRefresh はRecorderがnilでも安全に再取得を記録する。
func recordRefresh(r Recorder, trigger Trigger) {
	if r != nil {
		r.RecordRefresh(string(trigger))
	}
}

// recordStale はRecorderがnilでも安全に古いレスポンスの破棄を記録する。
func recordStale(r Recorder) {
	if r != nil {
		r.RecordStaleResponseDropped()
	}
}

// recordRealtime はRecorderがnilでも安全にイベント受信を記録する。
func recordRealtime(r Recorder, channel string) {
	if r != nil {
		r.RecordRealtimeEvent(channel)
	}
}
