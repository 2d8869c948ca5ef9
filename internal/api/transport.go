package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedTransport は送信前にトークンバケットで待機するRoundTripper。
// 定期的なサイレント更新とプッシュ起因の更新が重なっても、
// バックエンドへのリクエストレートが上限を超えないようにする。
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// RoundTrip はレート制限の許可を待ってからリクエストを実行する。
// コンテキストがキャンセルされた場合は待機を中断してエラーを返す。
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient はタイムアウトとクライアント側レート制限付きの
// http.Clientを生成する。requestsPerSec が0以下の場合は制限しない。
func NewHTTPClient(timeout time.Duration, requestsPerSec float64) *http.Client {
	transport := http.DefaultTransport
	if requestsPerSec > 0 {
		transport = &rateLimitedTransport{
			base:    http.DefaultTransport,
			limiter: rate.NewLimiter(rate.Limit(requestsPerSec), int(requestsPerSec)+1),
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
