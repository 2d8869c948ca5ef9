// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントと画面コントローラから利用する。
type MetricsCollector interface {
	RecordAPIRequest(operation string, status int, duration time.Duration)
	RecordRefresh(trigger string)
	RecordRealtimeEvent(channel string)
	RecordStaleResponseDropped()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests    *prometheus.CounterVec
	apiLatency     prometheus.Histogram
	refreshes      *prometheus.CounterVec
	realtimeEvents prometheus.Counter
	staleDropped   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uninavi_api_requests_total",
			Help: "API呼び出しの合計数（操作名・ステータスコード別）",
		}, []string{"operation", "status_code"}),
		apiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uninavi_api_latency_seconds",
			Help:    "API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uninavi_refresh_total",
			Help: "一覧・詳細の再取得の合計数（トリガー別: initial, filter, timer, push, manual）",
		}, []string{"trigger"}),
		realtimeEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uninavi_realtime_events_total",
			Help: "プッシュチャネルから受信したイベントの合計数",
		}),
		staleDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uninavi_stale_responses_dropped_total",
			Help: "より新しい結果の適用後に破棄された古いレスポンスの合計数",
		}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiLatency,
		c.refreshes,
		c.realtimeEvents,
		c.staleDropped,
	)

	return c
}

// RecordAPIRequest はAPI呼び出しの完了を記録する。
// statusが0の場合はトランスポート障害を示す。
func (c *Collector) RecordAPIRequest(operation string, status int, duration time.Duration) {
	c.apiRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	c.apiLatency.Observe(duration.Seconds())
}

// RecordRefresh は画面の再取得をトリガー別に記録する。
func (c *Collector) RecordRefresh(trigger string) {
	c.refreshes.WithLabelValues(trigger).Inc()
}

// RecordRealtimeEvent はプッシュチャネルからのイベント受信を記録する。
func (c *Collector) RecordRealtimeEvent(channel string) {
	c.realtimeEvents.Inc()
}

// RecordStaleResponseDropped は古いレスポンスの破棄を記録する。
func (c *Collector) RecordStaleResponseDropped() {
	c.staleDropped.Inc()
}

// Handler はメトリクス公開用のHTTPハンドラを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
