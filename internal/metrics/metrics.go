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
// アップロードパイプラインと転送クライアントから利用する。
type MetricsCollector interface {
	RecordUpload(outcome string)
	RecordRecordsForwarded(count int)
	RecordRecordsSkipped(count int)
	RecordForwardStatus(statusCode int)
	RecordForwardLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	uploads          *prometheus.CounterVec
	recordsForwarded prometheus.Counter
	recordsSkipped   prometheus.Counter
	forwardStatus    *prometheus.CounterVec
	forwardLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploadman_uploads_total",
			Help: "処理結果別のアップロード数",
		}, []string{"outcome"}),
		recordsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadman_records_forwarded_total",
			Help: "SaaS APIへ転送されたレコードの合計数",
		}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadman_records_skipped_total",
			Help: "抽出時に読み飛ばされた行の合計数",
		}),
		forwardStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploadman_forward_status_total",
			Help: "SaaS APIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		forwardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uploadman_forward_latency_seconds",
			Help:    "SaaS API転送のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.uploads,
		c.recordsForwarded,
		c.recordsSkipped,
		c.forwardStatus,
		c.forwardLatency,
	)

	return c
}

// RecordUpload はアップロードの処理結果を記録する。
func (c *Collector) RecordUpload(outcome string) {
	c.uploads.WithLabelValues(outcome).Inc()
}

// RecordRecordsForwarded は転送されたレコード数を記録する。
func (c *Collector) RecordRecordsForwarded(count int) {
	c.recordsForwarded.Add(float64(count))
}

// RecordRecordsSkipped は抽出時に読み飛ばされた行数を記録する。
func (c *Collector) RecordRecordsSkipped(count int) {
	c.recordsSkipped.Add(float64(count))
}

// RecordForwardStatus はSaaS APIのHTTPステータスコードを記録する。
func (c *Collector) RecordForwardStatus(statusCode int) {
	c.forwardStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordForwardLatency はSaaS API転送のレイテンシを記録する。
func (c *Collector) RecordForwardLatency(duration time.Duration) {
	c.forwardLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
