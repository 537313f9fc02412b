package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"statement"},
	)

	// 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow database queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	// 打卡写入计数
	HabitLogUpsertCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_log_upsert_count",
			Help: "Total number of habit log upserts",
		},
		[]string{"status"}, // status: success, failed
	)

	// 报表导出计数
	ReportExportCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_export_count",
			Help: "Total number of generated reports",
		},
		[]string{"format", "status"}, // format: csv, pdf
	)

	// 登录结果计数
	LoginAttemptCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_attempt_count",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // result: success, invalid, throttled
	)

	// 事件发布计数
	EventPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_count",
			Help: "Total number of domain events published to the broker",
		},
		[]string{"routing_key", "status"},
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(statement string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(statement).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// IncrementHabitLogUpsert 增加打卡写入计数
func IncrementHabitLogUpsert(status string) {
	HabitLogUpsertCount.WithLabelValues(status).Inc()
}

// IncrementReportExport 增加报表导出计数
func IncrementReportExport(format, status string) {
	ReportExportCount.WithLabelValues(format, status).Inc()
}

// IncrementLoginAttempt 增加登录计数
func IncrementLoginAttempt(result string) {
	LoginAttemptCount.WithLabelValues(result).Inc()
}

// IncrementEventPublish 增加事件发布计数
func IncrementEventPublish(routingKey, status string) {
	EventPublishCount.WithLabelValues(routingKey, status).Inc()
}
