package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 存储指标
	storeOpDuration *prometheus.HistogramVec
	storeOpTotal    *prometheus.CounterVec

	// 评论业务指标
	commentsCreated     prometheus.Counter
	commentEdits        prometheus.Counter
	commentReactions    *prometheus.CounterVec
	commentReports      prometheus.Counter
	commentStatusChange *prometheus.CounterVec
}

// NewMetricsCollector 创建指标收集器，注册到 reg
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	f := promauto.With(reg)
	return &MetricsCollector{
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		storeOpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "collection"},
		),

		storeOpTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "collection", "status"},
		),

		commentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "comments_created_total",
			Help: "Total number of comments created",
		}),

		commentEdits: f.NewCounter(prometheus.CounterOpts{
			Name: "comment_edits_total",
			Help: "Total number of comment text edits recorded in history",
		}),

		commentReactions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comment_reactions_total",
				Help: "Total number of reaction mutations",
			},
			[]string{"kind", "action"},
		),

		commentReports: f.NewCounter(prometheus.CounterOpts{
			Name: "comment_reports_total",
			Help: "Total number of comment reports",
		}),

		commentStatusChange: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comment_status_changes_total",
				Help: "Total number of comment status changes",
			},
			[]string{"status"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration, responseSize int) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	if responseSize > 0 {
		m.httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
	}
}

// RecordStoreOp 记录存储操作指标
func (m *MetricsCollector) RecordStoreOp(operation, collection string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	m.storeOpTotal.WithLabelValues(operation, collection, status).Inc()
	m.storeOpDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}

// 以下业务指标方法允许 nil 接收者，未注入收集器时静默跳过

// CommentCreated 新评论
func (m *MetricsCollector) CommentCreated() {
	if m != nil {
		m.commentsCreated.Inc()
	}
}

// CommentEdited 评论文本修改
func (m *MetricsCollector) CommentEdited() {
	if m != nil {
		m.commentEdits.Inc()
	}
}

// CommentReaction 点赞/点踩变更，action 为 set 或 remove
func (m *MetricsCollector) CommentReaction(kind, action string) {
	if m != nil {
		m.commentReactions.WithLabelValues(kind, action).Inc()
	}
}

// CommentReported 新举报
func (m *MetricsCollector) CommentReported() {
	if m != nil {
		m.commentReports.Inc()
	}
}

// CommentStatusChanged 状态变更
func (m *MetricsCollector) CommentStatusChanged(status string) {
	if m != nil {
		m.commentStatusChange.WithLabelValues(status).Inc()
	}
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// 全局指标收集器实例
var GlobalCollector *MetricsCollector

// InitMetrics 初始化全局指标收集器，注册到默认 Registry
func InitMetrics() {
	GlobalCollector = NewMetricsCollector(prometheus.DefaultRegisterer)
}

// GetGlobalCollector 获取全局指标收集器
func GetGlobalCollector() *MetricsCollector {
	if GlobalCollector == nil {
		InitMetrics()
	}
	return GlobalCollector
}
