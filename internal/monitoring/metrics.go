package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 消息指标
	MessagesDeposited prometheus.Counter
	MessagesDelivered prometheus.Counter
	MessagesPurged    prometheus.Counter

	// 数据库连接池指标
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks prometheus.Counter
}

// NewMetrics 创建监控指标（promauto 自动注册到默认注册表）
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MessagesDeposited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatbox_messages_deposited_total",
			Help: "Total number of messages deposited",
		}),

		MessagesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatbox_messages_delivered_total",
			Help: "Total number of messages delivered by retrieval",
		}),

		MessagesPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatbox_messages_purged_total",
			Help: "Total number of expired messages purged by retention",
		}),

		DBConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chatbox_db_connections_active",
			Help: "Number of active database connections",
		}),

		DBConnectionsIdle: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chatbox_db_connections_idle",
			Help: "Number of idle database connections",
		}),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatbox_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatbox_panics_total",
			Help: "Total number of recovered panics",
		}),

		RateLimitBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chatbox_rate_limit_blocks_total",
			Help: "Total number of requests blocked by rate limiting",
		}),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordDBPoolStats 记录数据库连接池状态
func (m *Metrics) RecordDBPoolStats(active, idle int) {
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
