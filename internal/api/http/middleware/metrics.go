package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weisyn/contribsync/internal/core/infrastructure/metrics"
)

// 未匹配到路由的请求统一归到该标签，避免路径标签无限增长
const unmatchedRoute = "unmatched"

// Metrics 指标收集中间件
// 收集API性能指标，用于监控和告警
type Metrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.SummaryVec
	inFlight        prometheus.Gauge
}

// NewMetrics 创建指标中间件，指标注册到给定注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
			},
			[]string{"method", "path"},
		),
		responseSize: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace:  metrics.Namespace,
				Subsystem:  "api",
				Name:       "response_size_bytes",
				Help:       "API response size in bytes",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"method", "path"},
		),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "api",
			Name:      "requests_in_flight",
			Help:      "Number of API requests being served",
		}),
	}
}

// Middleware 返回Gin中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		method := c.Request.Method

		m.requestCounter.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.responseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
