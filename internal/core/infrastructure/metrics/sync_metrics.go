package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weisyn/contribsync/pkg/types"
)

// Namespace 所有指标的命名空间
const Namespace = "contribsync"

// SyncMetrics 同步过程指标
//
// 所有方法对 nil 接收者安全，未启用指标时调用方无需判断。
type SyncMetrics struct {
	jobsFinished     *prometheus.CounterVec
	entityResults    *prometheus.CounterVec
	entityDuration   prometheus.Histogram
	externalAttempts *prometheus.CounterVec
	externalRetries  *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

// NewSyncMetrics 在给定注册表上创建同步指标
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)

	return &SyncMetrics{
		jobsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sync",
				Name:      "jobs_finished_total",
				Help:      "Total number of sync jobs that reached a terminal state",
			},
			[]string{"kind", "status"},
		),
		entityResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sync",
				Name:      "entity_results_total",
				Help:      "Per-student sync outcomes",
			},
			[]string{"result"},
		),
		entityDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "sync",
				Name:      "entity_duration_seconds",
				Help:      "Time spent syncing a single student",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
		),
		externalAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "external",
				Name:      "attempts_total",
				Help:      "External API call attempts by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		externalRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "external",
				Name:      "retries_total",
				Help:      "External API retries scheduled after transient failures",
			},
			[]string{"operation"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "sync",
				Name:      "queue_depth",
				Help:      "Number of jobs waiting in the queue",
			},
		),
	}
}

// JobFinished 记录任务进入终态
func (m *SyncMetrics) JobFinished(job types.Job) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
}

// EntityFinished 记录单个学生的处理结果
func (m *SyncMetrics) EntityFinished(status types.EntityStatus) {
	if m == nil {
		return
	}
	switch status.Status {
	case types.EntityCompleted, types.EntityFailed:
		m.entityResults.WithLabelValues(string(status.Status)).Inc()
	}
}

// ObserveEntityDuration 记录单个学生同步耗时
func (m *SyncMetrics) ObserveEntityDuration(seconds float64) {
	if m == nil {
		return
	}
	m.entityDuration.Observe(seconds)
}

// ExternalAttempt 记录一次外部调用尝试
// outcome: ok | rate_limited | forbidden | transient
func (m *SyncMetrics) ExternalAttempt(operation, outcome string) {
	if m == nil {
		return
	}
	m.externalAttempts.WithLabelValues(operation, outcome).Inc()
}

// ExternalRetry 记录一次重试
func (m *SyncMetrics) ExternalRetry(operation string) {
	if m == nil {
		return
	}
	m.externalRetries.WithLabelValues(operation).Inc()
}

// SetQueueDepth 更新等待队列长度
func (m *SyncMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
