// Package metrics 提供Prometheus指标注册与同步过程指标
//
// 所有指标注册到模块自有的注册表，/metrics 端点从该注册表采集，
// 测试可以各自创建注册表而不污染全局默认注册表。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/types"
)

// Module 返回 metrics 模块的 fx.Option
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			NewRegistry,
			func(reg *prometheus.Registry) prometheus.Registerer { return reg },
			func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
			func(reg prometheus.Registerer) *SyncMetrics { return NewSyncMetrics(reg) },
		),
		fx.Invoke(SubscribeSyncEvents),
	)
}

// NewRegistry 创建带有Go运行时和进程采集器的注册表
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// SubscribeInput 事件订阅依赖
type SubscribeInput struct {
	fx.In

	Bus     event.EventBus
	Metrics *SyncMetrics
	Logger  log.Logger `optional:"true"`
}

// SubscribeSyncEvents 从进度事件中统计任务终态和学生结果
func SubscribeSyncEvents(in SubscribeInput) error {
	onFinished := func(job types.Job) { in.Metrics.JobFinished(job) }
	for _, ev := range []event.EventType{
		contribution.EventJobCompleted,
		contribution.EventJobFailed,
		contribution.EventJobCancelled,
	} {
		if err := in.Bus.Subscribe(ev, onFinished); err != nil {
			return err
		}
	}

	if err := in.Bus.Subscribe(contribution.EventStudentUpdated, func(_ string, status types.EntityStatus) {
		in.Metrics.EntityFinished(status)
	}); err != nil {
		return err
	}

	if in.Logger != nil {
		in.Logger.Debug("同步指标已订阅进度事件")
	}
	return nil
}
