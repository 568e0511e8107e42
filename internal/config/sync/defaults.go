// Package sync provides default configuration values for contribution synchronization.
package sync

import "time"

// 批次大小的允许范围
const (
	MinBatchSize = 1
	MaxBatchSize = 50
)

// 同步配置默认值
const (
	// defaultBatchSize 默认批次大小设为10
	// 原因：同一时刻最多10个外部请求，远低于GitHub的并发限制
	defaultBatchSize = 10

	// defaultPacingDelay 批次之间等待1秒
	// 原因：给外部API的速率窗口留出恢复时间
	defaultPacingDelay = 1000 * time.Millisecond

	// defaultMaxQueueDepth 等待队列最大深度设为10
	defaultMaxQueueDepth = 10

	// defaultJobHistoryLimit 已结束任务最多保留50个
	// 原因：任务只是进程内状态，保留少量历史供查询即可
	defaultJobHistoryLimit = 50

	// defaultWindowDays 贡献统计回溯365天
	defaultWindowDays = 365
)
