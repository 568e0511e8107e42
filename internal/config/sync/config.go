package sync

import (
	"time"

	configtypes "github.com/weisyn/contribsync/pkg/types"
)

// SyncOptions 贡献同步配置选项
type SyncOptions struct {
	// === 批处理配置 ===
	BatchSize   int           `json:"batch_size"`   // 默认批次大小
	PacingDelay time.Duration `json:"pacing_delay"` // 批次之间的等待时间

	// === 任务队列配置 ===
	MaxQueueDepth   int `json:"max_queue_depth"`   // 等待队列最大深度
	JobHistoryLimit int `json:"job_history_limit"` // 保留的已结束任务数量

	// === 统计窗口 ===
	WindowDays int `json:"window_days"` // 贡献统计的回溯天数
}

// Config 同步配置实现
type Config struct {
	options *SyncOptions
}

// New 创建同步配置实现
func New(userConfig interface{}) *Config {
	// 1. 先创建完整的默认配置
	defaultOptions := createDefaultSyncOptions()

	// 2. 用户配置覆盖默认值
	if userConfig != nil {
		applyUserSyncConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

// NewFromOptions 从SyncOptions创建配置实现
func NewFromOptions(options *SyncOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}

// createDefaultSyncOptions 创建默认同步配置
func createDefaultSyncOptions() *SyncOptions {
	return &SyncOptions{
		BatchSize:       defaultBatchSize,
		PacingDelay:     defaultPacingDelay,
		MaxQueueDepth:   defaultMaxQueueDepth,
		JobHistoryLimit: defaultJobHistoryLimit,
		WindowDays:      defaultWindowDays,
	}
}

// applyUserSyncConfig 应用用户同步配置
func applyUserSyncConfig(options *SyncOptions, userConfig interface{}) {
	cfg, ok := userConfig.(*configtypes.UserSyncConfig)
	if !ok || cfg == nil {
		return
	}
	if cfg.BatchSize != nil {
		options.BatchSize = ClampBatchSize(*cfg.BatchSize)
	}
	if cfg.PacingDelayMs != nil && *cfg.PacingDelayMs >= 0 {
		options.PacingDelay = time.Duration(*cfg.PacingDelayMs) * time.Millisecond
	}
	if cfg.MaxQueueDepth != nil && *cfg.MaxQueueDepth >= 0 {
		options.MaxQueueDepth = *cfg.MaxQueueDepth
	}
	if cfg.JobHistoryLimit != nil && *cfg.JobHistoryLimit > 0 {
		options.JobHistoryLimit = *cfg.JobHistoryLimit
	}
	if cfg.WindowDays != nil && *cfg.WindowDays > 0 {
		options.WindowDays = *cfg.WindowDays
	}
}

// ClampBatchSize 将批次大小限制在 [MinBatchSize, MaxBatchSize]，0 或负数回落到默认值
func ClampBatchSize(size int) int {
	switch {
	case size <= 0:
		return defaultBatchSize
	case size < MinBatchSize:
		return MinBatchSize
	case size > MaxBatchSize:
		return MaxBatchSize
	default:
		return size
	}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *SyncOptions {
	return c.options
}

// GetBatchSize 获取默认批次大小
func (c *Config) GetBatchSize() int {
	return c.options.BatchSize
}

// GetPacingDelay 获取批次间隔
func (c *Config) GetPacingDelay() time.Duration {
	return c.options.PacingDelay
}

// GetMaxQueueDepth 获取队列最大深度
func (c *Config) GetMaxQueueDepth() int {
	return c.options.MaxQueueDepth
}

// GetJobHistoryLimit 获取已结束任务保留数量
func (c *Config) GetJobHistoryLimit() int {
	return c.options.JobHistoryLimit
}

// GetWindowDays 获取统计窗口天数
func (c *Config) GetWindowDays() int {
	return c.options.WindowDays
}
