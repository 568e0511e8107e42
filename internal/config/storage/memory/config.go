package memory

import "time"

// MemoryOptions 内存存储配置选项（bigcache）
type MemoryOptions struct {
	MaxEntries   int           `json:"max_entries"`    // 窗口内最大条目数（用于预分配）
	MaxEntrySize int           `json:"max_entry_size"` // 单条目最大字节数（用于预分配）
	DefaultTTL   time.Duration `json:"default_ttl"`    // 默认TTL

	// === 清理配置 ===
	CleanupInterval time.Duration `json:"cleanup_interval"` // 清理间隔
}

// Config 内存存储配置实现
type Config struct {
	options *MemoryOptions
}

// New 创建内存存储配置实现
func New(userConfig interface{}) *Config {
	return &Config{
		options: &MemoryOptions{
			MaxEntries:      defaultMaxEntries,
			MaxEntrySize:    defaultMaxEntrySize,
			DefaultTTL:      defaultDefaultTTL,
			CleanupInterval: defaultCleanupInterval,
		},
	}
}

// NewFromOptions 从MemoryOptions创建配置实现
func NewFromOptions(options *MemoryOptions) *Config {
	return &Config{options: options}
}

// GetOptions 获取完整的内存存储配置选项
func (c *Config) GetOptions() *MemoryOptions {
	return c.options
}

// GetDefaultTTL 获取默认TTL
func (c *Config) GetDefaultTTL() time.Duration {
	return c.options.DefaultTTL
}

// GetCleanupInterval 获取清理间隔
func (c *Config) GetCleanupInterval() time.Duration {
	return c.options.CleanupInterval
}

// GetMaxEntriesInWindow 获取窗口内最大条目数
func (c *Config) GetMaxEntriesInWindow() int {
	return c.options.MaxEntries
}

// GetMaxEntrySize 获取最大条目大小
func (c *Config) GetMaxEntrySize() int {
	return c.options.MaxEntrySize
}
