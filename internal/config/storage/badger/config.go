package badger

import (
	"path/filepath"

	configtypes "github.com/weisyn/contribsync/pkg/types"
)

// BadgerOptions BadgerDB存储配置选项
type BadgerOptions struct {
	// === 基础配置 ===
	Path       string `json:"path"`        // 数据库存储路径
	InMemory   bool   `json:"in_memory"`   // 内存模式（测试和演示使用）
	SyncWrites bool   `json:"sync_writes"` // 是否同步写入

	// === 基础性能配置 ===
	MemTableSize int64 `json:"mem_table_size"` // 内存表大小
}

// Config BadgerDB配置实现
type Config struct {
	options *BadgerOptions
}

// New 创建BadgerDB配置实现
func New(userConfig interface{}) *Config {
	defaultOptions := createDefaultBadgerOptions()

	if userConfig != nil {
		applyUserConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

// NewFromOptions 从BadgerOptions创建配置实现
func NewFromOptions(options *BadgerOptions) *Config {
	return &Config{
		options: options,
	}
}

// createDefaultBadgerOptions 创建默认BadgerDB配置
func createDefaultBadgerOptions() *BadgerOptions {
	return &BadgerOptions{
		Path:         resolvePath(defaultPath),
		InMemory:     defaultInMemory,
		SyncWrites:   defaultSyncWrites,
		MemTableSize: defaultMemTableSize,
	}
}

// applyUserConfig 应用用户配置覆盖默认值
//
// 路径规则：配置了 storage.data_path 时使用 {data_path}/badger/
func applyUserConfig(options *BadgerOptions, userConfig interface{}) {
	storageConfig, ok := userConfig.(*configtypes.UserStorageConfig)
	if !ok || storageConfig == nil {
		return
	}
	if storageConfig.DataPath != nil && *storageConfig.DataPath != "" {
		options.Path = resolvePath(filepath.Join(*storageConfig.DataPath, "badger"))
	}
	if storageConfig.InMemory != nil {
		options.InMemory = *storageConfig.InMemory
	}
}

// resolvePath 将相对路径解析为绝对路径，解析失败时原样返回
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// GetOptions 获取完整的BadgerDB配置选项
func (c *Config) GetOptions() *BadgerOptions {
	return c.options
}

// GetPath 获取数据库路径
func (c *Config) GetPath() string {
	return c.options.Path
}

// IsInMemory 是否内存模式
func (c *Config) IsInMemory() bool {
	return c.options.InMemory
}

// IsSyncWritesEnabled 是否启用同步写入
func (c *Config) IsSyncWritesEnabled() bool {
	return c.options.SyncWrites
}

// GetMemTableSize 获取内存表大小
func (c *Config) GetMemTableSize() int64 {
	return c.options.MemTableSize
}
