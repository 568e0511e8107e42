package redis

import (
	configtypes "github.com/weisyn/contribsync/pkg/types"
)

// RedisOptions Redis存储配置选项
type RedisOptions struct {
	Addr      string `json:"addr"`
	Password  string `json:"-"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"` // 所有键的前缀，多个部署共用实例时区分命名空间
	PoolSize  int    `json:"pool_size"`
}

// Config Redis配置实现
type Config struct {
	options *RedisOptions
}

// New 创建Redis配置实现，userConfig 为 *types.UserStorageConfig
func New(userConfig interface{}) *Config {
	options := &RedisOptions{
		Addr:      defaultAddr,
		DB:        defaultDB,
		KeyPrefix: defaultKeyPrefix,
		PoolSize:  defaultPoolSize,
	}

	if storageConfig, ok := userConfig.(*configtypes.UserStorageConfig); ok && storageConfig != nil && storageConfig.Redis != nil {
		rc := storageConfig.Redis
		if rc.Addr != nil && *rc.Addr != "" {
			options.Addr = *rc.Addr
		}
		if rc.Password != nil {
			options.Password = *rc.Password
		}
		if rc.DB != nil && *rc.DB >= 0 {
			options.DB = *rc.DB
		}
		if rc.KeyPrefix != nil {
			options.KeyPrefix = *rc.KeyPrefix
		}
		if rc.PoolSize != nil && *rc.PoolSize > 0 {
			options.PoolSize = *rc.PoolSize
		}
	}

	return &Config{options: options}
}

// GetOptions 获取完整的Redis配置选项
func (c *Config) GetOptions() *RedisOptions {
	return c.options
}

// NewFromOptions 从RedisOptions创建配置实现
func NewFromOptions(options *RedisOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}
