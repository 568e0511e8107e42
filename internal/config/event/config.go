package event

import (
	configtypes "github.com/weisyn/contribsync/pkg/types"
)

// EventOptions 事件系统配置选项
type EventOptions struct {
	Enabled bool `json:"enabled"` // 是否启用事件系统

	// 单个事件允许的最大订阅者数量，0 表示不限制
	MaxSubscribers int `json:"max_subscribers"`
}

// Config 事件配置实现
type Config struct {
	options *EventOptions
}

// New 创建事件配置实现
func New(userConfig interface{}) *Config {
	defaultOptions := &EventOptions{
		Enabled:        defaultEnabled,
		MaxSubscribers: defaultMaxSubscribers,
	}

	if eventConfig, ok := userConfig.(*configtypes.UserEventConfig); ok && eventConfig != nil {
		if eventConfig.Enabled != nil {
			defaultOptions.Enabled = *eventConfig.Enabled
		}
	}

	return &Config{
		options: defaultOptions,
	}
}

// GetOptions 获取完整的事件配置选项
func (c *Config) GetOptions() *EventOptions {
	return c.options
}

// IsEnabled 是否启用事件系统
func (c *Config) IsEnabled() bool {
	return c.options.Enabled
}

// GetMaxSubscribers 获取最大订阅者数量
func (c *Config) GetMaxSubscribers() int {
	return c.options.MaxSubscribers
}

// NewFromOptions 从EventOptions创建配置实现
func NewFromOptions(options *EventOptions) *Config {
	if options == nil {
		return New(nil)
	}
	return &Config{options: options}
}
