package api

import (
	"time"

	"github.com/weisyn/contribsync/pkg/types"
)

// APIOptions API服务配置选项
// 整个API模块的统一配置入口
type APIOptions struct {
	// HTTP API配置
	HTTP HTTPConfig `json:"http"`

	// 限流配置
	RateLimit RateLimitConfig `json:"rate_limit"`

	// WebSocket进度推送配置
	WebSocket WebSocketConfig `json:"websocket"`

	// 是否暴露 /metrics
	MetricsEnabled bool `json:"metrics_enabled"`
}

// HTTPConfig HTTP API配置
type HTTPConfig struct {
	Enabled bool   `json:"enabled"` // 是否启用HTTP服务（总开关）
	Host    string `json:"host"`    // 监听地址
	Port    int    `json:"port"`    // 监听端口

	// 超时配置
	ReadTimeout  time.Duration `json:"read_timeout"`  // 读取超时时间
	WriteTimeout time.Duration `json:"write_timeout"` // 写入超时时间（同步接口会等待任务结束）
}

// RateLimitConfig 按客户端IP的令牌桶限流
type RateLimitConfig struct {
	Enabled    bool          `json:"enabled"`
	ReadLimit  int           `json:"read_limit"`  // 读操作每秒请求数
	WriteLimit int           `json:"write_limit"` // 写操作每秒请求数
	IdleTTL    time.Duration `json:"idle_ttl"`    // 客户端桶的空闲过期时间
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Enabled         bool `json:"enabled"`           // 是否启用WebSocket
	MaxConnections  int  `json:"max_connections"`   // 最大连接数
	SendBufferSize  int  `json:"send_buffer_size"`  // 每个连接的待发送事件缓冲
	ReadBufferSize  int  `json:"read_buffer_size"`  // 读缓冲区大小(字节)
	WriteBufferSize int  `json:"write_buffer_size"` // 写缓冲区大小(字节)
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig interface{}) *Config {
	// 1. 先创建完整的默认配置
	defaultOptions := createDefaultAPIOptions()

	// 2. 如果有用户配置，应用用户配置覆盖默认值
	if userConfig != nil {
		applyUserAPIConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

// createDefaultAPIOptions 创建默认API配置
func createDefaultAPIOptions() *APIOptions {
	return &APIOptions{
		HTTP: HTTPConfig{
			Enabled:      defaultHTTPEnabled,
			Host:         defaultHTTPHost,
			Port:         defaultHTTPPort,
			ReadTimeout:  defaultHTTPReadTimeout,
			WriteTimeout: defaultHTTPWriteTimeout,
		},
		RateLimit: RateLimitConfig{
			Enabled:    defaultRateLimitEnabled,
			ReadLimit:  defaultReadLimit,
			WriteLimit: defaultWriteLimit,
			IdleTTL:    defaultRateLimitIdleTTL,
		},
		WebSocket: WebSocketConfig{
			Enabled:         defaultWebSocketEnabled,
			MaxConnections:  defaultWebSocketMaxConnections,
			SendBufferSize:  defaultWebSocketSendBuffer,
			ReadBufferSize:  defaultWebSocketReadBufferSize,
			WriteBufferSize: defaultWebSocketWriteBufferSize,
		},
		MetricsEnabled: defaultMetricsEnabled,
	}
}

// applyUserAPIConfig 应用用户API配置
func applyUserAPIConfig(options *APIOptions, userConfig interface{}) {
	apiConfig, ok := userConfig.(*types.UserAPIConfig)
	if !ok || apiConfig == nil {
		return
	}

	if apiConfig.HTTPEnabled != nil {
		options.HTTP.Enabled = *apiConfig.HTTPEnabled
	}
	if apiConfig.HTTPHost != nil && *apiConfig.HTTPHost != "" {
		options.HTTP.Host = *apiConfig.HTTPHost
	}
	if apiConfig.HTTPPort != nil && *apiConfig.HTTPPort > 0 {
		options.HTTP.Port = *apiConfig.HTTPPort
	}
	if apiConfig.RateLimitEnabled != nil {
		options.RateLimit.Enabled = *apiConfig.RateLimitEnabled
	}
	if apiConfig.ReadLimit != nil && *apiConfig.ReadLimit > 0 {
		options.RateLimit.ReadLimit = *apiConfig.ReadLimit
	}
	if apiConfig.WriteLimit != nil && *apiConfig.WriteLimit > 0 {
		options.RateLimit.WriteLimit = *apiConfig.WriteLimit
	}
	if apiConfig.WebSocketEnabled != nil {
		options.WebSocket.Enabled = *apiConfig.WebSocketEnabled
	}
	if apiConfig.MetricsEnabled != nil {
		options.MetricsEnabled = *apiConfig.MetricsEnabled
	}
}

// GetOptions 获取完整的API配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}

// GetHTTPAddress 获取HTTP监听地址
func (c *Config) GetHTTPAddress() (string, int) {
	return c.options.HTTP.Host, c.options.HTTP.Port
}

// IsRateLimitEnabled 是否启用限流
func (c *Config) IsRateLimitEnabled() bool {
	return c.options.RateLimit.Enabled
}
