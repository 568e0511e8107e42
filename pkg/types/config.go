// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含JSON配置文件解析所需的结构，不包含任何内部字段
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
type AppConfig struct {
	// 应用程序基本信息
	AppName *string `json:"app_name,omitempty"` // 应用名称
	DataDir *string `json:"data_dir,omitempty"` // 数据目录路径

	// Environment 运行环境：dev | test | prod
	Environment *string `json:"environment,omitempty"`

	// API服务配置
	API *UserAPIConfig `json:"api,omitempty"`

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty"`

	// 事件总线配置
	Event *UserEventConfig `json:"event,omitempty"`

	// 贡献同步配置 - 对应配置文件中的 sync 字段
	Sync *UserSyncConfig `json:"sync,omitempty"`

	// 外部代码托管平台配置 - 对应配置文件中的 github 字段
	GitHub *UserGitHubConfig `json:"github,omitempty"`

	// 存储配置
	Storage *UserStorageConfig `json:"storage,omitempty"`
}

// UserAPIConfig 用户API配置
// 只包含JSON配置文件中实际出现的字段
type UserAPIConfig struct {
	HTTPEnabled *bool   `json:"http_enabled,omitempty"` // 是否启用HTTP服务（默认true）
	HTTPHost    *string `json:"http_host,omitempty"`    // HTTP监听地址
	HTTPPort    *int    `json:"http_port,omitempty"`    // HTTP监听端口

	// 限流配置（按客户端IP）
	RateLimitEnabled *bool `json:"rate_limit_enabled,omitempty"` // 是否启用限流
	ReadLimit        *int  `json:"read_limit,omitempty"`         // 读操作每秒请求数
	WriteLimit       *int  `json:"write_limit,omitempty"`        // 写操作每秒请求数

	WebSocketEnabled *bool `json:"websocket_enabled,omitempty"` // 是否启用进度推送WebSocket
	MetricsEnabled   *bool `json:"metrics_enabled,omitempty"`   // 是否暴露 /metrics
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level    *string `json:"level,omitempty"`     // 日志级别：debug, info, warn, error, fatal
	FilePath *string `json:"file_path,omitempty"` // 日志文件路径
}

// UserEventConfig 用户事件配置
type UserEventConfig struct {
	Enabled *bool `json:"enabled,omitempty"` // 是否启用事件总线
}

// UserSyncConfig 用户同步配置
// 对应配置文件中的 sync 字段
type UserSyncConfig struct {
	BatchSize       *int `json:"batch_size,omitempty"`        // 默认批次大小（1-50）
	PacingDelayMs   *int `json:"pacing_delay_ms,omitempty"`   // 批次间隔（毫秒）
	MaxQueueDepth   *int `json:"max_queue_depth,omitempty"`   // 等待队列最大深度
	JobHistoryLimit *int `json:"job_history_limit,omitempty"` // 保留的已结束任务数量
	WindowDays      *int `json:"window_days,omitempty"`       // 贡献统计窗口（天）
}

// UserGitHubConfig 用户GitHub配置
type UserGitHubConfig struct {
	BaseURL           *string  `json:"base_url,omitempty"`            // REST API 地址
	GraphQLURL        *string  `json:"graphql_url,omitempty"`         // GraphQL 地址
	Token             *string  `json:"token,omitempty"`               // 访问令牌（可被 GITHUB_TOKEN 覆盖）
	TimeoutMs         *int     `json:"timeout_ms,omitempty"`          // 单次请求超时
	MaxAttempts       *int     `json:"max_attempts,omitempty"`        // 最大尝试次数（含首次）
	BaseDelayMs       *int     `json:"base_delay_ms,omitempty"`       // 退避基础延迟
	RequestsPerSecond *float64 `json:"requests_per_second,omitempty"` // 出站请求速率
	Burst             *int     `json:"burst,omitempty"`               // 出站突发请求数
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	Backend  *string          `json:"backend,omitempty"`   // badger | redis
	DataPath *string          `json:"data_path,omitempty"` // badger 数据目录
	InMemory *bool            `json:"in_memory,omitempty"` // badger 内存模式
	Redis    *UserRedisConfig `json:"redis,omitempty"`     // redis 配置
}

// UserRedisConfig 用户Redis配置
type UserRedisConfig struct {
	Addr      *string `json:"addr,omitempty"`
	Password  *string `json:"password,omitempty"`
	DB        *int    `json:"db,omitempty"`
	KeyPrefix *string `json:"key_prefix,omitempty"`
	PoolSize  *int    `json:"pool_size,omitempty"`
}

// BoolPtr 创建bool指针，用于明确表示用户设置了该值
func BoolPtr(v bool) *bool {
	return &v
}

// IntPtr 创建int指针
func IntPtr(v int) *int {
	return &v
}

// StringPtr 创建string指针，用于明确表示用户设置了该值
func StringPtr(v string) *string {
	return &v
}

// Float64Ptr 创建float64指针
func Float64Ptr(v float64) *float64 {
	return &v
}
