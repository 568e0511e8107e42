package api

import "time"

// API服务默认配置值
const (
	// === HTTP API配置 ===

	// defaultHTTPEnabled 默认启用HTTP API
	defaultHTTPEnabled = true

	// defaultHTTPHost HTTP监听地址设为0.0.0.0
	// 原因：监听所有网络接口，容器内部署时无需额外配置
	defaultHTTPHost = "0.0.0.0"

	// defaultHTTPPort HTTP端口设为8080
	defaultHTTPPort = 8080

	// defaultHTTPReadTimeout HTTP读取超时设为15秒
	defaultHTTPReadTimeout = 15 * time.Second

	// defaultHTTPWriteTimeout HTTP写入超时设为15分钟
	// 原因：POST /sync 会等待整个批量任务结束，几百个学生按批次节流需要数分钟
	defaultHTTPWriteTimeout = 15 * time.Minute

	// === 限流配置 ===

	defaultRateLimitEnabled = true

	// defaultReadLimit 读操作每秒20次
	defaultReadLimit = 20

	// defaultWriteLimit 写操作每秒2次
	// 原因：每次写操作都可能触发一次完整的外部同步
	defaultWriteLimit = 2

	// defaultRateLimitIdleTTL 客户端限流桶空闲10分钟后过期
	defaultRateLimitIdleTTL = 10 * time.Minute

	// === WebSocket配置 ===

	defaultWebSocketEnabled         = true
	defaultWebSocketMaxConnections  = 100
	defaultWebSocketSendBuffer      = 256
	defaultWebSocketReadBufferSize  = 1024
	defaultWebSocketWriteBufferSize = 4096

	// defaultMetricsEnabled 默认暴露Prometheus指标
	defaultMetricsEnabled = true
)
