package event

// 事件系统默认配置值
const (
	// defaultEnabled 默认启用事件系统
	// 原因：任务进度和WebSocket推送都依赖事件总线
	defaultEnabled = true

	// defaultMaxSubscribers 每个事件最多64个订阅者
	defaultMaxSubscribers = 64
)
