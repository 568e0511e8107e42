package memory

import "time"

// 内存存储默认配置值
const (
	// defaultMaxEntries 窗口内最多1万个条目
	// 原因：限流桶按客户端IP存储，1万足够覆盖一个部署的活跃客户端
	defaultMaxEntries = 10000

	// defaultMaxEntrySize 单条目最大256字节
	// 原因：限流桶状态只有16字节，过大的值只会增加 bigcache 预分配
	defaultMaxEntrySize = 256

	// defaultDefaultTTL 默认TTL为10分钟
	defaultDefaultTTL = 10 * time.Minute

	// defaultCleanupInterval 默认清理间隔为1分钟
	defaultCleanupInterval = time.Minute
)
