package github

import "time"

const (
	defaultBaseURL    = "https://api.github.com"
	defaultGraphQLURL = "https://api.github.com/graphql"

	// defaultTimeout 单次请求超时10秒
	defaultTimeout = 10 * time.Second

	// defaultMaxAttempts 最多尝试4次（首次 + 3次重试）
	defaultMaxAttempts = 4

	// defaultBaseDelay 退避基础延迟1秒，依次等待 1s、2s、4s
	defaultBaseDelay = time.Second

	// defaultRequestsPerSecond 出站请求每秒最多5次
	// 原因：GraphQL 配额按点数计算，平滑请求可降低触发二级限流的概率
	defaultRequestsPerSecond = 5.0

	// defaultBurst 允许的突发请求数，与最大批次大小的一半相当
	defaultBurst = 25
)
