package contribution

import (
	"context"

	"github.com/weisyn/contribsync/pkg/types"
)

// ContributionFetcher 外部代码托管平台的原始访问（单次请求，不重试）
type ContributionFetcher interface {
	// HandleExists 账号是否存在且可访问
	HandleExists(ctx context.Context, handle string) (bool, error)

	// TotalContributions 最近 windowDays 天的贡献总数
	// 外部API明确答复账号不存在时返回错误，无法取得数据时返回 nil
	TotalContributions(ctx context.Context, handle string, windowDays int) (*int, error)
}

// ExternalClient 带重试与退避的外部API客户端
type ExternalClient interface {
	ContributionFetcher
}

// EntitySyncer 同步单个学生，任何失败都体现在返回值中
type EntitySyncer interface {
	Sync(ctx context.Context, student types.Student) types.SyncResult
}
