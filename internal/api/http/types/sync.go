package types

import (
	"time"

	"github.com/weisyn/contribsync/pkg/types"
)

// SyncRequest POST /sync 请求体
type SyncRequest struct {
	BatchSize *int `json:"batchSize" binding:"omitempty,min=1,max=50"`
	DryRun    bool `json:"dryRun"`
}

// SyncErrorItem 单个学生的失败信息
type SyncErrorItem struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Error  string `json:"error"`
}

// ProcessedUser 同步成功的学生
type ProcessedUser struct {
	ID         string `json:"id"`
	Handle     string `json:"handle"`
	OldCount   int    `json:"oldCount"`
	NewCount   int    `json:"newCount"`
	SyncTimeMs int64  `json:"syncTimeMs"`
}

// SyncResponse POST /sync 响应
type SyncResponse struct {
	Success        bool            `json:"success"`
	JobID          string          `json:"jobId"`
	Status         types.JobStatus `json:"status"`
	SyncTimeMs     int64           `json:"syncTimeMs"`
	TotalUsers     int             `json:"totalUsers"`
	Successful     int             `json:"successful"`
	Failed         int             `json:"failed"`
	Errors         []SyncErrorItem `json:"errors"`
	ProcessedUsers []ProcessedUser `json:"processedUsers"`
}

// SyncStatusResponse GET /sync 响应
type SyncStatusResponse struct {
	types.SyncHealth
	CurrentJob *types.Job `json:"currentJob,omitempty"`
	QueueDepth int        `json:"queueDepth"`
}

// StudentSyncResponse GET /sync/student/:id 响应
type StudentSyncResponse struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	GitHubHandle      string              `json:"githubHandle"`
	ContributionCount int                 `json:"contributionCount"`
	LastSyncTime      *time.Time          `json:"lastSyncTime"`
	Synced            bool                `json:"synced"`
	ActiveStatus      *types.EntityStatus `json:"activeStatus,omitempty"`
}

// IndividualSyncResponse POST /sync/student/:id 响应
type IndividualSyncResponse struct {
	Success    bool              `json:"success"`
	JobID      string            `json:"jobId"`
	SyncTimeMs int64             `json:"syncTimeMs"`
	Result     *types.SyncResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// StartJobRequest POST /sync/jobs 请求体，StudentIDs 为空时同步全部学生
type StartJobRequest struct {
	StudentIDs []string `json:"studentIds"`
	BatchSize  *int     `json:"batchSize" binding:"omitempty,min=1,max=50"`
}

// JobAcceptedResponse 异步任务已受理
type JobAcceptedResponse struct {
	JobID string `json:"jobId"`
}

// CancelResponse 取消结果
type CancelResponse struct {
	Cancelled bool   `json:"cancelled"`
	JobID     string `json:"jobId,omitempty"`
}
