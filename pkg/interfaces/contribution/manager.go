package contribution

import (
	"context"

	"github.com/weisyn/contribsync/pkg/types"
)

// JobManager 同步任务管理器
//
// 全局同时只有一个任务处于 running，其余任务进入有界FIFO队列。
type JobManager interface {
	// StartBatchSync 提交批量同步任务，batchSize<=0 使用默认值
	StartBatchSync(entityIDs []string, batchSize int) (string, error)

	// StartIndividualSync 提交单个学生同步任务
	StartIndividualSync(entityID string) (string, error)

	// CancelCurrentJob 请求取消当前运行的任务（协作式）
	CancelCurrentJob() bool

	// CancelJob 取消指定任务：排队中的任务直接结束，运行中的任务等同 CancelCurrentJob
	CancelJob(id string) bool

	// GetJob 获取任务快照
	GetJob(id string) (types.Job, bool)

	// GetCurrentJob 获取当前任务快照
	GetCurrentJob() (types.Job, bool)

	// GetAllJobs 按创建顺序返回全部任务快照
	GetAllJobs() []types.Job

	// QueueDepth 当前排队任务数
	QueueDepth() int

	// WaitJob 阻塞直到任务进入终态
	WaitJob(ctx context.Context, id string) (types.Job, error)
}
