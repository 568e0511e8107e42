// Package types 提供贡献同步相关类型定义
package types

import "time"

// ============================================================================
//                              任务状态类型
// ============================================================================

// JobKind 同步任务类型
type JobKind string

const (
	// JobKindBatch 批量同步（多个学生）
	JobKindBatch JobKind = "batch"
	// JobKindIndividual 单个学生同步
	JobKindIndividual JobKind = "individual"
)

// JobStatus 同步任务状态
//
// 状态流转：queued → running → completed | failed | cancelled
// 终态之后不再变化。
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// EntityState 单个学生在任务中的状态
//
// 只允许 pending → processing → completed | failed
type EntityState string

const (
	EntityPending    EntityState = "pending"
	EntityProcessing EntityState = "processing"
	EntityCompleted  EntityState = "completed"
	EntityFailed     EntityState = "failed"
)

// ErrorKind 单实体失败分类
type ErrorKind string

const (
	ErrorKindNotFound    ErrorKind = "not_found"    // 账号不存在或不可访问
	ErrorKindRateLimited ErrorKind = "rate_limited" // 外部API配额耗尽
	ErrorKindFetchFailed ErrorKind = "fetch_failed" // 重试耗尽仍获取失败
	ErrorKindPersistence ErrorKind = "persistence"  // 写回存储失败
	ErrorKindJob         ErrorKind = "job"          // 任务级错误（不属于任何实体）
)

// ============================================================================
//                              任务结构
// ============================================================================

// JobProgress 任务进度
//
// 不变量：Processed == Successful + Failed，Processed <= Total，
// Percentage == floor(Processed / Total * 100)
type JobProgress struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Percentage int `json:"percentage"`
}

// Recompute 根据计数重新计算百分比
func (p *JobProgress) Recompute() {
	p.Processed = p.Successful + p.Failed
	if p.Total <= 0 {
		p.Percentage = 0
		return
	}
	p.Percentage = p.Processed * 100 / p.Total
}

// EntityStatus 任务中单个学生的处理状态
type EntityStatus struct {
	ID             string      `json:"id"`
	ExternalHandle string      `json:"externalHandle"`
	DisplayName    string      `json:"displayName"`
	Status         EntityState `json:"status"`
	StartTime      *time.Time  `json:"startTime,omitempty"`
	EndTime        *time.Time  `json:"endTime,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// JobError 任务错误记录
type JobError struct {
	EntityID string    `json:"entityId,omitempty"`
	Handle   string    `json:"handle,omitempty"`
	Message  string    `json:"message"`
	Kind     ErrorKind `json:"kind"`
}

// SyncResult 单个学生的同步结果（不持久化）
type SyncResult struct {
	ID         string    `json:"id"`
	Handle     string    `json:"handle"`
	OldCount   int       `json:"oldCount"`
	NewCount   int       `json:"newCount"`
	DurationMs int64     `json:"durationMs"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
}

// Job 一次同步运行
type Job struct {
	ID               string                  `json:"id"`
	Kind             JobKind                 `json:"kind"`
	Status           JobStatus               `json:"status"`
	Progress         JobProgress             `json:"progress"`
	CurrentTask      string                  `json:"currentTask"`
	BatchSize        int                     `json:"batchSize"`
	CreatedAt        time.Time               `json:"createdAt"`
	StartTime        *time.Time              `json:"startTime,omitempty"`
	EndTime          *time.Time              `json:"endTime,omitempty"`
	EstimatedEndTime *time.Time              `json:"estimatedEndTime,omitempty"`
	EntityIDs        []string                `json:"entityIds"`
	Entities         map[string]EntityStatus `json:"entities"`
	Errors           []JobError              `json:"errors"`
	Results          []SyncResult            `json:"results,omitempty"`
	Cancelable       bool                    `json:"cancelable"`
}

// Clone 深拷贝，供只读快照使用
func (j *Job) Clone() Job {
	c := *j
	c.StartTime = cloneTime(j.StartTime)
	c.EndTime = cloneTime(j.EndTime)
	c.EstimatedEndTime = cloneTime(j.EstimatedEndTime)
	c.EntityIDs = append([]string(nil), j.EntityIDs...)
	c.Entities = make(map[string]EntityStatus, len(j.Entities))
	for id, st := range j.Entities {
		st.StartTime = cloneTime(st.StartTime)
		st.EndTime = cloneTime(st.EndTime)
		c.Entities[id] = st
	}
	c.Errors = append([]JobError(nil), j.Errors...)
	c.Results = append([]SyncResult(nil), j.Results...)
	return c
}

// ProgressUpdate 进度事件负载
type ProgressUpdate struct {
	JobID                     string `json:"jobId"`
	Percentage                int    `json:"percentage"`
	CurrentTask               string `json:"currentTask"`
	EstimatedMinutesRemaining int    `json:"estimatedMinutesRemaining"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
