package types

import "time"

// Student 被同步贡献数的学生记录
type Student struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	GitHubHandle      string     `json:"githubHandle"`
	ContributionCount int        `json:"contributionCount"`
	LastSyncTime      *time.Time `json:"lastSyncTime,omitempty"`
}

// Synced 是否至少同步过一次
func (s Student) Synced() bool {
	return s.LastSyncTime != nil && !s.LastSyncTime.IsZero()
}

// ContributionUpdate 写回存储的同步结果
// ContributionCount 为窗口内的绝对总数，直接覆盖旧值
type ContributionUpdate struct {
	ContributionCount int       `json:"contributionCount"`
	LastSyncTime      time.Time `json:"lastSyncTime"`
}

// UpdateResult 存储更新结果
type UpdateResult struct {
	Matched bool `json:"matched"`
}

// SyncHealth 同步健康度汇总（GET /sync）
type SyncHealth struct {
	TotalStudents    int            `json:"totalStudents"`
	SyncedStudents   int            `json:"syncedStudents"`
	UnsyncedStudents int            `json:"unsyncedStudents"`
	SyncRate         float64        `json:"syncRate"` // 百分比，保留两位小数
	LastSyncTime     *time.Time     `json:"lastSyncTime,omitempty"`
	OldestSyncTime   *time.Time     `json:"oldestSyncTime,omitempty"`
	RecentlySynced   []SyncedRecord `json:"recentlySynced"`
}

// SyncedRecord 最近同步的学生摘要
type SyncedRecord struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	GitHubHandle      string    `json:"githubHandle"`
	ContributionCount int       `json:"contributionCount"`
	LastSyncTime      time.Time `json:"lastSyncTime"`
}
