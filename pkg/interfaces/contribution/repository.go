// Package contribution 定义贡献同步子系统对外暴露的接口
//
// 组件依赖顺序（叶子在前）：
//   ContributionFetcher → ExternalClient → EntitySyncer → JobManager
// StudentRepository 为外部协作者，负责学生记录的读写。
package contribution

import (
	"context"
	"errors"

	"github.com/weisyn/contribsync/pkg/types"
)

// ErrStudentNotFound 学生记录不存在
var ErrStudentNotFound = errors.New("student not found")

// PersistenceGateway 写回同步结果
type PersistenceGateway interface {
	// UpdateEntity 覆盖写入贡献数与同步时间
	// 记录不存在时返回 Matched=false 且 err 为 nil
	UpdateEntity(ctx context.Context, id string, update types.ContributionUpdate) (types.UpdateResult, error)
}

// StudentSource 读取学生记录
type StudentSource interface {
	// ListStudents 返回全部学生，按ID排序
	ListStudents(ctx context.Context) ([]types.Student, error)

	// GetStudent 按ID获取学生，不存在时返回 ErrStudentNotFound
	GetStudent(ctx context.Context, id string) (*types.Student, error)

	// GetStudents 批量获取，不存在的ID被忽略
	GetStudents(ctx context.Context, ids []string) (map[string]types.Student, error)
}

// StudentRepository 学生存储的完整能力
type StudentRepository interface {
	PersistenceGateway
	StudentSource

	// SaveStudent 新增或替换学生记录（导入用）
	SaveStudent(ctx context.Context, student types.Student) error

	// DeleteStudent 删除学生记录
	DeleteStudent(ctx context.Context, id string) error
}
