package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/contribsync/pkg/types"
)

// BadgerRepository 基于 BadgerDB 的学生存储
//
// Key 格式：student:{id}，Value 为 JSON 序列化的 types.Student。
type BadgerRepository struct {
	store  storage.BadgerStore
	logger log.Logger
}

var _ contribution.StudentRepository = (*BadgerRepository)(nil)

// NewBadgerRepository 创建 BadgerDB 学生存储
func NewBadgerRepository(store storage.BadgerStore, logger log.Logger) (*BadgerRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("badger store cannot be nil")
	}
	return &BadgerRepository{store: store, logger: logger}, nil
}

// UpdateEntity 在一个事务内读取、覆盖并写回
func (r *BadgerRepository) UpdateEntity(ctx context.Context, id string, update types.ContributionUpdate) (types.UpdateResult, error) {
	var matched bool
	err := r.store.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		matched = false
		key := []byte(studentKey(id))
		data, err := tx.Get(key)
		if err != nil {
			return err
		}
		if data == nil {
			return nil
		}
		next, err := applyUpdate(data, update)
		if err != nil {
			return err
		}
		matched = true
		return tx.Set(key, next)
	})
	if err != nil {
		return types.UpdateResult{}, fmt.Errorf("更新学生 %s 失败: %w", id, err)
	}
	return types.UpdateResult{Matched: matched}, nil
}

// ListStudents 返回全部学生，按ID排序
func (r *BadgerRepository) ListStudents(ctx context.Context) ([]types.Student, error) {
	entries, err := r.store.PrefixScan(ctx, []byte(studentKeyPrefix))
	if err != nil {
		return nil, fmt.Errorf("扫描学生记录失败: %w", err)
	}
	out := make([]types.Student, 0, len(entries))
	for key, data := range entries {
		s, err := decodeStudent(data)
		if err != nil {
			if r.logger != nil {
				r.logger.Warnf("跳过无法解析的学生记录: key=%s err=%v", key, err)
			}
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetStudent 按ID获取
func (r *BadgerRepository) GetStudent(ctx context.Context, id string) (*types.Student, error) {
	data, err := r.store.Get(ctx, []byte(studentKey(id)))
	if err != nil {
		return nil, fmt.Errorf("读取学生 %s 失败: %w", id, err)
	}
	if data == nil {
		return nil, contribution.ErrStudentNotFound
	}
	s, err := decodeStudent(data)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStudents 在一个只读事务内批量读取
func (r *BadgerRepository) GetStudents(ctx context.Context, ids []string) (map[string]types.Student, error) {
	out := make(map[string]types.Student, len(ids))
	err := r.store.RunInTransaction(ctx, func(tx storage.BadgerTransaction) error {
		for _, id := range ids {
			data, err := tx.Get([]byte(studentKey(id)))
			if err != nil {
				return err
			}
			if data == nil {
				continue
			}
			s, err := decodeStudent(data)
			if err != nil {
				return err
			}
			out[id] = s
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("批量读取学生失败: %w", err)
	}
	return out, nil
}

// SaveStudent 新增或替换
func (r *BadgerRepository) SaveStudent(ctx context.Context, student types.Student) error {
	if err := validateStudent(student); err != nil {
		return err
	}
	data, err := encodeStudent(student)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, []byte(studentKey(student.ID)), data); err != nil {
		return fmt.Errorf("保存学生 %s 失败: %w", student.ID, err)
	}
	return nil
}

// DeleteStudent 删除，不存在时不报错
func (r *BadgerRepository) DeleteStudent(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, []byte(studentKey(id))); err != nil {
		return fmt.Errorf("删除学生 %s 失败: %w", id, err)
	}
	return nil
}
