package repository

import (
	"context"
	"fmt"
	"sort"

	redisconfig "github.com/weisyn/contribsync/internal/config/storage/redis"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/types"
)

// redisClient 仓储用到的最小 Redis 操作集合，便于测试替换
type redisClient interface {
	// Get 键不存在时返回 found=false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// MGet 按顺序返回，不存在的键对应 nil
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	SetIndexed(ctx context.Context, key string, value []byte, indexKey, member string) error
	DelIndexed(ctx context.Context, key, indexKey, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	// Update 原子地读改写，键不存在时返回 false 且不调用 fn
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// RedisRepository 基于 Redis 的学生存储，多个实例共享同一份数据
//
// Key 格式：{prefix}student:{id}，全部ID记录在集合 {prefix}students 中。
type RedisRepository struct {
	client    redisClient
	keyPrefix string
	logger    log.Logger
}

var _ contribution.StudentRepository = (*RedisRepository)(nil)

// NewRedisRepository 连接 Redis 并创建学生存储
func NewRedisRepository(cfg *redisconfig.Config, logger log.Logger) (*RedisRepository, error) {
	client, err := newGoRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return newRedisRepository(client, cfg.GetOptions().KeyPrefix, logger), nil
}

func newRedisRepository(client redisClient, keyPrefix string, logger log.Logger) *RedisRepository {
	return &RedisRepository{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (r *RedisRepository) key(id string) string { return r.keyPrefix + studentKey(id) }

func (r *RedisRepository) indexKey() string { return r.keyPrefix + "students" }

// UpdateEntity 覆盖贡献数与同步时间
func (r *RedisRepository) UpdateEntity(ctx context.Context, id string, update types.ContributionUpdate) (types.UpdateResult, error) {
	matched, err := r.client.Update(ctx, r.key(id), func(current []byte) ([]byte, error) {
		return applyUpdate(current, update)
	})
	if err != nil {
		return types.UpdateResult{}, fmt.Errorf("更新学生 %s 失败: %w", id, err)
	}
	return types.UpdateResult{Matched: matched}, nil
}

// ListStudents 读取索引集合中的全部学生，按ID排序
func (r *RedisRepository) ListStudents(ctx context.Context) ([]types.Student, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey())
	if err != nil {
		return nil, fmt.Errorf("读取学生索引失败: %w", err)
	}
	found, err := r.GetStudents(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]types.Student, 0, len(found))
	for _, s := range found {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetStudent 按ID获取
func (r *RedisRepository) GetStudent(ctx context.Context, id string) (*types.Student, error) {
	data, found, err := r.client.Get(ctx, r.key(id))
	if err != nil {
		return nil, fmt.Errorf("读取学生 %s 失败: %w", id, err)
	}
	if !found {
		return nil, contribution.ErrStudentNotFound
	}
	s, err := decodeStudent(data)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStudents 使用 MGET 批量读取
func (r *RedisRepository) GetStudents(ctx context.Context, ids []string) (map[string]types.Student, error) {
	out := make(map[string]types.Student, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.client.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("批量读取学生失败: %w", err)
	}
	for i, data := range values {
		if data == nil {
			continue
		}
		s, err := decodeStudent(data)
		if err != nil {
			if r.logger != nil {
				r.logger.Warnf("跳过无法解析的学生记录: id=%s err=%v", ids[i], err)
			}
			continue
		}
		out[ids[i]] = s
	}
	return out, nil
}

// SaveStudent 新增或替换
func (r *RedisRepository) SaveStudent(ctx context.Context, student types.Student) error {
	if err := validateStudent(student); err != nil {
		return err
	}
	data, err := encodeStudent(student)
	if err != nil {
		return err
	}
	if err := r.client.SetIndexed(ctx, r.key(student.ID), data, r.indexKey(), student.ID); err != nil {
		return fmt.Errorf("保存学生 %s 失败: %w", student.ID, err)
	}
	return nil
}

// DeleteStudent 删除记录并移出索引
func (r *RedisRepository) DeleteStudent(ctx context.Context, id string) error {
	if err := r.client.DelIndexed(ctx, r.key(id), r.indexKey(), id); err != nil {
		return fmt.Errorf("删除学生 %s 失败: %w", id, err)
	}
	return nil
}

// Close 关闭连接
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
