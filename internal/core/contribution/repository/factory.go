package repository

import (
	"fmt"

	redisconfig "github.com/weisyn/contribsync/internal/config/storage/redis"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
)

// New 按配置的存储后端创建学生存储
//
// 返回的 closer 只释放仓储自己持有的连接，BadgerStore 由存储模块负责关闭。
func New(provider config.Provider, badgerStore storage.BadgerStore, logger log.Logger) (contribution.StudentRepository, func() error, error) {
	switch backend := provider.GetStorageBackend(); backend {
	case config.StorageBackendRedis:
		repo, err := NewRedisRepository(redisconfig.NewFromOptions(provider.GetRedis()), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("创建Redis学生存储失败: %w", err)
		}
		return repo, repo.Close, nil
	case config.StorageBackendBadger:
		repo, err := NewBadgerRepository(badgerStore, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("未知的存储后端: %s", backend)
	}
}
