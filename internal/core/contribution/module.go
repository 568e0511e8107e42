// Package contribution 组装贡献同步子系统：学生存储、外部API客户端、同步器与任务管理器
package contribution

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	githubconfig "github.com/weisyn/contribsync/internal/config/github"
	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/internal/core/contribution/batch"
	"github.com/weisyn/contribsync/internal/core/contribution/external"
	"github.com/weisyn/contribsync/internal/core/contribution/job"
	"github.com/weisyn/contribsync/internal/core/contribution/repository"
	"github.com/weisyn/contribsync/internal/core/contribution/worker"
	logpkg "github.com/weisyn/contribsync/internal/core/infrastructure/log"
	"github.com/weisyn/contribsync/internal/core/infrastructure/metrics"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	contribIface "github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
)

// ModuleInput 模块依赖
type ModuleInput struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Provider    config.Provider
	Logger      log.Logger
	EventBus    event.EventBus
	Metrics     *metrics.SyncMetrics
	BadgerStore storage.BadgerStore `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Repository contribIface.StudentRepository
	Client     contribIface.ExternalClient
	Syncer     contribIface.EntitySyncer
	Manager    *job.Manager
	JobManager contribIface.JobManager
}

// Module 返回贡献同步模块
func Module() fx.Option {
	return fx.Module("contribution",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 创建同步子系统并注册停止钩子
func ProvideServices(in ModuleInput) (ModuleOutput, error) {
	logger := logpkg.NewModuleLogger(in.Logger, "contribution")

	repo, closeRepo, err := repository.New(in.Provider, in.BadgerStore, logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	ghConfig := githubconfig.NewFromOptions(in.Provider.GetGitHub())
	if !ghConfig.HasToken() {
		logger.Warnf("未配置 GitHub 访问令牌（%s），GraphQL 查询将被拒绝", githubconfig.TokenEnvVar)
	}
	fetcher := external.NewGitHubFetcher(ghConfig, nil)
	client := external.NewClientFromConfig(fetcher, ghConfig, in.Metrics, logger.With("component", "external"))

	syncConfig := syncconfig.NewFromOptions(in.Provider.GetSync())
	syncer := worker.New(client, repo, syncConfig.GetWindowDays(), in.Metrics, logger.With("component", "worker"))
	processor := batch.New(syncConfig.GetPacingDelay(), logger.With("component", "batch"))
	manager := job.New(syncConfig, repo, syncer, processor, in.EventBus, in.Metrics, logger.With("component", "job"))

	in.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("正在停止同步任务管理器...")
			stopErr := manager.Stop(ctx)
			if err := closeRepo(); err != nil {
				logger.Errorf("关闭学生存储失败: %v", err)
			}
			if stopErr != nil {
				return fmt.Errorf("停止同步任务管理器失败: %w", stopErr)
			}
			return nil
		},
	})

	return ModuleOutput{
		Repository: repo,
		Client:     client,
		Syncer:     syncer,
		Manager:    manager,
		JobManager: manager,
	}, nil
}
