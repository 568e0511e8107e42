// Package storage 提供存储管理功能
package storage

import (
	"context"
	"fmt"

	badgerconfig "github.com/weisyn/contribsync/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/contribsync/internal/config/storage/memory"
	"github.com/weisyn/contribsync/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/contribsync/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider // 配置提供者
	Logger    log.Logger      // 日志记录器
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	// BadgerStore 仅在存储后端为 badger 时创建，其余情况为 nil
	BadgerStore storageInterface.BadgerStore
	MemoryStore storageInterface.MemoryStore
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 根据配置初始化存储引擎，并在应用停止时关闭
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger := params.Logger.With("module", "storage")

	memStore, err := memory.New(memoryconfig.NewFromOptions(params.Provider.GetMemory()), logger)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("创建内存存储失败: %w", err)
	}

	out := ModuleOutput{MemoryStore: memStore}

	var badgerStore *badger.Store
	if params.Provider.GetStorageBackend() == config.StorageBackendBadger {
		badgerStore, err = badger.New(badgerconfig.NewFromOptions(params.Provider.GetBadger()), logger)
		if err != nil {
			_ = memStore.Close()
			return ModuleOutput{}, fmt.Errorf("创建BadgerDB存储失败: %w", err)
		}
		out.BadgerStore = badgerStore
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("正在关闭存储服务...")
			if err := memStore.Close(); err != nil {
				// 继续关闭其他存储
				logger.Errorf("关闭内存存储失败: %v", err)
			}
			if badgerStore != nil {
				if err := badgerStore.Close(); err != nil {
					logger.Errorf("关闭BadgerDB存储失败: %v", err)
					return err
				}
			}
			logger.Info("存储服务已安全关闭")
			return nil
		},
	})

	return out, nil
}
