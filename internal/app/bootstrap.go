// Package app 按层装配 fx 模块并管理应用生命周期
package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/weisyn/contribsync/internal/api"
	"github.com/weisyn/contribsync/internal/app/version"
	"github.com/weisyn/contribsync/internal/config"
	"github.com/weisyn/contribsync/internal/core/contribution"
	"github.com/weisyn/contribsync/internal/core/infrastructure/event"
	"github.com/weisyn/contribsync/internal/core/infrastructure/log"
	"github.com/weisyn/contribsync/internal/core/infrastructure/metrics"
	"github.com/weisyn/contribsync/internal/core/infrastructure/storage"
	loginterface "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts         *options
	configSource string
	fxApp        *fx.App
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options, configSource string) *Bootstrap {
	return &Bootstrap{
		opts:         opts,
		configSource: configSource,
	}
}

// SetupInfrastructureLayer 配置、日志、指标
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		appModule(b.opts),
		config.Module(),
		log.Module(),
		metrics.Module(),
	}
}

// SetupCommunicationLayer 事件总线与存储
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),
		storage.Module(),
	}
}

// SetupBusinessLayer 贡献同步子系统
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		contribution.Module(),
	}
}

// SetupApplicationLayer 对外接口（可关闭）
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	if !b.opts.enableAPI {
		return nil
	}
	return []fx.Option{api.Module()}
}

// SetupModules 按依赖顺序返回全部模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var modules []fx.Option
	modules = append(modules, b.SetupInfrastructureLayer()...)
	modules = append(modules, b.SetupCommunicationLayer()...)
	modules = append(modules, b.SetupBusinessLayer()...)
	modules = append(modules, b.SetupApplicationLayer()...)
	modules = append(modules, b.opts.extra...)
	return modules
}

// FxOptions 完整的fx选项
func (b *Bootstrap) FxOptions() []fx.Option {
	return []fx.Option{
		fx.Options(b.SetupModules()...),
		fx.NopLogger,
		fx.Invoke(func(lifecycle fx.Lifecycle, logger loginterface.Logger) {
			lifecycle.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					logger.Infof("应用已启动 version=%s config=%s api=%v", version.GetDisplayVersion(), b.configSource, b.opts.enableAPI)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					logger.Info("准备停止应用")
					return nil
				},
			})
		}),
	}
}

// CreateFxApp 创建fx应用
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(b.FxOptions()...)
	return b.fxApp.Err()
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
