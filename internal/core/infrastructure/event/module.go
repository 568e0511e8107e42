// Package event 提供事件管理功能
package event

import (
	"context"

	"go.uber.org/fx"

	eventconfig "github.com/weisyn/contribsync/internal/config/event"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	eventInterface "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Provider  config.Provider // 配置提供者
	Logger    log.Logger      `optional:"true"` // 日志记录器（可选）
	Lifecycle fx.Lifecycle    // 生命周期管理
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 创建事件总线并注册生命周期
func ProvideEventBus(input ModuleInput) (ModuleOutput, error) {
	options := input.Provider.GetEvent()
	bus := New(eventconfig.NewFromOptions(options))

	input.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// 生命周期上下文在 OnStart 返回后即失效
			if err := bus.Start(context.Background()); err != nil {
				return err
			}
			if input.Logger != nil {
				input.Logger.Infof("事件总线已启动 enabled=%v", options.Enabled)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if !bus.IsRunning() {
				return nil
			}
			return bus.Stop(ctx)
		},
	})

	return ModuleOutput{EventBus: bus}, nil
}
