package websocket

import (
	"context"

	"go.uber.org/fx"

	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

// ModuleParams 进度推送依赖
type ModuleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Provider
	Logger    log.Logger
	Bus       event.EventBus
}

// Module 返回进度推送模块
func Module() fx.Option {
	return fx.Module("websocket",
		fx.Provide(ProvideServer),
	)
}

// ProvideServer 创建进度推送服务器，随应用启动订阅事件、停止时断开全部连接
func ProvideServer(p ModuleParams) *Server {
	logger := p.Logger.With("module", "api.websocket")
	s := NewServer(logger.GetZapLogger(), p.Bus, p.Config.GetAPI().WebSocket)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !p.Config.GetAPI().WebSocket.Enabled {
				return nil
			}
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
	return s
}
