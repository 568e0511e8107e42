// Package api 组装对外接口：HTTP 同步接口与 WebSocket 进度推送
package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/internal/api/http"
	"github.com/weisyn/contribsync/internal/api/websocket"
)

// Module 返回API模块选项
func Module() fx.Option {
	return fx.Module("api",
		websocket.Module(),
		http.Module(),

		// 显式引用HTTP服务器，确保其生命周期钩子被注册
		fx.Invoke(func(*http.Server) {}),
	)
}
