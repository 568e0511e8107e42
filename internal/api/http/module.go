package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/pkg/interfaces/config"
)

// initializeGinMode 生产环境使用 Release 模式，抑制路由调试输出
func initializeGinMode(provider config.Provider) {
	if provider.GetEnvironment() == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
}

// Module 返回HTTP服务模块
func Module() fx.Option {
	return fx.Options(
		// 必须在创建路由引擎之前设置
		fx.Invoke(initializeGinMode),
		fx.Provide(NewServer),
	)
}
