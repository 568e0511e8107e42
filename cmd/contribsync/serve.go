package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/contribsync/internal/app"
	"github.com/weisyn/contribsync/internal/app/version"
)

// serveCmd 启动常驻服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	Long:  "启动HTTP/WebSocket接口与同步任务管理器，收到 SIGINT/SIGTERM 后等待当前批次结束再退出",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := appOptions()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "contribsync %s 启动中...\n", version.GetDisplayVersion())
		application, err := app.Start(append(opts, app.WithAPI())...)
		if err != nil {
			return err
		}

		application.Wait()
		return nil
	},
}
