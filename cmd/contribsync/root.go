package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/contribsync/configs"
	"github.com/weisyn/contribsync/internal/app"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath  string // 配置文件路径
	Environment string // 使用内嵌配置：dev | test | prod
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "contribsync",
	Short: "学生贡献数据同步服务",
	Long: `contribsync - 从 GitHub 拉取学生近一年的贡献数，分批写回学生记录

配置加载顺序:
  1. --config 指定的文件
  2. 环境变量 CONTRIBSYNC_CONFIG_PATH
  3. --env 选择的内嵌配置
  4. 内嵌开发环境配置`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Environment, "env", "", "使用内嵌配置: dev|test|prod")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(studentsCmd)
	rootCmd.AddCommand(versionCmd)
}

// appOptions 根据全局标志生成应用选项
func appOptions() ([]app.Option, error) {
	if globalFlags.ConfigPath != "" {
		return []app.Option{app.WithConfigFile(globalFlags.ConfigPath)}, nil
	}
	if os.Getenv(app.ConfigPathEnvVar) != "" || globalFlags.Environment == "" {
		return nil, nil
	}
	data, ok := configs.ForEnvironment(globalFlags.Environment)
	if !ok {
		return nil, fmt.Errorf("未知环境 %q，可选值: dev, test, prod", globalFlags.Environment)
	}
	return []app.Option{app.WithEmbeddedConfig(data)}, nil
}

// printJSON 以缩进JSON输出
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
