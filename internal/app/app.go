package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/weisyn/contribsync/configs"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/types"
)

// ConfigPathEnvVar 配置文件路径环境变量
const ConfigPathEnvVar = "CONTRIBSYNC_CONFIG_PATH"

// appModule 提供应用配置选项，供config模块使用
func appModule(opts *options) fx.Option {
	return fx.Provide(func() config.AppOptions { return opts })
}

// resolveAppConfig 解析配置，优先级：
//  1. WithAppConfig
//  2. WithEmbeddedConfig
//  3. WithConfigFile（--config）
//  4. 环境变量 CONTRIBSYNC_CONFIG_PATH
//  5. 内嵌的开发环境配置
//
// 字段使用指针类型：nil 表示未设置，使用默认值；显式的零值同样生效。
func resolveAppConfig(opts *options) (*types.AppConfig, string, error) {
	if opts.appConfig != nil {
		return opts.appConfig, "options", nil
	}
	if len(opts.embeddedConfig) > 0 {
		cfg, err := parseAppConfig(opts.embeddedConfig)
		return cfg, "embedded", err
	}

	path := opts.configFilePath
	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path == "" {
		cfg, err := parseAppConfig(configs.GetDevelopmentConfig())
		return cfg, "embedded:development", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("读取配置文件失败: %w", err)
	}
	cfg, err := parseAppConfig(data)
	return cfg, path, err
}

func parseAppConfig(data []byte) (*types.AppConfig, error) {
	var appConfig types.AppConfig
	if err := json.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &appConfig, nil
}

// createDataDirectories 根据配置创建存储与日志目录
func createDataDirectories(appConfig *types.AppConfig) error {
	var directories []string

	if s := appConfig.Storage; s != nil && s.DataPath != nil && (s.InMemory == nil || !*s.InMemory) {
		directories = append(directories, *s.DataPath)
	}
	if appConfig.Log != nil && appConfig.Log.FilePath != nil && *appConfig.Log.FilePath != "" {
		directories = append(directories, filepath.Dir(*appConfig.Log.FilePath))
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// App 应用对外接口
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，然后停止应用
	Wait()
}

type internalApp struct {
	bootstrap *Bootstrap
}

// Stop 停止应用，留足时间让运行中的批次结束、存储完成落盘
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待 SIGINT/SIGTERM
func (a *internalApp) Wait() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	sig := <-signals
	fmt.Fprintf(os.Stderr, "收到信号 %v，正在优雅退出...\n", sig)

	if err := a.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "停止应用时出错: %v\n", err)
	}
}

// Start 解析配置、装配并启动应用
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)

	appConfig, source, err := resolveAppConfig(opts)
	if err != nil {
		return nil, err
	}
	opts.appConfig = appConfig

	if err := createDataDirectories(appConfig); err != nil {
		// 目录创建失败不阻止启动，存储模块会给出更具体的错误
		fmt.Fprintf(os.Stderr, "创建数据目录失败: %v\n", err)
	}

	bootstrap := NewBootstrap(opts, source)
	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bootstrap.StartApp(startupCtx); err != nil {
		return nil, err
	}

	return &internalApp{bootstrap: bootstrap}, nil
}
