package config

import (
	"strings"

	"github.com/weisyn/contribsync/internal/config/api"
	"github.com/weisyn/contribsync/internal/config/event"
	"github.com/weisyn/contribsync/internal/config/github"
	"github.com/weisyn/contribsync/internal/config/log"
	"github.com/weisyn/contribsync/internal/config/storage/badger"
	"github.com/weisyn/contribsync/internal/config/storage/memory"
	"github.com/weisyn/contribsync/internal/config/storage/redis"
	"github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/types"
)

const defaultAppName = "contribsync"

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	// api.New会处理默认值应用和用户配置覆盖
	return api.New(p.appConfig.API).GetOptions()
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	return log.New(p.appConfig.Log).GetOptions()
}

// GetEvent 获取事件配置
func (p *Provider) GetEvent() *event.EventOptions {
	return event.New(p.appConfig.Event).GetOptions()
}

// GetSync 获取任务调度配置
func (p *Provider) GetSync() *sync.SyncOptions {
	return sync.New(p.appConfig.Sync).GetOptions()
}

// GetGitHub 获取外部贡献数据源配置
func (p *Provider) GetGitHub() *github.GitHubOptions {
	return github.New(p.appConfig.GitHub).GetOptions()
}

// === 存储引擎配置方法 ===

// GetStorageBackend 获取学生记录存储后端
func (p *Provider) GetStorageBackend() string {
	if p.appConfig.Storage != nil && p.appConfig.Storage.Backend != nil {
		backend := strings.ToLower(strings.TrimSpace(*p.appConfig.Storage.Backend))
		if backend == config.StorageBackendRedis {
			return config.StorageBackendRedis
		}
	}
	return config.StorageBackendBadger
}

// GetBadger 获取BadgerDB存储配置
func (p *Provider) GetBadger() *badger.BadgerOptions {
	return badger.New(p.appConfig.Storage).GetOptions()
}

// GetMemory 获取内存存储配置
func (p *Provider) GetMemory() *memory.MemoryOptions {
	return memory.New(p.appConfig.Storage).GetOptions()
}

// GetRedis 获取Redis存储配置
func (p *Provider) GetRedis() *redis.RedisOptions {
	return redis.New(p.appConfig.Storage).GetOptions()
}

// === 环境配置 ===

// GetEnvironment 获取运行环境
func (p *Provider) GetEnvironment() string {
	if p.appConfig.Environment == nil {
		return "prod"
	}
	switch env := strings.ToLower(*p.appConfig.Environment); env {
	case "dev", "test", "prod":
		return env
	default:
		return "prod"
	}
}

// GetAppName 获取应用名称
func (p *Provider) GetAppName() string {
	if p.appConfig.AppName != nil && *p.appConfig.AppName != "" {
		return *p.appConfig.AppName
	}
	return defaultAppName
}
