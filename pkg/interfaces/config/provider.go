// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/contribsync/internal/config/api"
	eventconfig "github.com/weisyn/contribsync/internal/config/event"
	githubconfig "github.com/weisyn/contribsync/internal/config/github"
	logconfig "github.com/weisyn/contribsync/internal/config/log"
	badgerconfig "github.com/weisyn/contribsync/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/contribsync/internal/config/storage/memory"
	redisconfig "github.com/weisyn/contribsync/internal/config/storage/redis"
	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
)

// 存储后端名称
const (
	StorageBackendBadger = "badger"
	StorageBackendRedis  = "redis"
)

// Provider 配置提供者接口
type Provider interface {
	// === 核心配置 ===

	// GetAPI 获取API服务配置
	GetAPI() *apiconfig.APIOptions

	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetEvent 获取事件配置
	GetEvent() *eventconfig.EventOptions

	// GetSync 获取任务调度配置（批次大小、节流间隔、队列深度）
	GetSync() *syncconfig.SyncOptions

	// GetGitHub 获取外部贡献数据源配置
	GetGitHub() *githubconfig.GitHubOptions

	// === 存储引擎配置 ===

	// GetStorageBackend 获取学生记录存储后端：badger | redis
	// 未配置或无法识别时返回 badger
	GetStorageBackend() string

	GetBadger() *badgerconfig.BadgerOptions
	GetMemory() *memoryconfig.MemoryOptions
	GetRedis() *redisconfig.RedisOptions

	// === 环境配置 ===

	// GetEnvironment 获取运行环境：dev | test | prod
	// 未配置时默认为 "prod"（安全优先）
	GetEnvironment() string

	// GetAppName 获取应用名称
	GetAppName() string
}
