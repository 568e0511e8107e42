package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/types"
)

// TestGetEnvironment 测试 GetEnvironment() 方法
func TestGetEnvironment(t *testing.T) {
	t.Run("显式配置 dev", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{Environment: types.StringPtr("dev")})
		assert.Equal(t, "dev", provider.GetEnvironment())
	})

	t.Run("显式配置 test", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{Environment: types.StringPtr("TEST")})
		assert.Equal(t, "test", provider.GetEnvironment())
	})

	t.Run("未配置时默认为 prod（安全优先）", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{})
		assert.Equal(t, "prod", provider.GetEnvironment())
	})

	t.Run("无效值默认为 prod", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{Environment: types.StringPtr("invalid")})
		assert.Equal(t, "prod", provider.GetEnvironment())
	})

	t.Run("nil 配置", func(t *testing.T) {
		provider := NewProvider(nil)
		assert.Equal(t, "prod", provider.GetEnvironment())
		assert.Equal(t, "contribsync", provider.GetAppName())
	})
}

// TestGetStorageBackend 测试存储后端选择
func TestGetStorageBackend(t *testing.T) {
	t.Run("默认 badger", func(t *testing.T) {
		assert.Equal(t, config.StorageBackendBadger, NewProvider(nil).GetStorageBackend())
	})

	t.Run("redis 大小写不敏感", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{
			Storage: &types.UserStorageConfig{Backend: types.StringPtr(" Redis ")},
		})
		assert.Equal(t, config.StorageBackendRedis, provider.GetStorageBackend())
	})

	t.Run("未知后端回退到 badger", func(t *testing.T) {
		provider := NewProvider(&types.AppConfig{
			Storage: &types.UserStorageConfig{Backend: types.StringPtr("mongodb")},
		})
		assert.Equal(t, config.StorageBackendBadger, provider.GetStorageBackend())
	})
}

// TestSectionOverrides 测试各配置段的用户覆盖透传
func TestSectionOverrides(t *testing.T) {
	provider := NewProvider(&types.AppConfig{
		API: &types.UserAPIConfig{
			HTTPPort:   types.IntPtr(9090),
			WriteLimit: types.IntPtr(7),
		},
		Log: &types.UserLogConfig{Level: types.StringPtr("debug")},
		Sync: &types.UserSyncConfig{
			BatchSize:     types.IntPtr(25),
			PacingDelayMs: types.IntPtr(200),
		},
		Storage: &types.UserStorageConfig{
			DataPath: types.StringPtr("/tmp/contribsync"),
			InMemory: types.BoolPtr(true),
			Redis: &types.UserRedisConfig{
				Addr:      types.StringPtr("redis:6379"),
				KeyPrefix: types.StringPtr("cs:"),
			},
		},
	})

	api := provider.GetAPI()
	require.NotNil(t, api)
	assert.Equal(t, 9090, api.HTTP.Port)
	assert.Equal(t, 7, api.RateLimit.WriteLimit)

	assert.Equal(t, "debug", provider.GetLog().Level)

	syncOpts := provider.GetSync()
	assert.Equal(t, 25, syncOpts.BatchSize)
	assert.Equal(t, 200*time.Millisecond, syncOpts.PacingDelay)

	badgerOpts := provider.GetBadger()
	assert.Equal(t, "/tmp/contribsync/badger", badgerOpts.Path)
	assert.True(t, badgerOpts.InMemory)

	redisOpts := provider.GetRedis()
	assert.Equal(t, "redis:6379", redisOpts.Addr)
	assert.Equal(t, "cs:", redisOpts.KeyPrefix)

	assert.True(t, provider.GetEvent().Enabled)
	assert.NotNil(t, provider.GetMemory())
}
