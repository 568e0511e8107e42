package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/configs"
	"github.com/weisyn/contribsync/pkg/types"
)

func TestResolveAppConfig(t *testing.T) {
	t.Run("显式配置优先", func(t *testing.T) {
		cfg := &types.AppConfig{Environment: types.StringPtr("test")}
		opts := newOptions(WithAppConfig(cfg), WithConfigFile("/not/exist.json"))

		got, source, err := resolveAppConfig(opts)
		require.NoError(t, err)
		assert.Same(t, cfg, got)
		assert.Equal(t, "options", source)
	})

	t.Run("内嵌配置", func(t *testing.T) {
		opts := newOptions(WithEmbeddedConfig(configs.GetTestingConfig()))

		got, source, err := resolveAppConfig(opts)
		require.NoError(t, err)
		assert.Equal(t, "embedded", source)
		require.NotNil(t, got.Environment)
		assert.Equal(t, "test", *got.Environment)
	})

	t.Run("配置文件路径", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"environment":"prod","sync":{"batch_size":20}}`), 0o600))

		got, source, err := resolveAppConfig(newOptions(WithConfigFile(path)))
		require.NoError(t, err)
		assert.Equal(t, path, source)
		assert.Equal(t, 20, *got.Sync.BatchSize)
	})

	t.Run("环境变量指定路径", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "env.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"environment":"test"}`), 0o600))
		t.Setenv(ConfigPathEnvVar, path)

		_, source, err := resolveAppConfig(newOptions())
		require.NoError(t, err)
		assert.Equal(t, path, source)
	})

	t.Run("缺省使用开发配置", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")

		got, source, err := resolveAppConfig(newOptions())
		require.NoError(t, err)
		assert.Equal(t, "embedded:development", source)
		assert.Equal(t, "dev", *got.Environment)
	})

	t.Run("非法JSON", func(t *testing.T) {
		_, _, err := resolveAppConfig(newOptions(WithEmbeddedConfig([]byte("{"))))
		assert.Error(t, err)
	})

	t.Run("文件不存在", func(t *testing.T) {
		_, _, err := resolveAppConfig(newOptions(WithConfigFile(filepath.Join(t.TempDir(), "missing.json"))))
		assert.Error(t, err)
	})
}

func TestCreateDataDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := &types.AppConfig{
		Storage: &types.UserStorageConfig{DataPath: types.StringPtr(filepath.Join(dir, "badger"))},
		Log:     &types.UserLogConfig{FilePath: types.StringPtr(filepath.Join(dir, "logs", "app.log"))},
	}

	require.NoError(t, createDataDirectories(cfg))
	assert.DirExists(t, filepath.Join(dir, "badger"))
	assert.DirExists(t, filepath.Join(dir, "logs"))

	// 内存模式不创建数据目录
	memDir := filepath.Join(dir, "memory")
	cfg = &types.AppConfig{
		Storage: &types.UserStorageConfig{DataPath: types.StringPtr(memDir), InMemory: types.BoolPtr(true)},
	}
	require.NoError(t, createDataDirectories(cfg))
	assert.NoDirExists(t, memDir)
}

func TestBootstrapGraph(t *testing.T) {
	cfg, err := parseAppConfig(configs.GetTestingConfig())
	require.NoError(t, err)

	t.Run("完整依赖图", func(t *testing.T) {
		b := NewBootstrap(newOptions(WithAppConfig(cfg)), "test")
		assert.NoError(t, fx.ValidateApp(b.FxOptions()...))
	})

	t.Run("不含API", func(t *testing.T) {
		b := NewBootstrap(newOptions(WithAppConfig(cfg), WithoutAPI()), "test")
		assert.Empty(t, b.SetupApplicationLayer())
		assert.NoError(t, fx.ValidateApp(b.FxOptions()...))
	})
}
