package github

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	configtypes "github.com/weisyn/contribsync/pkg/types"
)

func TestNew(t *testing.T) {
	t.Run("默认值", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "")
		opts := New(nil).GetOptions()
		assert.Equal(t, "https://api.github.com", opts.BaseURL)
		assert.Equal(t, 4, opts.MaxAttempts)
		assert.Equal(t, time.Second, opts.BaseDelay)
		assert.Empty(t, opts.Token)
	})

	t.Run("用户配置覆盖", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "")
		cfg := New(&configtypes.UserGitHubConfig{
			BaseURL:     configtypes.StringPtr("http://localhost:9999"),
			Token:       configtypes.StringPtr("file-token"),
			BaseDelayMs: configtypes.IntPtr(0),
			MaxAttempts: configtypes.IntPtr(2),
		})
		opts := cfg.GetOptions()
		assert.Equal(t, "http://localhost:9999", opts.BaseURL)
		assert.Equal(t, time.Duration(0), opts.BaseDelay)
		assert.Equal(t, 2, opts.MaxAttempts)
		assert.True(t, cfg.HasToken())
	})

	t.Run("环境变量优先", func(t *testing.T) {
		t.Setenv(TokenEnvVar, "env-token")
		cfg := New(&configtypes.UserGitHubConfig{Token: configtypes.StringPtr("file-token")})
		assert.Equal(t, "env-token", cfg.GetOptions().Token)
	})
}
