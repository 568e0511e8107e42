package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	configtypes "github.com/weisyn/contribsync/pkg/types"
)

func TestNew(t *testing.T) {
	t.Run("默认启用", func(t *testing.T) {
		cfg := New(nil)
		assert.True(t, cfg.IsEnabled())
		assert.Equal(t, defaultMaxSubscribers, cfg.GetMaxSubscribers())
	})

	t.Run("用户配置关闭", func(t *testing.T) {
		cfg := New(&configtypes.UserEventConfig{Enabled: configtypes.BoolPtr(false)})
		assert.False(t, cfg.IsEnabled())
	})

	t.Run("未知配置类型被忽略", func(t *testing.T) {
		cfg := New("bogus")
		assert.True(t, cfg.IsEnabled())
	})
}
