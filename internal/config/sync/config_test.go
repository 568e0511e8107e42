package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	configtypes "github.com/weisyn/contribsync/pkg/types"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New(nil)

	assert.Equal(t, 10, cfg.GetBatchSize())
	assert.Equal(t, time.Second, cfg.GetPacingDelay())
	assert.Equal(t, 10, cfg.GetMaxQueueDepth())
	assert.Equal(t, 50, cfg.GetJobHistoryLimit())
	assert.Equal(t, 365, cfg.GetWindowDays())
}

func TestNew_UserOverrides(t *testing.T) {
	cfg := New(&configtypes.UserSyncConfig{
		BatchSize:     configtypes.IntPtr(80),
		PacingDelayMs: configtypes.IntPtr(0),
		MaxQueueDepth: configtypes.IntPtr(3),
	})

	assert.Equal(t, MaxBatchSize, cfg.GetBatchSize(), "超过上限应被截断")
	assert.Equal(t, time.Duration(0), cfg.GetPacingDelay(), "显式设置为0应被采用")
	assert.Equal(t, 3, cfg.GetMaxQueueDepth())
}

func TestClampBatchSize(t *testing.T) {
	cases := map[int]int{
		-5: 10,
		0:  10,
		1:  1,
		7:  7,
		50: 50,
		51: 50,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClampBatchSize(in), "input %d", in)
	}
}
