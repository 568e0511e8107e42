package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	logconfig "github.com/weisyn/contribsync/internal/config/log"
	"github.com/weisyn/contribsync/pkg/types"
)

// TestStructuredLogging 测试结构化字段
func TestStructuredLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := FromZap(zap.New(core))

	logger.With("jobId", "job-1", "batch", 2).Info("批次完成")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "批次完成", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "job-1", fields["jobId"])
	assert.EqualValues(t, 2, fields["batch"])
}

// TestToZapFields 测试奇数个参数时丢弃最后一个
func TestToZapFields(t *testing.T) {
	fields := toZapFields("a", 1, "b")
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Key)

	fields = toZapFields(42, "answer")
	require.Len(t, fields, 1)
	assert.Equal(t, "42", fields[0].Key)
}

// TestFileOutput 测试写入文件（JSON格式）
func TestFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "contribsync.log")
	cfg := logconfig.New(&types.UserLogConfig{
		Level:    types.StringPtr("debug"),
		FilePath: types.StringPtr(logPath),
	})
	require.False(t, cfg.IsConsoleEnabled(), "指定文件路径后不应输出到控制台")

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Debugf("同步学生 %s", "s-1")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "同步学生 s-1", entry["message"])
}

// TestNewModuleLogger 测试模块日志
func TestNewModuleLogger(t *testing.T) {
	t.Run("nil 基础日志返回空实现", func(t *testing.T) {
		logger := NewModuleLogger(nil, "job")
		require.NotNil(t, logger)
		logger.Info("不会输出")
	})

	t.Run("附加 module 字段", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		logger := NewModuleLogger(FromZap(zap.New(core)), "job")
		logger.Info("任务开始")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "job", logs.All()[0].ContextMap()["module"])
	})
}

// TestGlobalLogger 测试全局日志替换
func TestGlobalLogger(t *testing.T) {
	old := GetLogger()
	defer SetLogger(old)

	core, logs := observer.New(zap.InfoLevel)
	SetLogger(FromZap(zap.New(core)))
	SetLogger(nil) // 忽略 nil

	Infof("hello %d", 1)
	With("k", "v").Info("with")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "hello 1", logs.All()[0].Message)
}
