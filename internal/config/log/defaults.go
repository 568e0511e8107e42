package log

import (
	"go.uber.org/zap/zapcore"
)

// 日志配置默认值
const (
	// defaultLogLevel 默认日志级别设为"info"
	// 原因：记录任务生命周期和批次进度，不逐条记录外部请求
	defaultLogLevel = "info"

	// defaultToConsole 默认启用控制台输出
	defaultToConsole = true

	// defaultFilePath 默认不写日志文件
	// 原因：容器环境通常由标准输出收集日志
	defaultFilePath = ""

	// === 日志轮转配置（lumberjack） ===

	// defaultMaxSize 单个日志文件最大100MB
	defaultMaxSize = 100

	// defaultMaxBackups 最多保留10个备份
	defaultMaxBackups = 10

	// defaultMaxAge 日志保留30天
	defaultMaxAge = 30

	// defaultCompress 压缩历史日志
	defaultCompress = true

	// === 调试配置 ===

	defaultEnableCaller     = true
	defaultEnableStacktrace = true
)

// 默认的日志级别映射
var defaultLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zapcore.PanicLevel,
	"fatal": zapcore.FatalLevel,
}
