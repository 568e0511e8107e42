package external

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrHandleNotFound 外部API明确答复账号不存在，不重试
var ErrHandleNotFound = errors.New("handle not found")

// RateLimitError 外部API配额耗尽，不重试
type RateLimitError struct {
	Op         string
	StatusCode int
	ResetAt    time.Time // 配额恢复时间，未知时为零值
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("%s: rate limit exceeded (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: rate limit exceeded (status %d, reset at %s): %s",
		e.Op, e.StatusCode, e.ResetAt.UTC().Format(time.RFC3339), e.Message)
}

// ForbiddenError 请求被拒绝（鉴权失败、资源私有等），不重试
type ForbiddenError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: forbidden (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// TransientError 可重试的失败：超时、5xx、网络错误
type TransientError struct {
	Op         string
	StatusCode int // 网络错误时为 0
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsRateLimit 错误链中是否包含 RateLimitError
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsForbidden 错误链中是否包含 ForbiddenError
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// Retryable 判断错误是否值得再次尝试
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimit(err) || IsForbidden(err) || errors.Is(err, ErrHandleNotFound) {
		return false
	}
	// 调用方取消或超时不属于外部故障
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// outcome 指标标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRateLimit(err):
		return "rate_limited"
	case IsForbidden(err):
		return "forbidden"
	case errors.Is(err, ErrHandleNotFound):
		return "not_found"
	default:
		return "transient"
	}
}
