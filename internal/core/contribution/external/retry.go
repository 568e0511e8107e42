package external

import (
	"context"
	"time"
)

// RetryPolicy 外部调用的重试策略
//
// 第 n 次尝试（n>=2）之前等待 BaseDelay * BackoffFactor^(n-2)。
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration // 0 表示不封顶
}

// DefaultRetryPolicy 4 次尝试，间隔 1s、2s、4s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   4,
		BaseDelay:     time.Second,
		BackoffFactor: 2,
	}
}

// NextDelay 返回第 attempt 次尝试之前的等待时间，首次尝试不等待
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 2
	}
	d := float64(p.BaseDelay)
	for i := 2; i < attempt; i++ {
		d *= factor
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// SleepContext 等待 d 或 ctx 结束，退避与批次间隔共用
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
