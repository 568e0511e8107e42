// Package external 封装对外部代码托管平台的访问：限速、重试与退避
package external

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	githubconfig "github.com/weisyn/contribsync/internal/config/github"
	"github.com/weisyn/contribsync/internal/core/infrastructure/metrics"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

const (
	OpHandleExists       = "handle_exists"
	OpTotalContributions = "total_contributions"
)

// Client 带重试的外部API客户端
type Client struct {
	fetcher contribution.ContributionFetcher
	policy  RetryPolicy
	limiter *rate.Limiter
	metrics *metrics.SyncMetrics
	logger  log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

var _ contribution.ExternalClient = (*Client)(nil)

// ClientOptions 客户端依赖，零值字段使用默认行为
type ClientOptions struct {
	Policy  RetryPolicy
	Limiter *rate.Limiter // nil 表示不限速
	Metrics *metrics.SyncMetrics
	Logger  log.Logger
}

// NewClient 创建客户端
func NewClient(fetcher contribution.ContributionFetcher, opts ClientOptions) *Client {
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Client{
		fetcher: fetcher,
		policy:  policy,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		sleep:   SleepContext,
	}
}

// NewClientFromConfig 按 GitHub 配置组装限速器与重试策略
func NewClientFromConfig(fetcher contribution.ContributionFetcher, cfg *githubconfig.Config, m *metrics.SyncMetrics, logger log.Logger) *Client {
	opts := cfg.GetOptions()
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return NewClient(fetcher, ClientOptions{
		Policy: RetryPolicy{
			MaxAttempts:   opts.MaxAttempts,
			BaseDelay:     opts.BaseDelay,
			BackoffFactor: 2,
		},
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	})
}

// HandleExists 账号是否存在
func (c *Client) HandleExists(ctx context.Context, handle string) (bool, error) {
	return Call(ctx, c, OpHandleExists, func(ctx context.Context) (bool, error) {
		return c.fetcher.HandleExists(ctx, handle)
	})
}

// TotalContributions 窗口内贡献总数
func (c *Client) TotalContributions(ctx context.Context, handle string, windowDays int) (*int, error) {
	return Call(ctx, c, OpTotalContributions, func(ctx context.Context) (*int, error) {
		return c.fetcher.TotalContributions(ctx, handle, windowDays)
	})
}

// Call 按客户端的重试策略执行 fn
//
// RateLimitError、ForbiddenError 与 ErrHandleNotFound 立即返回；其余错误在预算内重试，
// 预算耗尽后返回最后一次的错误。ctx 结束时停止等待并返回 ctx 的错误。
func Call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	attempts := c.policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.metrics.ExternalRetry(op)
			if err := c.sleep(ctx, c.policy.NextDelay(attempt)); err != nil {
				return zero, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}

		v, err := fn(ctx)
		c.metrics.ExternalAttempt(op, outcome(err))
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !Retryable(err) {
			return zero, err
		}
		if c.logger != nil && attempt < attempts {
			c.logger.Debugf("外部调用失败，准备重试: op=%s attempt=%d/%d err=%v", op, attempt, attempts, err)
		}
	}
	if c.logger != nil {
		c.logger.Warnf("外部调用重试耗尽: op=%s attempts=%d err=%v", op, attempts, lastErr)
	}
	return zero, lastErr
}
