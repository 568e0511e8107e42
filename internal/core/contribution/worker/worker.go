// Package worker 实现单个学生的贡献同步
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/weisyn/contribsync/internal/core/contribution/external"
	"github.com/weisyn/contribsync/internal/core/infrastructure/metrics"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/types"
)

// 失败信息，写入 SyncResult.Error
const (
	MsgHandleNotFound = "handle not found or private"
	MsgFetchFailed    = "failed to fetch contribution data"
	MsgUpdateFailed   = "update failed"
	MsgRateLimited    = "external API rate limit exceeded"
	MsgUnexpected     = "unexpected error"
)

// Worker 单实体同步器，所有失败都体现在返回的 SyncResult 中
type Worker struct {
	client     contribution.ExternalClient
	gateway    contribution.PersistenceGateway
	windowDays int
	metrics    *metrics.SyncMetrics
	logger     log.Logger
	now        func() time.Time
}

var _ contribution.EntitySyncer = (*Worker)(nil)

// New 创建同步器，windowDays<=0 时使用 365
func New(client contribution.ExternalClient, gateway contribution.PersistenceGateway, windowDays int, m *metrics.SyncMetrics, logger log.Logger) *Worker {
	if windowDays <= 0 {
		windowDays = 365
	}
	return &Worker{
		client:     client,
		gateway:    gateway,
		windowDays: windowDays,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Sync 拉取学生最近窗口内的贡献总数并覆盖写回
func (w *Worker) Sync(ctx context.Context, student types.Student) (result types.SyncResult) {
	start := w.now()
	result = types.SyncResult{
		ID:       student.ID,
		Handle:   student.GitHubHandle,
		OldCount: student.ContributionCount,
		NewCount: student.ContributionCount,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = MsgUnexpected
			result.ErrorKind = types.ErrorKindFetchFailed
			if w.logger != nil {
				w.logger.Errorf("学生同步发生panic: id=%s handle=%s panic=%v", student.ID, student.GitHubHandle, r)
			}
		}
		elapsed := w.now().Sub(start)
		result.DurationMs = elapsed.Milliseconds()
		w.metrics.ObserveEntityDuration(elapsed.Seconds())
	}()

	handle := student.GitHubHandle
	if handle == "" {
		return fail(result, MsgHandleNotFound, types.ErrorKindNotFound)
	}

	exists, err := w.client.HandleExists(ctx, handle)
	switch {
	case external.IsRateLimit(err):
		return fail(result, MsgRateLimited, types.ErrorKindRateLimited)
	case external.IsForbidden(err):
		return fail(result, MsgHandleNotFound, types.ErrorKindNotFound)
	case err != nil:
		w.debugf("账号检查失败: id=%s handle=%s err=%v", student.ID, handle, err)
		return fail(result, MsgFetchFailed, types.ErrorKindFetchFailed)
	case !exists:
		return fail(result, MsgHandleNotFound, types.ErrorKindNotFound)
	}

	total, err := w.client.TotalContributions(ctx, handle, w.windowDays)
	switch {
	case external.IsRateLimit(err):
		return fail(result, MsgRateLimited, types.ErrorKindRateLimited)
	case errors.Is(err, external.ErrHandleNotFound):
		// 账号在两次调用之间被删除或改名
		return fail(result, MsgHandleNotFound, types.ErrorKindNotFound)
	case err != nil:
		w.debugf("贡献数获取失败: id=%s handle=%s err=%v", student.ID, handle, err)
		return fail(result, MsgFetchFailed, types.ErrorKindFetchFailed)
	case total == nil:
		return fail(result, MsgFetchFailed, types.ErrorKindFetchFailed)
	}

	// 窗口总数是绝对值，直接覆盖
	upd, err := w.gateway.UpdateEntity(ctx, student.ID, types.ContributionUpdate{
		ContributionCount: *total,
		LastSyncTime:      w.now().UTC(),
	})
	if err != nil || !upd.Matched {
		if err != nil {
			w.debugf("写回失败: id=%s err=%v", student.ID, err)
		}
		return fail(result, MsgUpdateFailed, types.ErrorKindPersistence)
	}

	result.NewCount = *total
	result.Success = true
	return result
}

func fail(r types.SyncResult, msg string, kind types.ErrorKind) types.SyncResult {
	r.Success = false
	r.Error = msg
	r.ErrorKind = kind
	return r
}

func (w *Worker) debugf(format string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Debugf(format, args...)
	}
}
