package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/contribsync/internal/core/contribution/external"
	"github.com/weisyn/contribsync/internal/core/contribution/testutil"
	"github.com/weisyn/contribsync/pkg/types"
)

func TestWorker_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("覆盖写入窗口总数", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 100))
		client := testutil.NewFakeClient().SetTotal("alice", 140)
		w := New(client, repo, 365, nil, nil)

		st, _ := repo.GetStudent(ctx, "s1")
		res := w.Sync(ctx, *st)

		require.True(t, res.Success)
		assert.Equal(t, 100, res.OldCount)
		assert.Equal(t, 140, res.NewCount)
		assert.Equal(t, 140, repo.Count("s1"))

		// 再同步一次不会累加
		st, _ = repo.GetStudent(ctx, "s1")
		res = w.Sync(ctx, *st)
		require.True(t, res.Success)
		assert.Equal(t, 140, repo.Count("s1"))
	})

	t.Run("账号不存在", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "ghost", 5))
		client := testutil.NewFakeClient()
		client.Exists["ghost"] = false
		w := New(client, repo, 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("s1", "ghost", 5))
		assert.False(t, res.Success)
		assert.Equal(t, MsgHandleNotFound, res.Error)
		assert.Equal(t, types.ErrorKindNotFound, res.ErrorKind)
		assert.Equal(t, 5, repo.Count("s1"))
		assert.Equal(t, "ghost", res.Handle)
	})

	t.Run("账号为空", func(t *testing.T) {
		w := New(testutil.NewFakeClient(), testutil.NewMemoryRepository(), 365, nil, nil)
		res := w.Sync(ctx, testutil.Student("s1", "", 0))
		assert.Equal(t, MsgHandleNotFound, res.Error)
	})

	t.Run("私有账号", func(t *testing.T) {
		client := testutil.NewFakeClient()
		client.HandleErr["hidden"] = &external.ForbiddenError{StatusCode: 403}
		w := New(client, testutil.NewMemoryRepository(), 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("s1", "hidden", 0))
		assert.Equal(t, MsgHandleNotFound, res.Error)
		assert.Equal(t, types.ErrorKindNotFound, res.ErrorKind)
	})

	t.Run("账号检查重试耗尽", func(t *testing.T) {
		client := testutil.NewFakeClient()
		client.HandleErr["slow"] = &external.TransientError{Err: context.DeadlineExceeded}
		w := New(client, testutil.NewMemoryRepository(), 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("s1", "slow", 0))
		assert.Equal(t, MsgFetchFailed, res.Error)
		assert.Equal(t, types.ErrorKindFetchFailed, res.ErrorKind)
	})

	t.Run("限流单独分类", func(t *testing.T) {
		client := testutil.NewFakeClient()
		client.TotalErr["busy"] = &external.RateLimitError{StatusCode: 429}
		w := New(client, testutil.NewMemoryRepository(), 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("s1", "busy", 0))
		assert.Equal(t, MsgRateLimited, res.Error)
		assert.Equal(t, types.ErrorKindRateLimited, res.ErrorKind)
	})

	t.Run("查询贡献时账号已不存在", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "gone", 7))
		client := testutil.NewFakeClient()
		client.TotalErr["gone"] = fmt.Errorf("total_contributions: %w", external.ErrHandleNotFound)
		w := New(client, repo, 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("s1", "gone", 7))
		assert.False(t, res.Success)
		assert.Equal(t, MsgHandleNotFound, res.Error)
		assert.Equal(t, types.ErrorKindNotFound, res.ErrorKind)
		assert.Equal(t, 7, repo.Count("s1"))
	})

	t.Run("贡献数为空", func(t *testing.T) {
		w := New(testutil.NewFakeClient(), testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0)), 365, nil, nil)
		res := w.Sync(ctx, testutil.Student("s1", "alice", 0))
		assert.Equal(t, MsgFetchFailed, res.Error)
	})

	t.Run("记录不存在", func(t *testing.T) {
		client := testutil.NewFakeClient().SetTotal("alice", 3)
		w := New(client, testutil.NewMemoryRepository(), 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("missing", "alice", 0))
		assert.Equal(t, MsgUpdateFailed, res.Error)
		assert.Equal(t, types.ErrorKindPersistence, res.ErrorKind)
	})

	t.Run("写回出错", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0))
		repo.UpdateErr = errors.New("disk full")
		w := New(testutil.NewFakeClient().SetTotal("alice", 3), repo, 365, nil, nil)

		res := w.Sync(ctx, testutil.Student("s1", "alice", 0))
		assert.Equal(t, MsgUpdateFailed, res.Error)
	})

	t.Run("panic 转为失败结果", func(t *testing.T) {
		client := testutil.NewFakeClient()
		client.Hook = func(ctx context.Context, op, handle string) { panic("boom") }
		w := New(client, testutil.NewMemoryRepository(), 365, nil, nil)

		var res types.SyncResult
		assert.NotPanics(t, func() {
			res = w.Sync(ctx, testutil.Student("s1", "alice", 0))
		})
		assert.False(t, res.Success)
		assert.Equal(t, MsgUnexpected, res.Error)
	})

	t.Run("记录耗时", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0))
		w := New(testutil.NewFakeClient().SetTotal("alice", 1), repo, 365, nil, nil)
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		calls := 0
		w.now = func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * 250 * time.Millisecond)
		}

		res := w.Sync(ctx, testutil.Student("s1", "alice", 0))
		require.True(t, res.Success)
		assert.Positive(t, res.DurationMs)
	})
}
