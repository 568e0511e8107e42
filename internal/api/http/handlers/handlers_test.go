package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/contribsync/internal/api/http/middleware"
	"github.com/weisyn/contribsync/internal/api/http/types"
	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/internal/core/contribution/job"
	"github.com/weisyn/contribsync/internal/core/contribution/testutil"
	"github.com/weisyn/contribsync/internal/core/contribution/worker"
	logpkg "github.com/weisyn/contribsync/internal/core/infrastructure/log"
	pkgtypes "github.com/weisyn/contribsync/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router  *gin.Engine
	repo    *testutil.MemoryRepository
	client  *testutil.FakeClient
	manager *job.Manager
}

func newFixture(t *testing.T, students ...pkgtypes.Student) *fixture {
	t.Helper()
	logger := logpkg.NewNop()

	repo := testutil.NewMemoryRepository(students...)
	client := testutil.NewFakeClient()
	cfg := syncconfig.NewFromOptions(&syncconfig.SyncOptions{
		BatchSize:       10,
		MaxQueueDepth:   10,
		JobHistoryLimit: 50,
		WindowDays:      365,
	})
	syncer := worker.New(client, repo, cfg.GetWindowDays(), nil, logger)
	manager := job.New(cfg, repo, syncer, nil, nil, nil, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Stop(ctx)
	})

	r := gin.New()
	r.Use(middleware.NewRequestID().Middleware())
	NewHealthHandler(logger, repo, manager).RegisterRoutes(r)
	v1 := r.Group("/api/v1")
	NewSyncHandlers(manager, repo, logger).RegisterRoutes(v1.Group("/sync"))
	NewJobHandlers(manager, repo, logger).RegisterRoutes(v1.Group("/sync/jobs"))

	return &fixture{router: r, repo: repo, client: client, manager: manager}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp types.ErrorResponse
	decode(t, w, &resp)
	return resp.Error.Code
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

func classStudents() []pkgtypes.Student {
	return []pkgtypes.Student{
		testutil.Student("a", "alice", 100),
		testutil.Student("b", "bob", 5),
		testutil.Student("c", "ghost", 0),
	}
}

func (f *fixture) seedClass() {
	f.client.SetTotal("alice", 140).SetTotal("bob", 7)
	f.client.Exists["ghost"] = false
}

// ==================== POST /sync ====================

func TestSyncAll(t *testing.T) {
	t.Run("全部学生同步并返回汇总", func(t *testing.T) {
		f := newFixture(t, classStudents()...)
		f.seedClass()

		w := f.do(http.MethodPost, "/api/v1/sync", `{"batchSize":2}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp types.SyncResponse
		decode(t, w, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, pkgtypes.JobStatusCompleted, resp.Status)
		assert.Equal(t, 3, resp.TotalUsers)
		assert.Equal(t, 2, resp.Successful)
		assert.Equal(t, 1, resp.Failed)

		require.Len(t, resp.Errors, 1)
		assert.Equal(t, types.SyncErrorItem{ID: "c", Handle: "ghost", Error: worker.MsgHandleNotFound}, resp.Errors[0])

		require.Len(t, resp.ProcessedUsers, 2)
		byID := map[string]types.ProcessedUser{}
		for _, u := range resp.ProcessedUsers {
			byID[u.ID] = u
		}
		assert.Equal(t, 100, byID["a"].OldCount)
		assert.Equal(t, 140, byID["a"].NewCount)

		assert.Equal(t, 140, f.repo.Count("a"))
		assert.Equal(t, 7, f.repo.Count("b"))
	})

	t.Run("dryRun仍然写回但不返回processedUsers", func(t *testing.T) {
		f := newFixture(t, classStudents()...)
		f.seedClass()

		w := f.do(http.MethodPost, "/api/v1/sync", `{"dryRun":true}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.SyncResponse
		decode(t, w, &resp)
		assert.Equal(t, 2, resp.Successful)
		assert.Empty(t, resp.ProcessedUsers)
		assert.Equal(t, 140, f.repo.Count("a"))
	})

	t.Run("空请求体使用默认批次", func(t *testing.T) {
		f := newFixture(t, classStudents()...)
		f.seedClass()

		w := f.do(http.MethodPost, "/api/v1/sync", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.SyncResponse
		decode(t, w, &resp)
		job, ok := f.manager.GetJob(resp.JobID)
		require.True(t, ok)
		assert.Equal(t, 10, job.BatchSize)
	})

	t.Run("全部失败时success为false但仍返回200", func(t *testing.T) {
		f := newFixture(t, testutil.Student("c", "ghost", 0))
		f.client.Exists["ghost"] = false

		w := f.do(http.MethodPost, "/api/v1/sync", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.SyncResponse
		decode(t, w, &resp)
		assert.False(t, resp.Success)
		assert.Equal(t, pkgtypes.JobStatusFailed, resp.Status)
		assert.Equal(t, 1, resp.Failed)
	})

	t.Run("批次大小越界返回400", func(t *testing.T) {
		f := newFixture(t, classStudents()...)
		for _, body := range []string{`{"batchSize":0}`, `{"batchSize":51}`, `{"batchSize":"x"}`} {
			w := f.do(http.MethodPost, "/api/v1/sync", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
			assert.Equal(t, types.ErrInvalidArgument, errorCode(t, w), body)
		}
	})

	t.Run("没有学生时返回EMPTY_INPUT", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodPost, "/api/v1/sync", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, types.ErrEmptyInput, errorCode(t, w))
	})

	t.Run("加载学生失败返回500", func(t *testing.T) {
		f := newFixture(t, classStudents()...)
		f.repo.ListErr = testutil.ErrInjected
		w := f.do(http.MethodPost, "/api/v1/sync", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, types.ErrInternal, errorCode(t, w))
	})
}

// ==================== GET /sync ====================

func TestGetStatus(t *testing.T) {
	f := newFixture(t, classStudents()...)
	f.seedClass()

	var before types.SyncStatusResponse
	w := f.do(http.MethodGet, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &before)
	assert.Equal(t, 3, before.TotalStudents)
	assert.Equal(t, 0, before.SyncedStudents)
	assert.Nil(t, before.CurrentJob)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/sync", "").Code)

	var after types.SyncStatusResponse
	decode(t, f.do(http.MethodGet, "/api/v1/sync", ""), &after)
	assert.Equal(t, 2, after.SyncedStudents)
	assert.Equal(t, 1, after.UnsyncedStudents)
	assert.InDelta(t, 66.67, after.SyncRate, 0.001)
	assert.Len(t, after.RecentlySynced, 2)
	assert.NotNil(t, after.LastSyncTime)
}

// ==================== /sync/student/:id ====================

func TestStudentEndpoints(t *testing.T) {
	f := newFixture(t, classStudents()...)
	f.seedClass()

	t.Run("未同步的学生", func(t *testing.T) {
		var resp types.StudentSyncResponse
		w := f.do(http.MethodGet, "/api/v1/sync/student/a", "")
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &resp)
		assert.Equal(t, "alice", resp.GitHubHandle)
		assert.False(t, resp.Synced)
		assert.Nil(t, resp.LastSyncTime)
		assert.Nil(t, resp.ActiveStatus)
	})

	t.Run("单人同步返回结果", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/sync/student/a", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.IndividualSyncResponse
		decode(t, w, &resp)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Result)
		assert.Equal(t, 100, resp.Result.OldCount)
		assert.Equal(t, 140, resp.Result.NewCount)

		var student types.StudentSyncResponse
		decode(t, f.do(http.MethodGet, "/api/v1/sync/student/a", ""), &student)
		assert.True(t, student.Synced)
		assert.Equal(t, 140, student.ContributionCount)
	})

	t.Run("单人同步失败带错误信息", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/sync/student/c", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.IndividualSyncResponse
		decode(t, w, &resp)
		assert.False(t, resp.Success)
		assert.Equal(t, worker.MsgHandleNotFound, resp.Error)
	})

	t.Run("学生不存在返回404", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			w := f.do(method, "/api/v1/sync/student/zz", "")
			assert.Equal(t, http.StatusNotFound, w.Code, method)
			assert.Equal(t, types.ErrStudentNotFound, errorCode(t, w), method)
		}
	})
}

// ==================== /sync/jobs ====================

func TestJobEndpoints(t *testing.T) {
	f := newFixture(t, classStudents()...)
	f.seedClass()

	t.Run("异步提交返回202", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/sync/jobs", `{"studentIds":["a","b"],"batchSize":1}`)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		var env envelope
		decode(t, w, &env)
		assert.NotEmpty(t, env.RequestID)
		var accepted types.JobAcceptedResponse
		require.NoError(t, json.Unmarshal(env.Data, &accepted))
		require.NotEmpty(t, accepted.JobID)
		assert.Equal(t, "/api/v1/sync/jobs/"+accepted.JobID, w.Header().Get("Location"))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done, err := f.manager.WaitJob(ctx, accepted.JobID)
		require.NoError(t, err)
		assert.Equal(t, pkgtypes.JobStatusCompleted, done.Status)
		assert.Equal(t, 2, done.Progress.Total)

		var got envelope
		w = f.do(http.MethodGet, "/api/v1/sync/jobs/"+accepted.JobID, "")
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &got)
		var job pkgtypes.Job
		require.NoError(t, json.Unmarshal(got.Data, &job))
		assert.Equal(t, accepted.JobID, job.ID)
		assert.Equal(t, 1, job.BatchSize)

		t.Run("已结束的任务不可取消", func(t *testing.T) {
			w := f.do(http.MethodDelete, "/api/v1/sync/jobs/"+accepted.JobID, "")
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Equal(t, types.ErrJobNotCancelable, errorCode(t, w))
		})
	})

	t.Run("任务列表", func(t *testing.T) {
		var env envelope
		w := f.do(http.MethodGet, "/api/v1/sync/jobs", "")
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &env)

		var data struct {
			Jobs       []pkgtypes.Job `json:"jobs"`
			QueueDepth int            `json:"queueDepth"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.NotEmpty(t, data.Jobs)
		assert.Equal(t, 0, data.QueueDepth)
	})

	t.Run("未知任务返回404", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			w := f.do(method, "/api/v1/sync/jobs/missing", "")
			assert.Equal(t, http.StatusNotFound, w.Code, method)
			assert.Equal(t, types.ErrJobNotFound, errorCode(t, w), method)
		}
	})

	t.Run("没有当前任务时取消返回false", func(t *testing.T) {
		var env envelope
		w := f.do(http.MethodPost, "/api/v1/sync/jobs/current/cancel", "")
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &env)

		var resp types.CancelResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.False(t, resp.Cancelled)
	})
}

func TestCancelRunningJob(t *testing.T) {
	f := newFixture(t, classStudents()...)
	f.seedClass()

	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	f.client.Hook = func(ctx context.Context, op, handle string) {
		if handle == "alice" && op == "handle_exists" {
			entered <- struct{}{}
			<-release
		}
	}

	w := f.do(http.MethodPost, "/api/v1/sync/jobs", `{"batchSize":1}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var env envelope
	decode(t, w, &env)
	var accepted types.JobAcceptedResponse
	require.NoError(t, json.Unmarshal(env.Data, &accepted))

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("同步未开始")
	}

	w = f.do(http.MethodDelete, "/api/v1/sync/jobs/"+accepted.JobID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done, err := f.manager.WaitJob(ctx, accepted.JobID)
	require.NoError(t, err)
	assert.Equal(t, pkgtypes.JobStatusCancelled, done.Status)
	assert.Equal(t, 1, done.Progress.Processed)
}

// ==================== /health ====================

func TestHealth(t *testing.T) {
	f := newFixture(t, classStudents()...)

	t.Run("存储可用", func(t *testing.T) {
		var resp types.HealthResponse
		w := f.do(http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Contains(t, resp.Components, "storage")
		assert.Contains(t, resp.Components, "jobManager")

		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/live", "").Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/ready", "").Code)
	})

	t.Run("存储异常时降级", func(t *testing.T) {
		f.repo.ListErr = testutil.ErrInjected
		defer func() { f.repo.ListErr = nil }()

		var resp types.HealthResponse
		w := f.do(http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		decode(t, w, &resp)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/health/ready", "").Code)
	})
}
