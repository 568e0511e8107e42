package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/internal/core/contribution/external"
	"github.com/weisyn/contribsync/internal/core/contribution/testutil"
	"github.com/weisyn/contribsync/internal/core/contribution/worker"
	eventbus "github.com/weisyn/contribsync/internal/core/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/types"
)

// ==================== 测试辅助 ====================

type recorded struct {
	name     event.EventType
	job      types.Job
	entityID string
	entity   types.EntityStatus
	progress types.ProgressUpdate
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recorded
}

func newRecorder(t *testing.T, bus *eventbus.EventBus) *eventRecorder {
	t.Helper()
	r := &eventRecorder{}
	for _, et := range []event.EventType{
		contribution.EventJobCreated,
		contribution.EventJobUpdated,
		contribution.EventJobCompleted,
		contribution.EventJobCancelled,
		contribution.EventJobFailed,
	} {
		et := et
		require.NoError(t, bus.Subscribe(et, func(j types.Job) {
			r.add(recorded{name: et, job: j})
		}))
	}
	require.NoError(t, bus.Subscribe(contribution.EventStudentUpdated, func(id string, st types.EntityStatus) {
		r.add(recorded{name: contribution.EventStudentUpdated, entityID: id, entity: st})
	}))
	require.NoError(t, bus.Subscribe(contribution.EventProgressUpdate, func(p types.ProgressUpdate) {
		r.add(recorded{name: contribution.EventProgressUpdate, progress: p})
	}))
	return r
}

func (r *eventRecorder) add(e recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.events...)
}

func (r *eventRecorder) forJob(jobID string) []recorded {
	var out []recorded
	for _, e := range r.all() {
		if e.job.ID == jobID || e.progress.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}

// blockingSource 在 GetStudents 中阻塞，直到 release 被关闭
type blockingSource struct {
	*testutil.MemoryRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSource(repo *testutil.MemoryRepository) *blockingSource {
	return &blockingSource{
		MemoryRepository: repo,
		entered:          make(chan struct{}, 64),
		release:          make(chan struct{}),
	}
}

func (b *blockingSource) GetStudents(ctx context.Context, ids []string) (map[string]types.Student, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.MemoryRepository.GetStudents(ctx, ids)
}

func (b *blockingSource) Release() { b.once.Do(func() { close(b.release) }) }

func testConfig(mutate ...func(*syncconfig.SyncOptions)) *syncconfig.Config {
	opts := &syncconfig.SyncOptions{
		BatchSize:       10,
		PacingDelay:     0,
		MaxQueueDepth:   10,
		JobHistoryLimit: 50,
		WindowDays:      365,
	}
	for _, fn := range mutate {
		fn(opts)
	}
	return syncconfig.NewFromOptions(opts)
}

func newTestManager(t *testing.T, cfg *syncconfig.Config, source contribution.StudentSource, syncer contribution.EntitySyncer) (*Manager, *eventRecorder) {
	t.Helper()
	bus := eventbus.New(nil)
	rec := newRecorder(t, bus)
	m := New(cfg, source, syncer, nil, bus, nil, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return m, rec
}

func wait(t *testing.T, m *Manager, id string) types.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	job, err := m.WaitJob(ctx, id)
	require.NoError(t, err)
	return job
}

func waitEntered(t *testing.T, b *blockingSource) {
	t.Helper()
	select {
	case <-b.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("任务未开始执行")
	}
}

func students(n int) ([]types.Student, []string) {
	out := make([]types.Student, n)
	ids := make([]string, n)
	for i := range out {
		id := fmt.Sprintf("s%02d", i+1)
		out[i] = testutil.Student(id, "user"+id, i)
		ids[i] = id
	}
	return out, ids
}

func assertProgressInvariants(t *testing.T, p types.JobProgress) {
	t.Helper()
	assert.Equal(t, p.Successful+p.Failed, p.Processed)
	assert.LessOrEqual(t, p.Processed, p.Total)
	if p.Total > 0 {
		assert.Equal(t, p.Processed*100/p.Total, p.Percentage)
	}
}

// ==================== 测试用例 ====================

func TestManager_BatchSyncCompletes(t *testing.T) {
	list, ids := students(7)
	repo := testutil.NewMemoryRepository(list...)
	client := testutil.NewFakeClient()
	for _, s := range list {
		client.SetTotal(s.GitHubHandle, 100+s.ContributionCount)
	}
	w := worker.New(client, repo, 365, nil, nil)
	m, rec := newTestManager(t, testConfig(), repo, w)

	id, err := m.StartBatchSync(ids, 3)
	require.NoError(t, err)
	job := wait(t, m, id)

	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.Equal(t, 7, job.Progress.Successful)
	assert.Equal(t, 100, job.Progress.Percentage)
	assert.Equal(t, 3, job.BatchSize)
	assert.False(t, job.Cancelable)
	assert.NotNil(t, job.StartTime)
	assert.NotNil(t, job.EndTime)
	assert.Len(t, job.Results, 7)
	for _, s := range list {
		assert.Equal(t, 100+s.ContributionCount, repo.Count(s.ID))
		assert.Equal(t, types.EntityCompleted, job.Entities[s.ID].Status)
		assert.Equal(t, s.GitHubHandle, job.Entities[s.ID].ExternalHandle)
	}

	events := rec.forJob(id)
	require.NotEmpty(t, events)
	assert.Equal(t, contribution.EventJobCreated, events[0].name)
	assert.Equal(t, types.JobStatusQueued, events[0].job.Status)
	assert.Equal(t, contribution.EventJobCompleted, events[len(events)-1].name)

	t.Run("每个快照满足进度不变量且百分比不下降", func(t *testing.T) {
		last := -1
		progressEvents := 0
		for _, e := range events {
			switch e.name {
			case contribution.EventProgressUpdate:
				progressEvents++
				assert.GreaterOrEqual(t, e.progress.Percentage, last)
				last = e.progress.Percentage
			default:
				assertProgressInvariants(t, e.job.Progress)
			}
		}
		// 每批一次
		assert.Equal(t, 3, progressEvents)
	})

	t.Run("单个学生事件按 processing → completed 排序", func(t *testing.T) {
		seen := map[string][]types.EntityState{}
		for _, e := range rec.all() {
			if e.name == contribution.EventStudentUpdated {
				seen[e.entityID] = append(seen[e.entityID], e.entity.Status)
			}
		}
		for _, s := range list {
			assert.Equal(t, []types.EntityState{types.EntityProcessing, types.EntityCompleted}, seen[s.ID])
		}
	})
}

func TestManager_TransientFailureDoesNotAbortJob(t *testing.T) {
	repo := testutil.NewMemoryRepository(
		testutil.Student("a", "alice", 1),
		testutil.Student("b", "bob", 2),
	)
	fake := testutil.NewFakeClient().SetTotal("bob", 42)
	fake.HandleErr["alice"] = &external.TransientError{Op: external.OpHandleExists, Err: context.DeadlineExceeded}
	client := external.NewClient(fake, external.ClientOptions{
		Policy: external.RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, BackoffFactor: 2},
	})
	w := worker.New(client, repo, 365, nil, nil)
	m, _ := newTestManager(t, testConfig(), repo, w)

	id, err := m.StartBatchSync([]string{"a", "b"}, 10)
	require.NoError(t, err)
	job := wait(t, m, id)

	assert.Equal(t, types.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Progress.Successful)
	assert.Equal(t, 1, job.Progress.Failed)
	require.Len(t, job.Errors, 1)
	assert.Equal(t, "a", job.Errors[0].EntityID)
	assert.Equal(t, types.ErrorKindFetchFailed, job.Errors[0].Kind)
	assert.Equal(t, 4, fake.CallCount("handle_exists", "alice"))
	assert.Equal(t, 42, repo.Count("b"))
	assert.Equal(t, 1, repo.Count("a"))
}

func TestManager_FailedHandleCheck(t *testing.T) {
	repo := testutil.NewMemoryRepository(testutil.Student("s1", "ghost", 0))
	client := testutil.NewFakeClient()
	client.Exists["ghost"] = false
	m, _ := newTestManager(t, testConfig(), repo, worker.New(client, repo, 365, nil, nil))

	var id string
	require.NotPanics(t, func() {
		var err error
		id, err = m.StartIndividualSync("s1")
		require.NoError(t, err)
	})
	job := wait(t, m, id)

	assert.Equal(t, types.JobStatusFailed, job.Status)
	es := job.Entities["s1"]
	assert.Equal(t, types.EntityFailed, es.Status)
	assert.Contains(t, es.Error, "ghost")
	assert.Contains(t, es.Error, worker.MsgHandleNotFound)
}

func TestManager_OverwritesStoredCount(t *testing.T) {
	repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 100))
	client := testutil.NewFakeClient().SetTotal("alice", 140)
	m, _ := newTestManager(t, testConfig(), repo, worker.New(client, repo, 365, nil, nil))

	id, err := m.StartIndividualSync("s1")
	require.NoError(t, err)
	job := wait(t, m, id)

	require.Equal(t, types.JobStatusCompleted, job.Status)
	require.Len(t, job.Results, 1)
	assert.Equal(t, 100, job.Results[0].OldCount)
	assert.Equal(t, 140, job.Results[0].NewCount)
	assert.Equal(t, 140, repo.Count("s1"))
}

func TestManager_Admission(t *testing.T) {
	t.Run("空列表", func(t *testing.T) {
		m, _ := newTestManager(t, testConfig(), testutil.NewMemoryRepository(), testutil.SyncerFunc(nil))
		_, err := m.StartBatchSync(nil, 10)
		assert.ErrorIs(t, err, ErrEmptyInput)
		_, err = m.StartIndividualSync("")
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Empty(t, m.GetAllJobs())
	})

	t.Run("队列已满时拒绝且不影响运行中的任务", func(t *testing.T) {
		list, ids := students(3)
		src := newBlockingSource(testutil.NewMemoryRepository(list...))
		syncer := testutil.SyncerFunc(func(ctx context.Context, s types.Student) types.SyncResult {
			return types.SyncResult{ID: s.ID, Handle: s.GitHubHandle, Success: true}
		})
		m, _ := newTestManager(t, testConfig(), src, syncer)

		runningID, err := m.StartBatchSync(ids, 10)
		require.NoError(t, err)
		waitEntered(t, src)

		for i := 0; i < 10; i++ {
			_, err := m.StartBatchSync(ids, 10)
			require.NoError(t, err)
		}
		assert.Equal(t, 10, m.QueueDepth())

		_, err = m.StartBatchSync(ids, 10)
		assert.ErrorIs(t, err, ErrQueueFull)
		assert.Len(t, m.GetAllJobs(), 11)

		current, ok := m.GetCurrentJob()
		require.True(t, ok)
		assert.Equal(t, runningID, current.ID)
		assert.Equal(t, types.JobStatusRunning, current.Status)

		src.Release()
		job := wait(t, m, runningID)
		assert.Equal(t, types.JobStatusCompleted, job.Status)

		all := m.GetAllJobs()
		last := wait(t, m, all[len(all)-1].ID)
		assert.Equal(t, types.JobStatusCompleted, last.Status)
		assert.Equal(t, 0, m.QueueDepth())
	})

	t.Run("重复ID只处理一次", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0))
		m, _ := newTestManager(t, testConfig(), repo, worker.New(testutil.NewFakeClient().SetTotal("alice", 1), repo, 365, nil, nil))

		id, err := m.StartBatchSync([]string{"s1", "s1"}, 10)
		require.NoError(t, err)
		job := wait(t, m, id)
		assert.Equal(t, 1, job.Progress.Total)
		assert.Equal(t, []string{"s1"}, job.EntityIDs)
	})
}

func TestManager_Cancellation(t *testing.T) {
	okSyncer := testutil.SyncerFunc(func(ctx context.Context, s types.Student) types.SyncResult {
		return types.SyncResult{ID: s.ID, Handle: s.GitHubHandle, Success: true}
	})

	t.Run("没有运行中的任务", func(t *testing.T) {
		m, _ := newTestManager(t, testConfig(), testutil.NewMemoryRepository(), okSyncer)
		assert.False(t, m.CancelCurrentJob())
	})

	t.Run("在第一个学生之前取消", func(t *testing.T) {
		list, ids := students(5)
		src := newBlockingSource(testutil.NewMemoryRepository(list...))
		m, rec := newTestManager(t, testConfig(), src, okSyncer)

		id, err := m.StartBatchSync(ids, 2)
		require.NoError(t, err)
		waitEntered(t, src)

		assert.True(t, m.CancelCurrentJob())
		src.Release()
		job := wait(t, m, id)

		assert.Equal(t, types.JobStatusCancelled, job.Status)
		assert.Equal(t, 0, job.Progress.Successful)
		assert.Equal(t, 0, job.Progress.Failed)
		for _, id := range ids {
			assert.Equal(t, types.EntityPending, job.Entities[id].Status)
		}
		events := rec.forJob(id)
		assert.Equal(t, contribution.EventJobCancelled, events[len(events)-1].name)
	})

	t.Run("进行中的批次执行完毕后停止", func(t *testing.T) {
		list, ids := students(6)
		repo := testutil.NewMemoryRepository(list...)
		var m *Manager
		var once sync.Once
		syncer := testutil.SyncerFunc(func(ctx context.Context, s types.Student) types.SyncResult {
			once.Do(func() { m.CancelCurrentJob() })
			return types.SyncResult{ID: s.ID, Handle: s.GitHubHandle, Success: true}
		})
		m, _ = newTestManager(t, testConfig(), repo, syncer)

		id, err := m.StartBatchSync(ids, 2)
		require.NoError(t, err)
		job := wait(t, m, id)

		assert.Equal(t, types.JobStatusCancelled, job.Status)
		assert.Equal(t, 2, job.Progress.Processed)
		assertProgressInvariants(t, job.Progress)
		pending := 0
		for _, es := range job.Entities {
			if es.Status == types.EntityPending {
				pending++
			}
		}
		assert.Equal(t, 4, pending)
	})

	t.Run("唯一一批执行中取消", func(t *testing.T) {
		list, ids := students(3)
		repo := testutil.NewMemoryRepository(list...)
		var m *Manager
		var once sync.Once
		accepted := make(chan bool, 1)
		syncer := testutil.SyncerFunc(func(ctx context.Context, s types.Student) types.SyncResult {
			once.Do(func() { accepted <- m.CancelCurrentJob() })
			return types.SyncResult{ID: s.ID, Handle: s.GitHubHandle, Success: true}
		})
		m, rec := newTestManager(t, testConfig(), repo, syncer)

		id, err := m.StartBatchSync(ids, 10)
		require.NoError(t, err)
		job := wait(t, m, id)

		assert.True(t, <-accepted)
		assert.Equal(t, types.JobStatusCancelled, job.Status)
		assert.Equal(t, job.Progress.Total, job.Progress.Processed)
		assert.Equal(t, 3, job.Progress.Successful)
		assertProgressInvariants(t, job.Progress)
		for _, id := range ids {
			assert.Equal(t, types.EntityCompleted, job.Entities[id].Status)
		}
		events := rec.forJob(id)
		assert.Equal(t, contribution.EventJobCancelled, events[len(events)-1].name)
	})

	t.Run("单人任务不可取消", func(t *testing.T) {
		src := newBlockingSource(testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0)))
		m, _ := newTestManager(t, testConfig(), src, okSyncer)

		id, err := m.StartIndividualSync("s1")
		require.NoError(t, err)
		waitEntered(t, src)

		assert.False(t, m.CancelCurrentJob())
		assert.False(t, m.CancelJob(id))
		src.Release()
		assert.Equal(t, types.JobStatusCompleted, wait(t, m, id).Status)
	})

	t.Run("取消排队中的任务", func(t *testing.T) {
		list, ids := students(2)
		src := newBlockingSource(testutil.NewMemoryRepository(list...))
		m, rec := newTestManager(t, testConfig(), src, okSyncer)

		runningID, err := m.StartBatchSync(ids, 10)
		require.NoError(t, err)
		waitEntered(t, src)
		queuedID, err := m.StartBatchSync(ids, 10)
		require.NoError(t, err)

		assert.True(t, m.CancelJob(queuedID))
		assert.Equal(t, 0, m.QueueDepth())
		job := wait(t, m, queuedID)
		assert.Equal(t, types.JobStatusCancelled, job.Status)
		assert.Nil(t, job.StartTime)

		events := rec.forJob(queuedID)
		require.Len(t, events, 2)
		assert.Equal(t, contribution.EventJobCreated, events[0].name)
		assert.Equal(t, contribution.EventJobCancelled, events[1].name)

		assert.False(t, m.CancelJob(queuedID))
		src.Release()
		assert.Equal(t, types.JobStatusCompleted, wait(t, m, runningID).Status)
	})
}

func TestManager_JobFatalAndMissingStudents(t *testing.T) {
	okSyncer := testutil.SyncerFunc(func(ctx context.Context, s types.Student) types.SyncResult {
		return types.SyncResult{ID: s.ID, Success: true}
	})

	t.Run("无法加载学生时任务失败", func(t *testing.T) {
		repo := testutil.NewMemoryRepository()
		repo.ListErr = errors.New("connection refused")
		m, rec := newTestManager(t, testConfig(), repo, okSyncer)

		id, err := m.StartBatchSync([]string{"s1"}, 10)
		require.NoError(t, err)
		job := wait(t, m, id)

		assert.Equal(t, types.JobStatusFailed, job.Status)
		require.Len(t, job.Errors, 1)
		assert.Equal(t, types.ErrorKindJob, job.Errors[0].Kind)
		assert.Contains(t, job.Errors[0].Message, "connection refused")
		events := rec.forJob(id)
		assert.Equal(t, contribution.EventJobFailed, events[len(events)-1].name)
	})

	t.Run("不存在的学生记为失败", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0))
		m, _ := newTestManager(t, testConfig(), repo, okSyncer)

		id, err := m.StartBatchSync([]string{"s1", "nobody"}, 10)
		require.NoError(t, err)
		job := wait(t, m, id)

		assert.Equal(t, types.JobStatusCompleted, job.Status)
		assert.Equal(t, 1, job.Progress.Failed)
		require.Len(t, job.Errors, 1)
		assert.Equal(t, MsgStudentNotFound, job.Errors[0].Message)
		assert.Equal(t, types.ErrorKindNotFound, job.Errors[0].Kind)
	})

	t.Run("全部失败时任务失败", func(t *testing.T) {
		m, _ := newTestManager(t, testConfig(), testutil.NewMemoryRepository(), okSyncer)
		id, err := m.StartBatchSync([]string{"x", "y"}, 10)
		require.NoError(t, err)
		assert.Equal(t, types.JobStatusFailed, wait(t, m, id).Status)
	})
}

func TestManager_HistoryAndStop(t *testing.T) {
	okSyncer := testutil.SyncerFunc(func(ctx context.Context, s types.Student) types.SyncResult {
		return types.SyncResult{ID: s.ID, Success: true}
	})

	t.Run("历史任务按上限清理", func(t *testing.T) {
		repo := testutil.NewMemoryRepository(testutil.Student("s1", "alice", 0))
		cfg := testConfig(func(o *syncconfig.SyncOptions) { o.JobHistoryLimit = 2 })
		m, _ := newTestManager(t, cfg, repo, okSyncer)

		var last string
		for i := 0; i < 4; i++ {
			id, err := m.StartIndividualSync("s1")
			require.NoError(t, err)
			wait(t, m, id)
			last = id
		}
		// 最后一个任务结束后清理在下一次出队时发生
		id, err := m.StartIndividualSync("s1")
		require.NoError(t, err)
		wait(t, m, id)

		jobs := m.GetAllJobs()
		assert.LessOrEqual(t, len(jobs), 3)
		_, ok := m.GetJob(last)
		assert.True(t, ok)
	})

	t.Run("停止时取消排队任务并拒绝新任务", func(t *testing.T) {
		list, ids := students(2)
		src := newBlockingSource(testutil.NewMemoryRepository(list...))
		m, _ := newTestManager(t, testConfig(), src, okSyncer)

		runningID, err := m.StartBatchSync(ids, 10)
		require.NoError(t, err)
		waitEntered(t, src)
		queuedID, err := m.StartBatchSync(ids, 10)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, m.Stop(ctx))

		queued, _ := m.GetJob(queuedID)
		assert.Equal(t, types.JobStatusCancelled, queued.Status)
		running, _ := m.GetJob(runningID)
		assert.True(t, running.Status.IsTerminal())

		_, err = m.StartBatchSync(ids, 10)
		assert.ErrorIs(t, err, ErrManagerClosed)
	})
}

func TestEstimateEnd(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(2 * time.Minute)

	assert.Nil(t, estimateEnd(start, now, 0))

	eta := estimateEnd(start, now, 25)
	require.NotNil(t, eta)
	assert.Equal(t, start.Add(8*time.Minute), *eta)
	assert.Equal(t, 6, minutesRemaining(eta, now))
	assert.Equal(t, 0, minutesRemaining(nil, now))
}
