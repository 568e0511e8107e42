// Package job 管理同步任务的生命周期：准入、排队、执行、取消与进度
//
// 同一时刻只有一个任务在执行，其余任务进入有界FIFO队列。
// 任务状态由管理器持有的互斥锁保护，对外只返回深拷贝快照。
package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/internal/core/contribution/batch"
	"github.com/weisyn/contribsync/internal/core/infrastructure/metrics"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/types"
)

// MsgStudentNotFound 任务中的学生记录不存在
const MsgStudentNotFound = "student not found"

const (
	taskQueued    = "Queued"
	taskLoading   = "Loading students"
	taskCancel    = "Cancelling"
	taskCompleted = "Completed"
	taskFailed    = "Failed"
	taskCancelled = "Cancelled"
)

// record 任务及其运行期控制状态
type record struct {
	job             types.Job
	cancelRequested bool
	announced       chan struct{} // jobCreated 发布后关闭
	done            chan struct{} // 进入终态且终态事件发布后关闭
}

// Manager 同步任务管理器
type Manager struct {
	config    *syncconfig.Config
	source    contribution.StudentSource
	syncer    contribution.EntitySyncer
	processor *batch.Processor
	bus       event.EventBus
	metrics   *metrics.SyncMetrics
	logger    log.Logger

	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	jobs       map[string]*record
	order      []string
	queue      *jobQueue
	current    *record
	processing bool
	closed     bool

	// 管理器生命周期上下文，只有 Stop 会取消进行中的外部调用
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ contribution.JobManager = (*Manager)(nil)

// New 创建任务管理器
func New(
	config *syncconfig.Config,
	source contribution.StudentSource,
	syncer contribution.EntitySyncer,
	processor *batch.Processor,
	bus event.EventBus,
	m *metrics.SyncMetrics,
	logger log.Logger,
) *Manager {
	if config == nil {
		config = syncconfig.New(nil)
	}
	if processor == nil {
		processor = batch.New(config.GetPacingDelay(), logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:    config,
		source:    source,
		syncer:    syncer,
		processor: processor,
		bus:       bus,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		jobs:      make(map[string]*record),
		queue:     newJobQueue(config.GetMaxQueueDepth()),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ============================================================================
//                              任务提交
// ============================================================================

// StartBatchSync 提交批量同步任务
func (m *Manager) StartBatchSync(entityIDs []string, batchSize int) (string, error) {
	if len(entityIDs) == 0 {
		return "", ErrEmptyInput
	}
	if batchSize <= 0 {
		batchSize = m.config.GetBatchSize()
	}
	return m.submit(types.JobKindBatch, entityIDs, syncconfig.ClampBatchSize(batchSize))
}

// StartIndividualSync 提交单个学生同步任务，单人任务不可取消
func (m *Manager) StartIndividualSync(entityID string) (string, error) {
	if entityID == "" {
		return "", ErrEmptyInput
	}
	return m.submit(types.JobKindIndividual, []string{entityID}, 1)
}

func (m *Manager) submit(kind types.JobKind, entityIDs []string, batchSize int) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrManagerClosed
	}
	// 队列满时在创建任务之前拒绝
	if m.processing && m.queue.Full() {
		m.mu.Unlock()
		return "", ErrQueueFull
	}

	rec := m.createJob(kind, entityIDs, batchSize)
	m.jobs[rec.job.ID] = rec
	m.order = append(m.order, rec.job.ID)

	start := !m.processing
	if start {
		m.processing = true
		m.current = rec
		m.wg.Add(1)
	} else {
		m.queue.Push(rec.job.ID)
	}
	depth := m.queue.Len()
	snap := rec.job.Clone()
	m.mu.Unlock()

	m.metrics.SetQueueDepth(depth)
	m.publish(contribution.EventJobCreated, snap)
	close(rec.announced)

	if m.logger != nil {
		m.logger.Infof("同步任务已创建: id=%s kind=%s total=%d batch_size=%d queued=%t",
			snap.ID, snap.Kind, snap.Progress.Total, snap.BatchSize, !start)
	}
	if start {
		go m.loop(rec)
	}
	return snap.ID, nil
}

// createJob 为每个ID创建 pending 状态，重复ID只保留第一次出现
func (m *Manager) createJob(kind types.JobKind, entityIDs []string, batchSize int) *record {
	ids := make([]string, 0, len(entityIDs))
	entities := make(map[string]types.EntityStatus, len(entityIDs))
	for _, id := range entityIDs {
		if _, dup := entities[id]; dup {
			continue
		}
		ids = append(ids, id)
		entities[id] = types.EntityStatus{ID: id, Status: types.EntityPending}
	}

	return &record{
		job: types.Job{
			ID:          m.newID(),
			Kind:        kind,
			Status:      types.JobStatusQueued,
			Progress:    types.JobProgress{Total: len(ids)},
			CurrentTask: taskQueued,
			BatchSize:   batchSize,
			CreatedAt:   m.now(),
			EntityIDs:   ids,
			Entities:    entities,
			Errors:      []types.JobError{},
			Cancelable:  kind == types.JobKindBatch,
		},
		announced: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ============================================================================
//                              执行循环
// ============================================================================

// loop 依次执行当前任务与队列中的任务，同一时刻最多一个 loop 在运行
func (m *Manager) loop(first *record) {
	defer m.wg.Done()
	for rec := first; rec != nil; rec = m.next() {
		m.run(rec)
	}
}

// next 取出下一个排队任务，队列为空时结束处理状态
func (m *Manager) next() *record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimHistoryLocked()

	for {
		id, ok := m.queue.Pop()
		if !ok {
			m.processing = false
			m.current = nil
			m.metrics.SetQueueDepth(0)
			return nil
		}
		rec := m.jobs[id]
		if rec == nil || rec.job.Status != types.JobStatusQueued {
			continue
		}
		m.current = rec
		m.metrics.SetQueueDepth(m.queue.Len())
		return rec
	}
}

func (m *Manager) run(rec *record) {
	<-rec.announced

	startTime := m.now()
	m.mu.Lock()
	rec.job.Status = types.JobStatusRunning
	rec.job.StartTime = &startTime
	rec.job.CurrentTask = taskLoading
	ids := append([]string(nil), rec.job.EntityIDs...)
	batchSize := rec.job.BatchSize
	snap := rec.job.Clone()
	m.mu.Unlock()
	m.publish(contribution.EventJobUpdated, snap)

	students, err := m.source.GetStudents(m.ctx, ids)
	if err != nil {
		m.finish(rec, types.JobStatusFailed, &types.JobError{
			Message: fmt.Sprintf("failed to load students: %v", err),
			Kind:    types.ErrorKindJob,
		})
		return
	}

	m.mu.Lock()
	for id, st := range students {
		es, ok := rec.job.Entities[id]
		if !ok {
			continue
		}
		es.ExternalHandle = st.GitHubHandle
		es.DisplayName = st.Name
		rec.job.Entities[id] = es
	}
	m.mu.Unlock()

	stats, err := m.processor.Run(m.ctx, ids, batchSize, batch.Hooks{
		ShouldStop: func() bool {
			m.mu.Lock()
			defer m.mu.Unlock()
			return rec.cancelRequested
		},
		BeforeBatch: func(index, total int, chunk []string) {
			m.mu.Lock()
			rec.job.CurrentTask = fmt.Sprintf("Processing batch %d of %d", index+1, total)
			snap := rec.job.Clone()
			m.mu.Unlock()
			m.publish(contribution.EventJobUpdated, snap)
		},
		OnEntity: func(ctx context.Context, id string) {
			st, ok := students[id]
			m.syncEntity(ctx, rec, id, st, ok)
		},
		AfterBatch: func(index, total int, chunk []string) {
			m.afterBatch(rec, index, total)
		},
	})

	switch {
	case stats.Stopped:
		m.finish(rec, types.JobStatusCancelled, nil)
	case err != nil:
		m.finish(rec, types.JobStatusFailed, &types.JobError{
			Message: fmt.Sprintf("sync interrupted: %v", err),
			Kind:    types.ErrorKindJob,
		})
	default:
		m.mu.Lock()
		status := types.JobStatusFailed
		if rec.job.Progress.Successful > 0 {
			status = types.JobStatusCompleted
		}
		m.mu.Unlock()
		m.finish(rec, status, nil)
	}
}

// syncEntity 处理单个学生并更新任务计数，事件顺序为 processing → completed|failed
func (m *Manager) syncEntity(ctx context.Context, rec *record, id string, student types.Student, found bool) {
	startTime := m.now()
	m.mu.Lock()
	es := rec.job.Entities[id]
	es.Status = types.EntityProcessing
	es.StartTime = &startTime
	rec.job.Entities[id] = es
	m.mu.Unlock()
	m.publish(contribution.EventStudentUpdated, id, es)

	var res types.SyncResult
	if found {
		res = m.safeSync(ctx, student)
	} else {
		res = types.SyncResult{ID: id, Error: MsgStudentNotFound, ErrorKind: types.ErrorKindNotFound}
	}

	endTime := m.now()
	m.mu.Lock()
	es = rec.job.Entities[id]
	es.EndTime = &endTime
	if res.Success {
		es.Status = types.EntityCompleted
		rec.job.Progress.Successful++
	} else {
		es.Status = types.EntityFailed
		es.Error = entityError(res)
		rec.job.Progress.Failed++
		rec.job.Errors = append(rec.job.Errors, types.JobError{
			EntityID: id,
			Handle:   res.Handle,
			Message:  res.Error,
			Kind:     res.ErrorKind,
		})
	}
	rec.job.Entities[id] = es
	rec.job.Results = append(rec.job.Results, res)
	rec.job.Progress.Recompute()
	m.mu.Unlock()
	m.publish(contribution.EventStudentUpdated, id, es)
}

func (m *Manager) safeSync(ctx context.Context, student types.Student) (res types.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Errorf("同步器panic: id=%s panic=%v", student.ID, r)
			}
			res = types.SyncResult{
				ID:        student.ID,
				Handle:    student.GitHubHandle,
				OldCount:  student.ContributionCount,
				Error:     "unexpected error",
				ErrorKind: types.ErrorKindFetchFailed,
			}
		}
	}()
	return m.syncer.Sync(ctx, student)
}

func entityError(res types.SyncResult) string {
	if res.Handle == "" {
		return res.Error
	}
	return fmt.Sprintf("%s (%s)", res.Error, res.Handle)
}

func (m *Manager) afterBatch(rec *record, index, total int) {
	now := m.now()
	m.mu.Lock()
	rec.job.CurrentTask = fmt.Sprintf("Completed batch %d of %d", index+1, total)
	if rec.job.StartTime != nil {
		rec.job.EstimatedEndTime = estimateEnd(*rec.job.StartTime, now, rec.job.Progress.Percentage)
	}
	snap := rec.job.Clone()
	m.mu.Unlock()

	m.publish(contribution.EventJobUpdated, snap)
	m.publish(contribution.EventProgressUpdate, types.ProgressUpdate{
		JobID:                     snap.ID,
		Percentage:                snap.Progress.Percentage,
		CurrentTask:               snap.CurrentTask,
		EstimatedMinutesRemaining: minutesRemaining(snap.EstimatedEndTime, now),
	})
}

// estimateEnd start + elapsed/percentage*100，进度为 0 时无法估计
func estimateEnd(start, now time.Time, percentage int) *time.Time {
	if percentage <= 0 {
		return nil
	}
	elapsed := now.Sub(start)
	end := start.Add(time.Duration(int64(elapsed) * 100 / int64(percentage)))
	return &end
}

func minutesRemaining(eta *time.Time, now time.Time) int {
	if eta == nil || !eta.After(now) {
		return 0
	}
	d := eta.Sub(now)
	return int((d + time.Minute - 1) / time.Minute)
}

// finish 进入终态并发布终态事件
func (m *Manager) finish(rec *record, status types.JobStatus, jobErr *types.JobError) {
	<-rec.announced

	endTime := m.now()
	m.mu.Lock()
	if rec.job.Status.IsTerminal() {
		m.mu.Unlock()
		return
	}
	if jobErr != nil {
		rec.job.Errors = append(rec.job.Errors, *jobErr)
	}
	rec.job.Status = status
	rec.job.EndTime = &endTime
	rec.job.Cancelable = false
	switch status {
	case types.JobStatusCompleted:
		rec.job.CurrentTask = taskCompleted
	case types.JobStatusCancelled:
		rec.job.CurrentTask = taskCancelled
	default:
		rec.job.CurrentTask = taskFailed
	}
	snap := rec.job.Clone()
	m.mu.Unlock()

	switch status {
	case types.JobStatusCompleted:
		m.publish(contribution.EventJobCompleted, snap)
	case types.JobStatusCancelled:
		m.publish(contribution.EventJobCancelled, snap)
	default:
		m.publish(contribution.EventJobFailed, snap)
	}
	close(rec.done)

	if m.logger != nil {
		m.logger.Infof("同步任务结束: id=%s status=%s successful=%d failed=%d total=%d",
			snap.ID, snap.Status, snap.Progress.Successful, snap.Progress.Failed, snap.Progress.Total)
	}
}

// trimHistoryLocked 已结束任务超过上限时从最旧的开始移除
func (m *Manager) trimHistoryLocked() {
	limit := m.config.GetJobHistoryLimit()
	terminal := 0
	for _, id := range m.order {
		if rec := m.jobs[id]; rec != nil && rec.job.Status.IsTerminal() {
			terminal++
		}
	}
	if terminal <= limit {
		return
	}

	kept := m.order[:0]
	for _, id := range m.order {
		rec := m.jobs[id]
		if terminal > limit && rec != nil && rec.job.Status.IsTerminal() {
			delete(m.jobs, id)
			terminal--
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

// ============================================================================
//                              取消
// ============================================================================

// CancelCurrentJob 请求取消正在运行的任务，进行中的批次会执行完毕
func (m *Manager) CancelCurrentJob() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.current
	if rec == nil || rec.job.Status != types.JobStatusRunning || !rec.job.Cancelable {
		return false
	}
	m.requestCancelLocked(rec)
	return true
}

// CancelJob 取消指定任务
func (m *Manager) CancelJob(id string) bool {
	m.mu.Lock()
	rec := m.jobs[id]
	if rec == nil || rec.job.Status.IsTerminal() || !rec.job.Cancelable {
		m.mu.Unlock()
		return false
	}
	if rec == m.current {
		// 已成为当前任务但尚未开始执行时同样记录取消请求
		m.requestCancelLocked(rec)
		m.mu.Unlock()
		return true
	}
	if !m.queue.Remove(id) {
		m.mu.Unlock()
		return false
	}
	depth := m.queue.Len()
	m.trimHistoryLocked()
	m.mu.Unlock()

	m.metrics.SetQueueDepth(depth)
	m.finish(rec, types.JobStatusCancelled, nil)
	return true
}

func (m *Manager) requestCancelLocked(rec *record) {
	if rec.cancelRequested {
		return
	}
	rec.cancelRequested = true
	rec.job.CurrentTask = taskCancel
	if m.logger != nil {
		m.logger.Infof("已请求取消同步任务: id=%s processed=%d/%d",
			rec.job.ID, rec.job.Progress.Processed, rec.job.Progress.Total)
	}
}

// ============================================================================
//                              查询
// ============================================================================

// GetJob 获取任务快照
func (m *Manager) GetJob(id string) (types.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.jobs[id]
	if rec == nil {
		return types.Job{}, false
	}
	return rec.job.Clone(), true
}

// GetCurrentJob 获取当前任务快照
func (m *Manager) GetCurrentJob() (types.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.job.Status.IsTerminal() {
		return types.Job{}, false
	}
	return m.current.job.Clone(), true
}

// GetAllJobs 按创建顺序返回全部任务
func (m *Manager) GetAllJobs() []types.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Job, 0, len(m.order))
	for _, id := range m.order {
		if rec := m.jobs[id]; rec != nil {
			out = append(out, rec.job.Clone())
		}
	}
	return out
}

// QueueDepth 排队任务数
func (m *Manager) QueueDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// WaitJob 阻塞直到任务进入终态
func (m *Manager) WaitJob(ctx context.Context, id string) (types.Job, error) {
	m.mu.Lock()
	rec := m.jobs[id]
	m.mu.Unlock()
	if rec == nil {
		return types.Job{}, ErrJobNotFound
	}

	select {
	case <-rec.done:
		m.mu.Lock()
		defer m.mu.Unlock()
		return rec.job.Clone(), nil
	case <-ctx.Done():
		return types.Job{}, ctx.Err()
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Stop 拒绝新任务，取消排队任务与当前任务，并等待执行循环退出
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var pending []*record
	for _, id := range m.queue.Drain() {
		if rec := m.jobs[id]; rec != nil {
			pending = append(pending, rec)
		}
	}
	if m.current != nil && !m.current.job.Status.IsTerminal() {
		m.current.cancelRequested = true
	}
	m.mu.Unlock()
	m.metrics.SetQueueDepth(0)

	for _, rec := range pending {
		m.finish(rec, types.JobStatusCancelled, &types.JobError{
			Message: "sync manager shutting down",
			Kind:    types.ErrorKindJob,
		})
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for sync loop: %w", ctx.Err())
	}
}

func (m *Manager) publish(eventType event.EventType, args ...interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(eventType, args...)
}
