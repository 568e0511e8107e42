package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/contribsync/internal/api/http/middleware"
	"github.com/weisyn/contribsync/internal/api/http/types"
	"github.com/weisyn/contribsync/internal/core/contribution/report"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	pkgtypes "github.com/weisyn/contribsync/pkg/types"
)

// SyncHandlers 同步接口处理器
//
// 同步接口提交任务后等待其结束再返回，任务进度可通过 WebSocket 或任务接口查询。
type SyncHandlers struct {
	manager contribution.JobManager
	source  contribution.StudentSource
	logger  log.Logger
}

// NewSyncHandlers 创建同步接口处理器
func NewSyncHandlers(manager contribution.JobManager, source contribution.StudentSource, logger log.Logger) *SyncHandlers {
	return &SyncHandlers{
		manager: manager,
		source:  source,
		logger:  logger,
	}
}

// RegisterRoutes 注册同步路由
func (h *SyncHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.SyncAll)
	r.GET("", h.GetStatus)
	r.POST("/student/:id", h.SyncStudent)
	r.GET("/student/:id", h.GetStudent)
}

// SyncAll POST /sync
// 对全部学生运行一次批量任务并等待结束。
// dryRun 仍然写回存储，只是不返回 processedUsers。
func (h *SyncHandlers) SyncAll(c *gin.Context) {
	start := time.Now()

	var req types.SyncRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		writeBindError(c, err)
		return
	}

	students, err := h.source.ListStudents(c.Request.Context())
	if err != nil {
		h.logger.Errorf("加载学生列表失败: %v", err)
		writeError(c, http.StatusInternalServerError, types.ErrInternal, "Failed to load students", nil)
		return
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	jobID, err := h.manager.StartBatchSync(ids, batchSizeOrZero(req.BatchSize))
	if err != nil {
		writeManagerError(c, err, h.manager.QueueDepth())
		return
	}

	job, err := h.manager.WaitJob(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Warnf("等待同步任务结束失败: job=%s err=%v", jobID, err)
		writeManagerError(c, err, h.manager.QueueDepth())
		return
	}

	c.JSON(http.StatusOK, buildSyncResponse(job, req.DryRun, time.Since(start)))
}

func buildSyncResponse(job pkgtypes.Job, dryRun bool, elapsed time.Duration) types.SyncResponse {
	resp := types.SyncResponse{
		Success:        job.Status == pkgtypes.JobStatusCompleted,
		JobID:          job.ID,
		Status:         job.Status,
		SyncTimeMs:     elapsed.Milliseconds(),
		TotalUsers:     job.Progress.Total,
		Successful:     job.Progress.Successful,
		Failed:         job.Progress.Failed,
		Errors:         make([]types.SyncErrorItem, 0, len(job.Errors)),
		ProcessedUsers: make([]types.ProcessedUser, 0, len(job.Results)),
	}
	for _, e := range job.Errors {
		resp.Errors = append(resp.Errors, types.SyncErrorItem{
			ID:     e.EntityID,
			Handle: e.Handle,
			Error:  e.Message,
		})
	}
	if dryRun {
		return resp
	}
	for _, r := range job.Results {
		if !r.Success {
			continue
		}
		resp.ProcessedUsers = append(resp.ProcessedUsers, types.ProcessedUser{
			ID:         r.ID,
			Handle:     r.Handle,
			OldCount:   r.OldCount,
			NewCount:   r.NewCount,
			SyncTimeMs: r.DurationMs,
		})
	}
	return resp
}

// GetStatus GET /sync 同步健康度与当前任务
func (h *SyncHandlers) GetStatus(c *gin.Context) {
	students, err := h.source.ListStudents(c.Request.Context())
	if err != nil {
		h.logger.Errorf("加载学生列表失败: %v", err)
		writeError(c, http.StatusInternalServerError, types.ErrInternal, "Failed to load students", nil)
		return
	}

	resp := types.SyncStatusResponse{
		SyncHealth: report.Summarize(students),
		QueueDepth: h.manager.QueueDepth(),
	}
	if current, ok := h.manager.GetCurrentJob(); ok {
		resp.CurrentJob = &current
	}
	c.JSON(http.StatusOK, resp)
}

// SyncStudent POST /sync/student/:id 同步单个学生并返回结果
func (h *SyncHandlers) SyncStudent(c *gin.Context) {
	start := time.Now()
	id := c.Param("id")

	if _, err := h.source.GetStudent(c.Request.Context(), id); err != nil {
		h.writeLookupError(c, id, err)
		return
	}

	jobID, err := h.manager.StartIndividualSync(id)
	if err != nil {
		writeManagerError(c, err, h.manager.QueueDepth())
		return
	}

	job, err := h.manager.WaitJob(c.Request.Context(), jobID)
	if err != nil {
		writeManagerError(c, err, h.manager.QueueDepth())
		return
	}

	resp := types.IndividualSyncResponse{
		Success:    job.Status == pkgtypes.JobStatusCompleted,
		JobID:      job.ID,
		SyncTimeMs: time.Since(start).Milliseconds(),
	}
	if len(job.Results) > 0 {
		result := job.Results[0]
		resp.Result = &result
		resp.Error = result.Error
	} else if len(job.Errors) > 0 {
		resp.Error = job.Errors[0].Message
	}
	c.JSON(http.StatusOK, resp)
}

// GetStudent GET /sync/student/:id 学生同步状态
func (h *SyncHandlers) GetStudent(c *gin.Context) {
	id := c.Param("id")

	student, err := h.source.GetStudent(c.Request.Context(), id)
	if err != nil {
		h.writeLookupError(c, id, err)
		return
	}

	resp := types.StudentSyncResponse{
		ID:                student.ID,
		Name:              student.Name,
		GitHubHandle:      student.GitHubHandle,
		ContributionCount: student.ContributionCount,
		LastSyncTime:      student.LastSyncTime,
		Synced:            student.Synced(),
	}
	if current, ok := h.manager.GetCurrentJob(); ok {
		if status, ok := current.Entities[id]; ok {
			resp.ActiveStatus = &status
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SyncHandlers) writeLookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, contribution.ErrStudentNotFound) {
		middleware.WriteError(c, http.StatusNotFound, types.ErrStudentNotFoundResponse(id))
		return
	}
	h.logger.Errorf("查询学生失败: id=%s err=%v", id, err)
	writeError(c, http.StatusInternalServerError, types.ErrInternal, "Failed to load student", nil)
}
