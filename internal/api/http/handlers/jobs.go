package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/contribsync/internal/api/http/middleware"
	"github.com/weisyn/contribsync/internal/api/http/types"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

// JobHandlers 异步任务管理接口
type JobHandlers struct {
	manager contribution.JobManager
	source  contribution.StudentSource
	logger  log.Logger
}

// NewJobHandlers 创建任务管理处理器
func NewJobHandlers(manager contribution.JobManager, source contribution.StudentSource, logger log.Logger) *JobHandlers {
	return &JobHandlers{
		manager: manager,
		source:  source,
		logger:  logger,
	}
}

// RegisterRoutes 注册任务路由
func (h *JobHandlers) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListJobs)
	r.POST("", h.StartJob)
	r.POST("/current/cancel", h.CancelCurrent)
	r.GET("/:id", h.GetJob)
	r.DELETE("/:id", h.CancelJob)
}

// ListJobs GET /sync/jobs 按创建顺序列出任务
func (h *JobHandlers) ListJobs(c *gin.Context) {
	writeSuccess(c, http.StatusOK, gin.H{
		"jobs":       h.manager.GetAllJobs(),
		"queueDepth": h.manager.QueueDepth(),
	})
}

// GetJob GET /sync/jobs/:id
func (h *JobHandlers) GetJob(c *gin.Context) {
	id := c.Param("id")
	job, ok := h.manager.GetJob(id)
	if !ok {
		middleware.WriteError(c, http.StatusNotFound, types.ErrJobNotFoundResponse(id))
		return
	}
	writeSuccess(c, http.StatusOK, job)
}

// StartJob POST /sync/jobs 提交批量任务后立即返回 202
// studentIds 为空时同步全部学生。
func (h *JobHandlers) StartJob(c *gin.Context) {
	var req types.StartJobRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		writeBindError(c, err)
		return
	}

	ids := req.StudentIDs
	if len(ids) == 0 {
		students, err := h.source.ListStudents(c.Request.Context())
		if err != nil {
			h.logger.Errorf("加载学生列表失败: %v", err)
			writeError(c, http.StatusInternalServerError, types.ErrInternal, "Failed to load students", nil)
			return
		}
		for _, s := range students {
			ids = append(ids, s.ID)
		}
	}

	jobID, err := h.manager.StartBatchSync(ids, batchSizeOrZero(req.BatchSize))
	if err != nil {
		writeManagerError(c, err, h.manager.QueueDepth())
		return
	}
	c.Header("Location", c.FullPath()+"/"+jobID)
	writeSuccess(c, http.StatusAccepted, types.JobAcceptedResponse{JobID: jobID})
}

// CancelCurrent POST /sync/jobs/current/cancel 请求取消当前任务
// 当前无任务或任务不可取消时返回 cancelled=false。
func (h *JobHandlers) CancelCurrent(c *gin.Context) {
	resp := types.CancelResponse{}
	if current, ok := h.manager.GetCurrentJob(); ok {
		resp.JobID = current.ID
	}
	resp.Cancelled = h.manager.CancelCurrentJob()
	writeSuccess(c, http.StatusOK, resp)
}

// CancelJob DELETE /sync/jobs/:id 取消排队或运行中的任务
func (h *JobHandlers) CancelJob(c *gin.Context) {
	id := c.Param("id")
	job, ok := h.manager.GetJob(id)
	if !ok {
		middleware.WriteError(c, http.StatusNotFound, types.ErrJobNotFoundResponse(id))
		return
	}
	if !h.manager.CancelJob(id) {
		writeError(c, http.StatusConflict, types.ErrJobNotCancelable, "Sync job cannot be cancelled", map[string]interface{}{
			"jobId":      id,
			"status":     job.Status,
			"cancelable": job.Cancelable,
		})
		return
	}
	writeSuccess(c, http.StatusOK, types.CancelResponse{Cancelled: true, JobID: id})
}
