package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/contribsync/internal/api/http/types"
	"github.com/weisyn/contribsync/internal/app/version"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

// 存储探测使用的不存在的学生ID
const probeStudentID = "__health_probe__"

// HealthHandler 健康检查端点处理器
//
// 提供三层健康检查端点：
// - /health: 完整健康报告（存储与任务管理器状态）
// - /health/live: 存活检查（进程是否响应）
// - /health/ready: 就绪检查（存储是否可用）
type HealthHandler struct {
	logger       log.Logger
	startTime    time.Time
	source       contribution.StudentSource
	manager      contribution.JobManager
	probeTimeout time.Duration
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger log.Logger, source contribution.StudentSource, manager contribution.JobManager) *HealthHandler {
	return &HealthHandler{
		logger:       logger,
		startTime:    time.Now(),
		source:       source,
		manager:      manager,
		probeTimeout: 2 * time.Second,
	}
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	health := r.Group("/health")
	{
		health.GET("", h.GetHealth)
		health.GET("/live", h.GetLiveness)
		health.GET("/ready", h.GetReadiness)
	}
}

// GetHealth 完整健康报告，存储不可用时返回 503
func (h *HealthHandler) GetHealth(c *gin.Context) {
	storageErr := h.probeStorage(c.Request.Context())

	components := map[string]interface{}{
		"storage": componentStatus(storageErr),
	}
	if h.manager != nil {
		jobInfo := map[string]interface{}{
			"status":     "healthy",
			"queueDepth": h.manager.QueueDepth(),
		}
		if current, ok := h.manager.GetCurrentJob(); ok {
			jobInfo["currentJob"] = current.ID
			jobInfo["currentTask"] = current.CurrentTask
		}
		components["jobManager"] = jobInfo
	}

	status, code := "healthy", http.StatusOK
	if storageErr != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, types.HealthResponse{
		Status:     status,
		Version:    version.GetDisplayVersion(),
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}

// GetLiveness 存活检查
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// GetReadiness 就绪检查
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	if err := h.probeStorage(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// probeStorage 查询一个不存在的学生，返回 not found 即视为存储可用
func (h *HealthHandler) probeStorage(ctx context.Context) error {
	if h.source == nil {
		return errors.New("student storage not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	_, err := h.source.GetStudent(ctx, probeStudentID)
	if err == nil || errors.Is(err, contribution.ErrStudentNotFound) {
		return nil
	}
	h.logger.Warnf("存储健康检查失败: %v", err)
	return err
}

func componentStatus(err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{"status": "unhealthy", "error": err.Error()}
	}
	return map[string]interface{}{"status": "healthy"}
}
