// Package handlers 提供贡献同步 HTTP API 处理器
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/contribsync/internal/api/http/middleware"
	"github.com/weisyn/contribsync/internal/api/http/types"
	"github.com/weisyn/contribsync/internal/core/contribution/job"
)

// writeError 写入统一错误响应
func writeError(c *gin.Context, status int, code, message string, details interface{}) {
	middleware.WriteError(c, status, types.NewErrorResponse(code, message, details))
}

// writeSuccess 写入统一成功响应（任务管理类接口）
func writeSuccess(c *gin.Context, status int, data interface{}) {
	resp := types.NewSuccessResponse(data).
		WithRequestID(middleware.GetRequestID(c)).
		WithTimestamp(time.Now().UTC().Format(time.RFC3339))
	c.JSON(status, resp)
}

// writeBindError 请求体校验失败
func writeBindError(c *gin.Context, err error) {
	writeError(c, http.StatusBadRequest, types.ErrInvalidArgument, "Invalid request body", map[string]interface{}{
		"reason": err.Error(),
	})
}

// writeManagerError 将任务管理器错误映射为HTTP响应
func writeManagerError(c *gin.Context, err error, queueDepth int) {
	switch {
	case errors.Is(err, job.ErrEmptyInput):
		writeError(c, http.StatusBadRequest, types.ErrEmptyInput, "No students to sync", nil)
	case errors.Is(err, job.ErrQueueFull):
		middleware.WriteError(c, http.StatusTooManyRequests, types.ErrQueueFullResponse(queueDepth))
	case errors.Is(err, job.ErrManagerClosed):
		writeError(c, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "Sync manager is shutting down", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 客户端已断开或等待超时，任务本身仍在后台继续
		writeError(c, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "Stopped waiting for sync job", nil)
	default:
		writeError(c, http.StatusInternalServerError, types.ErrInternal, "Internal server error", nil)
	}
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

func batchSizeOrZero(size *int) int {
	if size == nil {
		return 0
	}
	return *size
}
