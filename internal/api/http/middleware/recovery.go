package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/contribsync/internal/api/http/types"
)

// Recovery 捕获处理器panic，返回统一错误格式
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("HTTP handler panic",
					zap.String("request_id", GetRequestID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.String("panic", fmt.Sprint(r)),
					zap.ByteString("stack", debug.Stack()),
				)
				WriteError(c, http.StatusInternalServerError, types.NewErrorResponse(
					types.ErrInternal,
					"Internal server error",
					nil,
				))
			}
		}()
		c.Next()
	}
}

// WriteError 写入统一错误响应并终止处理链
func WriteError(c *gin.Context, status int, resp *types.ErrorResponse) {
	resp.WithRequestID(GetRequestID(c)).WithTimestamp(time.Now().UTC().Format(time.RFC3339))
	c.AbortWithStatusJSON(status, resp)
}
