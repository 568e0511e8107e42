package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求ID头
	RequestIDHeader = "X-Request-ID"

	requestIDKey       = "request_id"
	maxRequestIDLength = 128
)

// RequestID 请求ID中间件
// 为每个请求生成唯一追踪ID
type RequestID struct{}

// NewRequestID 创建请求ID中间件
func NewRequestID() *RequestID {
	return &RequestID{}
}

// Middleware 返回Gin中间件
func (m *RequestID) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 尝试从请求头获取已有的RequestID，过长或含控制字符的直接丢弃
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
		}

		// 注入上下文
		c.Set(requestIDKey, requestID)

		// 设置响应头
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID 从上下文获取请求ID（与 RequestID 中间件配合）
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok2 := v.(string); ok2 && s != "" {
			return s
		}
	}
	return ""
}
