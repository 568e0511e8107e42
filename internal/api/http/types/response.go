// Package types provides HTTP response type definitions.
package types

// SuccessResponse 统一成功响应格式（任务管理类接口使用）
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Data: data,
	}
}

// WithRequestID 添加请求ID
func (r *SuccessResponse) WithRequestID(requestID string) *SuccessResponse {
	r.RequestID = requestID
	return r
}

// WithTimestamp 添加时间戳
func (r *SuccessResponse) WithTimestamp(timestamp string) *SuccessResponse {
	r.Timestamp = timestamp
	return r
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status     string                 `json:"status"` // healthy, degraded
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
}
