// Package types provides HTTP error type definitions.
package types

// ErrorResponse 统一错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Code      string      `json:"code"`                // 错误码
	Message   string      `json:"message"`             // 错误消息
	Details   interface{} `json:"details,omitempty"`   // 详细信息
	RequestID string      `json:"requestId,omitempty"` // 请求ID
	Timestamp string      `json:"timestamp,omitempty"` // 时间戳
}

// 错误码
const (
	// 通用错误码（4xx）
	ErrInvalidArgument   = "INVALID_ARGUMENT"
	ErrNotFound          = "NOT_FOUND"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// 同步任务错误码
	ErrEmptyInput       = "EMPTY_INPUT"
	ErrQueueFull        = "QUEUE_FULL"
	ErrStudentNotFound  = "STUDENT_NOT_FOUND"
	ErrJobNotFound      = "JOB_NOT_FOUND"
	ErrJobNotCancelable = "JOB_NOT_CANCELABLE"

	// 服务器错误码（5xx）
	ErrInternal           = "INTERNAL"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message string, details interface{}) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithRequestID 添加请求ID
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.Error.RequestID = requestID
	return e
}

// WithTimestamp 添加时间戳
func (e *ErrorResponse) WithTimestamp(timestamp string) *ErrorResponse {
	e.Error.Timestamp = timestamp
	return e
}

// ErrQueueFullResponse 队列已满
func ErrQueueFullResponse(depth int) *ErrorResponse {
	return NewErrorResponse(
		ErrQueueFull,
		"Sync queue is full, please retry later",
		map[string]interface{}{
			"queueDepth": depth,
		},
	)
}

// ErrStudentNotFoundResponse 学生不存在
func ErrStudentNotFoundResponse(id string) *ErrorResponse {
	return NewErrorResponse(
		ErrStudentNotFound,
		"Student not found",
		map[string]interface{}{
			"id": id,
		},
	)
}

// ErrJobNotFoundResponse 任务不存在
func ErrJobNotFoundResponse(id string) *ErrorResponse {
	return NewErrorResponse(
		ErrJobNotFound,
		"Sync job not found",
		map[string]interface{}{
			"jobId": id,
		},
	)
}
