package job

import "errors"

var (
	// ErrEmptyInput 提交的学生列表为空
	ErrEmptyInput = errors.New("entity id list is empty")
	// ErrQueueFull 等待队列已满，任务未创建
	ErrQueueFull = errors.New("sync job queue is full")
	// ErrJobNotFound 任务不存在（或已被历史清理）
	ErrJobNotFound = errors.New("sync job not found")
	// ErrManagerClosed 管理器已停止，不再接受任务
	ErrManagerClosed = errors.New("sync manager is closed")
)
