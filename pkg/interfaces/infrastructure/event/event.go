// Package event 提供进程内事件总线接口定义
//
// 事件总线为同步投递：Publish 返回前所有同步订阅者已执行完毕，
// 投递顺序与发布顺序一致；订阅之前发布的事件不会补发。
package event

import "context"

// EventType 事件类型
type EventType string

// EventBus 事件总线接口
type EventBus interface {
	// Subscribe 订阅事件（同步回调）
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅事件
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// SubscribeOnce 一次性订阅事件
	SubscribeOnce(eventType EventType, handler interface{}) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有回调函数
	HasCallback(eventType EventType) bool

	// Start 启动事件总线
	Start(ctx context.Context) error
	// Stop 停止事件总线
	Stop(ctx context.Context) error
	// IsRunning 是否运行中
	IsRunning() bool
}
