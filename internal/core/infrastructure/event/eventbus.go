// 基于asaskevich/EventBus的事件总线实现
package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	eventconfig "github.com/weisyn/contribsync/internal/config/event"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
)

// EventBus 是对asaskevich/EventBus的封装
//
// 同步订阅者在 Publish 持有底层总线锁时执行，
// 因此回调内不得再调用同一总线的 Publish/Subscribe/Unsubscribe。
type EventBus struct {
	// ================== 基础组件 ==================
	bus    evbus.Bus           // 底层事件总线
	config *eventconfig.Config // 配置

	// 每个事件类型的订阅者计数，用于执行 MaxSubscribers 限制
	subMu       sync.Mutex
	subscribers map[event.EventType]int

	// ================== 生命周期 ==================
	running atomic.Bool        // 运行状态
	ctx     context.Context    // 上下文
	cancel  context.CancelFunc // 取消函数

	published atomic.Uint64 // 已发布事件数
}

// New 创建事件总线实例
// 所有事件总线实例必须通过此函数创建，确保配置被正确应用
func New(config *eventconfig.Config) *EventBus {
	if config == nil {
		config = eventconfig.New(nil)
	}
	return &EventBus{
		bus:         evbus.New(),
		config:      config,
		subscribers: make(map[event.EventType]int),
	}
}

// reserve 占用一个订阅名额
func (eb *EventBus) reserve(eventType event.EventType) error {
	eb.subMu.Lock()
	defer eb.subMu.Unlock()
	if max := eb.config.GetMaxSubscribers(); max > 0 && eb.subscribers[eventType] >= max {
		return fmt.Errorf("事件 %s 订阅者数量已达上限 %d", eventType, max)
	}
	eb.subscribers[eventType]++
	return nil
}

// release 归还一个订阅名额
func (eb *EventBus) release(eventType event.EventType) {
	eb.subMu.Lock()
	defer eb.subMu.Unlock()
	if eb.subscribers[eventType] > 0 {
		eb.subscribers[eventType]--
	}
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil // 如果事件系统未启用，静默成功
	}
	if err := eb.reserve(eventType); err != nil {
		return err
	}
	if err := eb.bus.Subscribe(string(eventType), handler); err != nil {
		eb.release(eventType)
		return err
	}
	return nil
}

// SubscribeAsync 实现异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	if err := eb.reserve(eventType); err != nil {
		return err
	}
	if err := eb.bus.SubscribeAsync(string(eventType), handler, transactional); err != nil {
		eb.release(eventType)
		return err
	}
	return nil
}

// SubscribeOnce 实现一次性订阅
// 一次性订阅不占用名额
func (eb *EventBus) SubscribeOnce(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	if !eb.config.IsEnabled() {
		return
	}
	eb.published.Add(1)
	eb.bus.Publish(string(eventType), args...)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	if !eb.config.IsEnabled() {
		return nil
	}
	if err := eb.bus.Unsubscribe(string(eventType), handler); err != nil {
		return err
	}
	eb.release(eventType)
	return nil
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	if !eb.config.IsEnabled() {
		return
	}
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	if !eb.config.IsEnabled() {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// PublishedCount 返回已发布事件总数
func (eb *EventBus) PublishedCount() uint64 {
	return eb.published.Load()
}

// Start 启动事件总线
func (eb *EventBus) Start(ctx context.Context) error {
	if eb.running.Load() {
		return fmt.Errorf("event bus already running")
	}

	eb.ctx, eb.cancel = context.WithCancel(ctx)
	eb.running.Store(true)
	return nil
}

// Stop 停止事件总线
func (eb *EventBus) Stop(ctx context.Context) error {
	if !eb.running.Load() {
		return fmt.Errorf("event bus not running")
	}

	eb.running.Store(false)
	if eb.cancel != nil {
		eb.cancel()
	}

	// 等待异步处理完成
	eb.WaitAsync()
	return nil
}

// IsRunning 检查事件总线是否运行中
func (eb *EventBus) IsRunning() bool {
	return eb.running.Load()
}

var _ event.EventBus = (*EventBus)(nil)
