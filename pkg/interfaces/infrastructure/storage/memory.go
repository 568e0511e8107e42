package storage

import (
	"context"
	"time"
)

// MemoryStore 定义了带过期时间的内存缓存接口
type MemoryStore interface {
	// Get 获取缓存值，返回值、是否存在及可能的错误
	Get(ctx context.Context, key string) (value []byte, exists bool, err error)

	// Set 设置缓存值，ttl为0表示使用缓存的默认生命周期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在且未过期
	Exists(ctx context.Context, key string) (bool, error)

	// Count 当前条目数（含尚未被清理的过期条目）
	Count(ctx context.Context) (int64, error)

	// Close 释放缓存资源
	Close() error
}
