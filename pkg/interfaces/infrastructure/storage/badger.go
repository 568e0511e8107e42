// Package storage 提供键值存储接口定义
//
// BadgerStore 是嵌入式持久化键值存储，学生记录默认保存在这里；
// MemoryStore 是带TTL的内存缓存，用于限流状态等可丢失的数据。
package storage

import (
	"context"
	"time"
)

// BadgerStore 定义了键值存储的应用接口
type BadgerStore interface {
	// Close 关闭数据库连接，确保待写入数据落盘
	Close() error

	// Get 获取指定键的值
	// 如果键不存在，返回nil值和nil错误
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 设置键值对
	Set(ctx context.Context, key, value []byte) error

	// SetWithTTL 设置键值对并指定过期时间
	SetWithTTL(ctx context.Context, key, value []byte, ttl time.Duration) error

	// Delete 删除指定键
	Delete(ctx context.Context, key []byte) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key []byte) (bool, error)

	// PrefixScan 按前缀扫描，返回 key(string) → value
	PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error)

	// RunInTransaction 在读写事务中执行操作
	// fn 返回错误时事务被丢弃，否则提交
	RunInTransaction(ctx context.Context, fn func(tx BadgerTransaction) error) error
}

// BadgerTransaction 事务内可用的操作
type BadgerTransaction interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Exists(key []byte) (bool, error)
}
