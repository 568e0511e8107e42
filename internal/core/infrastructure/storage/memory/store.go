// Package memory 提供基于BigCache的内存缓存实现
package memory

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	memoryconfig "github.com/weisyn/contribsync/internal/config/storage/memory"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
)

// 每个条目值前8字节为过期时间（UnixNano，小端），0表示仅受bigcache生命周期窗口约束
const expiryHeaderSize = 8

// Store 实现了MemoryStore接口，基于BigCache提供内存缓存功能
type Store struct {
	cache  *bigcache.BigCache
	logger log.Logger
	mutex  sync.Mutex
	config *memoryconfig.Config
	closed bool
	now    func() time.Time
}

// New 创建一个新的BigCache内存存储实例
func New(config *memoryconfig.Config, logger log.Logger) (*Store, error) {
	if config == nil {
		config = memoryconfig.New(nil)
	}

	bigCacheConfig := bigcache.DefaultConfig(config.GetDefaultTTL())
	bigCacheConfig.MaxEntriesInWindow = config.GetMaxEntriesInWindow()
	bigCacheConfig.MaxEntrySize = config.GetMaxEntrySize() + expiryHeaderSize
	bigCacheConfig.Shards = 64
	bigCacheConfig.CleanWindow = config.GetCleanupInterval()
	bigCacheConfig.Verbose = false

	cache, err := bigcache.New(context.Background(), bigCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("创建BigCache实例失败: %w", err)
	}

	return &Store{
		cache:  cache,
		logger: logger,
		config: config,
		now:    time.Now,
	}, nil
}

// Close 关闭缓存并释放资源
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("关闭内存存储")
	}
	err := s.cache.Close()
	if err == nil {
		s.closed = true
	}
	return err
}

// Get 获取缓存值，过期条目视为不存在并顺带删除
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.getLocked(key)
}

func (s *Store) getLocked(key string) ([]byte, bool, error) {
	if s.closed {
		return nil, false, errors.New("内存存储已关闭")
	}

	raw, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(raw) < expiryHeaderSize {
		// 不是本存储写入的格式，当作不存在
		_ = s.cache.Delete(key)
		return nil, false, nil
	}

	expiresAt := int64(binary.LittleEndian.Uint64(raw[:expiryHeaderSize]))
	if expiresAt != 0 && s.now().UnixNano() >= expiresAt {
		_ = s.cache.Delete(key)
		return nil, false, nil
	}

	value := make([]byte, len(raw)-expiryHeaderSize)
	copy(value, raw[expiryHeaderSize:])
	return value, true, nil
}

// Set 设置缓存值，可指定过期时间
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return errors.New("内存存储已关闭")
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}

	entry := make([]byte, expiryHeaderSize+len(value))
	binary.LittleEndian.PutUint64(entry[:expiryHeaderSize], uint64(expiresAt))
	copy(entry[expiryHeaderSize:], value)

	if err := s.cache.Set(key, entry); err != nil {
		if s.logger != nil {
			s.logger.Warnf("设置缓存键[%s]失败: %v", key, err)
		}
		return err
	}
	return nil
}

// Delete 删除指定键的缓存
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Exists 检查键是否存在且未过期
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok, err := s.getLocked(key)
	return ok, err
}

// Count 获取当前缓存中的条目数量
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return int64(s.cache.Len()), nil
}

var _ storage.MemoryStore = (*Store)(nil)
