// Package badger 提供基于BadgerDB的存储实现
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	badgerconfig "github.com/weisyn/contribsync/internal/config/storage/badger"
	log "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	interfaces "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
	"go.uber.org/zap"
)

// 写冲突时事务的最大重试次数
const maxConflictRetries = 3

// Store 实现BadgerStore接口
type Store struct {
	db     *badgerdb.DB
	config *badgerconfig.Config
	logger log.Logger

	// 关闭过程中拒绝新的写入，并等待进行中的写入完成
	closing int32
	writeWg sync.WaitGroup
}

// New 创建新的BadgerStore实例
func New(config *badgerconfig.Config, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	if config == nil {
		config = badgerconfig.New(nil)
	}

	var opts badgerdb.Options
	if config.IsInMemory() {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
		logger.Info("初始化BadgerDB存储（内存模式）")
	} else {
		dataDir := config.GetPath()
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("无法创建BadgerDB数据目录: %w", err)
		}
		opts = badgerdb.DefaultOptions(dataDir)
		opts.SyncWrites = config.IsSyncWritesEnabled()
		logger.Infof("初始化BadgerDB存储，数据目录: %s", dataDir)
	}

	opts.MemTableSize = config.GetMemTableSize()
	opts.NumMemtables = 2
	// 学生记录体量很小，缩小缓存以降低常驻内存
	opts.BlockCacheSize = 16 << 20
	opts.IndexCacheSize = 16 << 20
	opts.ValueLogFileSize = 64 << 20
	opts.NumCompactors = 2
	opts.Logger = newBadgerLogger(logger)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开BadgerDB失败: %w", err)
	}

	return &Store{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// nopLogger 未注入日志时使用
type nopLogger struct{}

func (nopLogger) Debug(string)                   {}
func (nopLogger) Debugf(string, ...interface{})  {}
func (nopLogger) Info(string)                    {}
func (nopLogger) Infof(string, ...interface{})   {}
func (nopLogger) Warn(string)                    {}
func (nopLogger) Warnf(string, ...interface{})   {}
func (nopLogger) Error(string)                   {}
func (nopLogger) Errorf(string, ...interface{})  {}
func (nopLogger) Fatal(string)                   {}
func (nopLogger) Fatalf(string, ...interface{})  {}
func (nopLogger) With(...interface{}) log.Logger { return nopLogger{} }
func (nopLogger) Sync() error                    { return nil }
func (nopLogger) GetZapLogger() *zap.Logger      { return zap.NewNop() }

// Close 关闭存储并释放资源
func (s *Store) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closing, 0, 1) {
		return nil
	}

	// 等待所有写事务退出，避免 Close 过程中仍有写入
	waitCh := make(chan struct{})
	go func() {
		s.writeWg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(30 * time.Second):
		s.logger.Warn("等待进行中的写事务超时（30s），继续关闭BadgerDB")
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("关闭BadgerDB失败: %w", err)
	}
	s.logger.Info("BadgerDB存储已关闭")
	return nil
}

func (s *Store) beginWrite() (func(), error) {
	if atomic.LoadInt32(&s.closing) == 1 {
		return nil, fmt.Errorf("badger store is closing")
	}
	s.writeWg.Add(1)
	// double-check，避免在 Add 之后进入 closing
	if atomic.LoadInt32(&s.closing) == 1 {
		s.writeWg.Done()
		return nil, fmt.Errorf("badger store is closing")
	}
	return s.writeWg.Done, nil
}

// Get 获取指定键的值，键不存在时返回nil值和nil错误
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var valCopy []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger获取键失败: %w", err)
	}
	return valCopy, nil
}

// Set 设置键值对
func (s *Store) Set(ctx context.Context, key, value []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, value)
	})
}

// SetWithTTL 设置键值对并指定过期时间
func (s *Store) SetWithTTL(ctx context.Context, key, value []byte, ttl time.Duration) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.SetEntry(badgerdb.NewEntry(key, value).WithTTL(ttl))
	})
}

// Delete 删除指定键的值
func (s *Store) Delete(ctx context.Context, key []byte) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key)
	})
}

// Exists 检查键是否存在
func (s *Store) Exists(ctx context.Context, key []byte) (bool, error) {
	var exists bool
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badger检查键存在性失败: %w", err)
	}
	return exists, nil
}

// PrefixScan 前缀扫描键值对
func (s *Store) PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			valCopy, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(item.KeyCopy(nil))] = valCopy
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger前缀扫描失败: %w", err)
	}
	return result, nil
}

// RunInTransaction 在读写事务中执行 fn
// 提交遇到写冲突时重新执行 fn，最多 maxConflictRetries 次
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx interfaces.BadgerTransaction) error) error {
	done, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer done()

	for attempt := 1; ; attempt++ {
		err := s.runOnce(fn)
		if errors.Is(err, badgerdb.ErrConflict) && attempt < maxConflictRetries {
			s.logger.Debugf("badger事务写冲突，重试 attempt=%d", attempt)
			continue
		}
		return err
	}
}

func (s *Store) runOnce(fn func(tx interfaces.BadgerTransaction) error) error {
	tx := &Transaction{
		txn:   s.db.NewTransaction(true),
		state: int32(TxActive),
	}
	defer tx.Discard()

	if err := fn(tx); err != nil {
		return fmt.Errorf("事务执行失败: %w", err)
	}

	if tx.IsDiscarded() {
		return fmt.Errorf("事务已被丢弃")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

var _ interfaces.BadgerStore = (*Store)(nil)

// badgerLogger 将BadgerDB内部日志转发到应用日志
type badgerLogger struct {
	logger log.Logger
}

func newBadgerLogger(logger log.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("[BadgerDB] "+format, args...)
}

// Infof BadgerDB的压缩和刷盘信息较多，降为调试级别
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}
