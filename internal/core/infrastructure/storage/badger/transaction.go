package badger

import (
	"errors"
	"fmt"
	"sync/atomic"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
)

// 确保 Transaction 实现了 interfaces.BadgerTransaction 接口
var _ storage.BadgerTransaction = (*Transaction)(nil)

// TransactionState 定义事务的状态
type TransactionState int32

const (
	// TxActive 表示事务处于活动状态
	TxActive TransactionState = iota
	// TxCommitted 表示事务已提交
	TxCommitted
	// TxDiscarded 表示事务已丢弃
	TxDiscarded
)

// Transaction 实现BadgerTransaction接口
type Transaction struct {
	txn        *badgerdb.Txn
	state      int32 // 使用atomic操作管理状态
	operations int   // 写操作次数
}

// Get 获取指定键的值，键不存在时返回nil值和nil错误
func (t *Transaction) Get(key []byte) ([]byte, error) {
	if t.getState() != TxActive {
		return nil, fmt.Errorf("事务已关闭")
	}

	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("复制键值失败: %w", err)
	}
	return val, nil
}

// Set 设置键值对
func (t *Transaction) Set(key, value []byte) error {
	if t.getState() != TxActive {
		return fmt.Errorf("事务已关闭")
	}
	if err := t.txn.Set(key, value); err != nil {
		return err
	}
	t.operations++
	return nil
}

// Delete 删除指定键
func (t *Transaction) Delete(key []byte) error {
	if t.getState() != TxActive {
		return fmt.Errorf("事务已关闭")
	}
	if err := t.txn.Delete(key); err != nil {
		return err
	}
	t.operations++
	return nil
}

// Exists 检查键是否存在
func (t *Transaction) Exists(key []byte) (bool, error) {
	if t.getState() != TxActive {
		return false, fmt.Errorf("事务已关闭")
	}
	_, err := t.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if !atomic.CompareAndSwapInt32(&t.state, int32(TxActive), int32(TxCommitted)) {
		if t.getState() == TxCommitted {
			return fmt.Errorf("事务已提交")
		}
		return fmt.Errorf("事务已丢弃，无法提交")
	}

	// 只读事务无需提交
	if t.operations == 0 {
		t.txn.Discard()
		return nil
	}

	// 保留 badger 的哨兵错误，调用方据此判断写冲突
	return t.txn.Commit()
}

// Discard 丢弃事务中的所有更改
func (t *Transaction) Discard() {
	if atomic.CompareAndSwapInt32(&t.state, int32(TxActive), int32(TxDiscarded)) {
		t.txn.Discard()
	}
}

func (t *Transaction) getState() TransactionState {
	return TransactionState(atomic.LoadInt32(&t.state))
}

// IsDiscarded 检查事务是否已丢弃
func (t *Transaction) IsDiscarded() bool {
	return t.getState() == TxDiscarded
}
