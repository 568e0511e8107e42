package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisconfig "github.com/weisyn/contribsync/internal/config/storage/redis"
)

// maxWatchRetries 乐观事务冲突时的最大重试次数
const maxWatchRetries = 5

// goRedisClient 基于 go-redis 的 redisClient 实现
type goRedisClient struct {
	client *redis.Client
}

var _ redisClient = (*goRedisClient)(nil)

// newGoRedisClient 创建客户端并测试连接
func newGoRedisClient(cfg *redisconfig.Config) (*goRedisClient, error) {
	opts := cfg.GetOptions()
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &goRedisClient{client: client}, nil
}

func (c *goRedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *goRedisClient) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = []byte(s)
		}
	}
	return out, nil
}

// SetIndexed 在一个 MULTI 中写入值并加入索引集合
func (c *goRedisClient) SetIndexed(ctx context.Context, key string, value []byte, indexKey, member string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.SAdd(ctx, indexKey, member)
		return nil
	})
	return err
}

// DelIndexed 在一个 MULTI 中删除值并移出索引集合
func (c *goRedisClient) DelIndexed(ctx context.Context, key, indexKey, member string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, indexKey, member)
		return nil
	})
	return err
}

func (c *goRedisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.client.SMembers(ctx, key).Result()
}

// Update 用 WATCH 实现读改写，键不存在时返回 false
func (c *goRedisClient) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) (bool, error) {
	var found bool
	txf := func(tx *redis.Tx) error {
		found = false
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		found = true
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return found, err
	}
	return false, fmt.Errorf("update %s: too many concurrent modifications", key)
}

func (c *goRedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *goRedisClient) Close() error {
	return c.client.Close()
}
