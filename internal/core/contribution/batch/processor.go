// Package batch 将ID列表分块并按批并发执行
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/internal/core/contribution/external"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
)

// Hooks 批处理回调
type Hooks struct {
	// ShouldStop 每批开始前与每批完成后检查，返回 true 时不再启动后续批次
	ShouldStop func() bool
	// BeforeBatch 批次开始前调用，index 从 0 开始
	BeforeBatch func(index, total int, chunk []string)
	// OnEntity 处理单个ID，同一批内并发调用
	OnEntity func(ctx context.Context, id string)
	// AfterBatch 整批完成后调用
	AfterBatch func(index, total int, chunk []string)
}

// Stats 运行统计
type Stats struct {
	Batches int  // 实际执行的批次数
	Total   int  // 计划批次数
	Stopped bool // ShouldStop 是否生效（包括最后一批完成后）
}

// Processor 批处理器
type Processor struct {
	pacingDelay time.Duration
	logger      log.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// New 创建批处理器，pacingDelay 为批次之间的间隔
func New(pacingDelay time.Duration, logger log.Logger) *Processor {
	return &Processor{
		pacingDelay: pacingDelay,
		logger:      logger,
		sleep:       external.SleepContext,
	}
}

// Partition 按 size 切分为连续的块，最后一块可能不足
func Partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

// Run 逐批处理 ids
//
// 批内并发度等于批大小，整批完成后才进入下一批；批次之间等待 pacingDelay，最后一批之后不等待。
// 已开始的批次总会执行完毕。ctx 结束时返回 ctx 的错误。
func (p *Processor) Run(ctx context.Context, ids []string, batchSize int, hooks Hooks) (Stats, error) {
	chunks := Partition(ids, syncconfig.ClampBatchSize(batchSize))
	stats := Stats{Total: len(chunks)}

	for i, chunk := range chunks {
		if hooks.ShouldStop != nil && hooks.ShouldStop() {
			stats.Stopped = true
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if hooks.BeforeBatch != nil {
			hooks.BeforeBatch(i, len(chunks), chunk)
		}

		var g errgroup.Group
		g.SetLimit(len(chunk))
		for _, id := range chunk {
			id := id
			g.Go(func() error {
				if hooks.OnEntity != nil {
					hooks.OnEntity(ctx, id)
				}
				return nil
			})
		}
		_ = g.Wait()
		stats.Batches++

		if hooks.AfterBatch != nil {
			hooks.AfterBatch(i, len(chunks), chunk)
		}
		if p.logger != nil {
			p.logger.Debugf("批次完成: %d/%d size=%d", i+1, len(chunks), len(chunk))
		}

		// 最后一批之后同样检查，批内收到的停止请求不会被忽略
		if hooks.ShouldStop != nil && hooks.ShouldStop() {
			stats.Stopped = true
			return stats, nil
		}
		if i == len(chunks)-1 {
			break
		}
		if err := p.sleep(ctx, p.pacingDelay); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
