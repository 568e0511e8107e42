package middleware

import (
	"context"
	"encoding/binary"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/contribsync/internal/api/http/types"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
)

// 桶状态：float64 剩余令牌 + int64 上次补充时间（UnixNano），小端
const bucketStateSize = 16

// RateLimit 按客户端IP的令牌桶限流中间件
// - 读操作宽松限流
// - 写操作严格限流（每次写都可能触发一次外部同步）
//
// 桶状态保存在内存缓存中，空闲超过 idleTTL 的桶自动过期。
type RateLimit struct {
	logger     *zap.Logger
	store      storage.MemoryStore
	mu         sync.Mutex
	readLimit  int // 读操作每秒请求数
	writeLimit int // 写操作每秒请求数
	idleTTL    time.Duration
	now        func() time.Time
}

// NewRateLimit 创建限流中间件
func NewRateLimit(logger *zap.Logger, store storage.MemoryStore, readLimit, writeLimit int, idleTTL time.Duration) *RateLimit {
	if readLimit <= 0 {
		readLimit = 1
	}
	if writeLimit <= 0 {
		writeLimit = 1
	}
	return &RateLimit{
		logger:     logger,
		store:      store,
		readLimit:  readLimit,
		writeLimit: writeLimit,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

// Middleware 返回Gin中间件
func (m *RateLimit) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isWrite := isWriteOperation(c.Request.Method)

		limit, class := m.readLimit, "r"
		if isWrite {
			limit, class = m.writeLimit, "w"
		}

		key := "ratelimit:" + class + ":" + c.ClientIP()
		if !m.allowRequest(c.Request.Context(), key, limit) {
			c.Header("Retry-After", "1")
			WriteError(c, http.StatusTooManyRequests, types.NewErrorResponse(
				types.ErrRateLimitExceeded,
				"Request rate limit exceeded",
				map[string]interface{}{
					"limit":      limit,
					"retryAfter": "1s",
				},
			))
			return
		}

		c.Next()
	}
}

// allowRequest 补充令牌后尝试消费一个，缓存异常时放行
func (m *RateLimit) allowRequest(ctx context.Context, key string, limit int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	capacity := float64(limit)
	tokens := capacity

	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("读取限流状态失败", zap.String("key", key), zap.Error(err))
		return true
	}
	if ok && len(raw) == bucketStateSize {
		prevTokens, last := decodeBucket(raw)
		elapsed := now.Sub(time.Unix(0, last)).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		tokens = math.Min(capacity, prevTokens+elapsed*capacity)
	}

	allowed := tokens >= 1
	if allowed {
		tokens--
	}

	if err := m.store.Set(ctx, key, encodeBucket(tokens, now.UnixNano()), m.idleTTL); err != nil {
		m.logger.Warn("写入限流状态失败", zap.String("key", key), zap.Error(err))
	}
	return allowed
}

func encodeBucket(tokens float64, last int64) []byte {
	buf := make([]byte, bucketStateSize)
	binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(tokens))
	binary.LittleEndian.PutUint64(buf[8:], uint64(last))
	return buf
}

func decodeBucket(raw []byte) (float64, int64) {
	tokens := math.Float64frombits(binary.LittleEndian.Uint64(raw[:8]))
	last := int64(binary.LittleEndian.Uint64(raw[8:]))
	return tokens, last
}

// isWriteOperation 非安全方法视为写操作
func isWriteOperation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// String 便于日志输出当前限流配置
func (m *RateLimit) String() string {
	return "read=" + strconv.Itoa(m.readLimit) + "/s write=" + strconv.Itoa(m.writeLimit) + "/s"
}
