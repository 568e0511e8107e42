// Package websocket 将同步进度事件实时推送给 WebSocket 客户端
//
// 服务器只订阅一次事件总线，收到事件后序列化一次并广播给所有连接。
// 每个连接有独立的发送缓冲，缓冲写满的慢客户端会被断开，不会阻塞事件发布方。
package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apiconfig "github.com/weisyn/contribsync/internal/config/api"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/contribsync/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// ErrServerClosed 服务器已关闭
var ErrServerClosed = errors.New("websocket server closed")

// Message 推送给客户端的事件
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// StudentUpdate studentUpdated 事件的数据
type StudentUpdate struct {
	EntityID string             `json:"entityId"`
	Status   types.EntityStatus `json:"status"`
}

type subscription struct {
	eventType event.EventType
	handler   interface{}
}

// Server WebSocket服务器
type Server struct {
	logger   *zap.Logger
	bus      event.EventBus
	upgrader websocket.Upgrader

	maxConnections int
	sendBuffer     int

	mu            sync.Mutex
	clients       map[*client]struct{}
	subscriptions []subscription
	closed        bool
}

// NewServer 创建WebSocket服务器
func NewServer(logger *zap.Logger, bus event.EventBus, cfg apiconfig.WebSocketConfig) *Server {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 100
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	return &Server{
		logger: logger,
		bus:    bus,
		upgrader: websocket.Upgrader{
			// 进度流只读且不携带凭证，允许任意来源
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
		maxConnections: cfg.MaxConnections,
		sendBuffer:     cfg.SendBufferSize,
		clients:        make(map[*client]struct{}),
	}
}

// Start 订阅全部进度事件
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if len(s.subscriptions) > 0 {
		return nil
	}

	subs := make([]subscription, 0, len(contribution.AllEvents))
	for _, et := range contribution.AllEvents {
		subs = append(subs, subscription{eventType: et, handler: s.handlerFor(et)})
	}
	for i, sub := range subs {
		if err := s.bus.Subscribe(sub.eventType, sub.handler); err != nil {
			for _, done := range subs[:i] {
				_ = s.bus.Unsubscribe(done.eventType, done.handler)
			}
			return err
		}
	}
	s.subscriptions = subs
	return nil
}

// handlerFor 按事件负载类型生成回调
func (s *Server) handlerFor(et event.EventType) interface{} {
	name := string(et)
	switch et {
	case contribution.EventStudentUpdated:
		return func(id string, status types.EntityStatus) {
			s.broadcast(name, StudentUpdate{EntityID: id, Status: status})
		}
	case contribution.EventProgressUpdate:
		return func(p types.ProgressUpdate) {
			s.broadcast(name, p)
		}
	default:
		return func(job types.Job) {
			s.broadcast(name, job)
		}
	}
}

// broadcast 在事件总线回调中执行，不得阻塞
func (s *Server) broadcast(name string, data interface{}) {
	payload, err := json.Marshal(Message{
		Event:     name,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.Error("序列化进度事件失败", zap.String("event", name), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			s.logger.Warn("WebSocket客户端发送缓冲已满，断开连接",
				zap.String("remote_addr", c.remoteAddr))
			s.removeLocked(c)
		}
	}
}

// HandleWebSocket 处理WebSocket连接（Gin Handler）
func (s *Server) HandleWebSocket(c *gin.Context) {
	if !s.hasCapacity() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"code":    "SERVICE_UNAVAILABLE",
				"message": "Too many progress stream connections",
			},
		})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	cl := &client{
		conn:       conn,
		send:       make(chan []byte, s.sendBuffer),
		remoteAddr: conn.RemoteAddr().String(),
	}
	if err := s.register(cl); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	s.logger.Info("WebSocket连接已建立", zap.String("remote_addr", cl.remoteAddr))

	go cl.writePump()
	cl.readPump()

	s.mu.Lock()
	s.removeLocked(cl)
	s.mu.Unlock()
	s.logger.Info("WebSocket连接已关闭", zap.String("remote_addr", cl.remoteAddr))
}

func (s *Server) hasCapacity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && len(s.clients) < s.maxConnections
}

func (s *Server) register(c *client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if len(s.clients) >= s.maxConnections {
		return errors.New("too many connections")
	}
	s.clients[c] = struct{}{}
	return nil
}

// removeLocked 关闭发送通道，writePump 随之发送关闭帧并退出
func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

// ClientCount 当前连接数
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close 取消事件订阅并断开所有连接
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subscriptions
	s.subscriptions = nil
	for c := range s.clients {
		s.removeLocked(c)
	}
	s.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := s.bus.Unsubscribe(sub.eventType, sub.handler); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// client 单个WebSocket连接
type client struct {
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// readPump 只处理控制帧，客户端发来的数据被丢弃
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
