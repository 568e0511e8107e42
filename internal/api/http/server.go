// Package http 提供贡献同步的 HTTP API 服务
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/internal/api/http/handlers"
	"github.com/weisyn/contribsync/internal/api/http/middleware"
	"github.com/weisyn/contribsync/internal/api/websocket"
	apiconfig "github.com/weisyn/contribsync/internal/config/api"
	"github.com/weisyn/contribsync/pkg/interfaces/config"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/contribsync/pkg/interfaces/infrastructure/storage"
)

// ServerParams HTTP服务器依赖
type ServerParams struct {
	fx.In

	Lifecycle  fx.Lifecycle `optional:"true"`
	Config     config.Provider
	Logger     log.Logger
	Manager    contribution.JobManager
	Repository contribution.StudentRepository
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Cache      storage.MemoryStore `optional:"true"`
	Progress   *websocket.Server   `optional:"true"`
}

// Server HTTP服务器结构
// 负责路由注册、中间件装配以及服务的启动和停止
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	options     *apiconfig.APIOptions
	environment string
	logger      log.Logger

	mu   sync.Mutex
	addr string
}

// NewServer 创建新的HTTP服务器并注册生命周期钩子
func NewServer(p ServerParams) *Server {
	options := p.Config.GetAPI()
	if options == nil {
		options = apiconfig.New(nil).GetOptions()
	}
	logger := p.Logger.With("module", "api.http")

	server := &Server{
		router:      gin.New(),
		options:     options,
		environment: p.Config.GetEnvironment(),
		logger:      logger,
	}
	server.setupRoutes(p)

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if !options.HTTP.Enabled {
					logger.Warn("HTTP API在配置中被禁用，跳过启动")
					return nil
				}
				return server.Start()
			},
			OnStop: func(ctx context.Context) error {
				return server.Stop(ctx)
			},
		})
	}

	return server
}

// setupRoutes 设置HTTP路由
//
//	/health                      健康检查
//	/metrics                     Prometheus 指标
//	/api/v1/sync...              同步接口（按客户端限流）
//	/api/v1/sync/events          进度推送 WebSocket
func (s *Server) setupRoutes(p ServerParams) {
	zl := s.logger.GetZapLogger()

	s.router.Use(
		middleware.Recovery(zl),
		middleware.NewRequestID().Middleware(),
		middleware.NewLogger(s.logger).Middleware(),
		middleware.NewMetrics(p.Registerer).Middleware(),
	)

	handlers.NewHealthHandler(s.logger, p.Repository, p.Manager).RegisterRoutes(s.router)

	if s.options.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	syncGroup := v1.Group("/sync")
	if s.options.RateLimit.Enabled {
		if p.Cache == nil {
			s.logger.Warn("未提供内存缓存，同步接口限流未启用")
		} else {
			rl := middleware.NewRateLimit(zl, p.Cache,
				s.options.RateLimit.ReadLimit, s.options.RateLimit.WriteLimit, s.options.RateLimit.IdleTTL)
			syncGroup.Use(rl.Middleware())
			s.logger.Infof("同步接口限流已启用: %s", rl)
		}
	}

	handlers.NewSyncHandlers(p.Manager, p.Repository, s.logger).RegisterRoutes(syncGroup)
	handlers.NewJobHandlers(p.Manager, p.Repository, s.logger).RegisterRoutes(syncGroup.Group("/jobs"))

	if p.Progress != nil && s.options.WebSocket.Enabled {
		syncGroup.GET("/events", p.Progress.HandleWebSocket)
	}

	s.logger.Info("HTTP路由注册完成")
}

// Handler 返回路由引擎
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start 启动HTTP服务器
// 监听成功后在后台goroutine中处理请求
func (s *Server) Start() error {
	host, port := s.options.HTTP.Host, s.options.HTTP.Port
	if host == "" {
		host = "0.0.0.0"
	}

	// 开发环境端口被占用时自动漂移，其余环境直接报错
	if s.environment == "dev" && port != 0 && !isPortAvailable(host, port) {
		newPort, err := s.findAvailablePort(host, port)
		if err != nil {
			return fmt.Errorf("端口处理失败: %w", err)
		}
		s.logger.Warnf("端口已自动漂移: %d -> %d", port, newPort)
		port = newPort
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return fmt.Errorf("监听HTTP端口失败: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.options.HTTP.ReadTimeout,
		WriteTimeout: s.options.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	srv, addr := s.httpServer, s.addr
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP服务器运行失败: %v", err)
		}
	}()

	s.logger.Infof("HTTP服务器启动成功，监听地址: %s", addr)
	s.logger.Infof("API端点: http://%s/api/v1/sync", addr)
	return nil
}

func isPortAvailable(host string, port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// findAvailablePort 在起始端口之后寻找可用端口
func (s *Server) findAvailablePort(host string, startPort int) (int, error) {
	for i := 1; i < 100; i++ {
		candidate := startPort + i
		if candidate > 65535 {
			break
		}
		if isPortAvailable(host, candidate) {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("在端口 %d 之后未找到可用端口", startPort)
}

// Stop 优雅关闭服务器，等待进行中的请求完成
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("正在关闭HTTP服务器")
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(stopCtx); err != nil {
		s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		return err
	}
	s.logger.Info("HTTP服务器已关闭")
	return nil
}
