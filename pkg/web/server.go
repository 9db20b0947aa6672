package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/web/middleware"
	"github.com/lk2023060901/xdooria-rates/pkg/web/validator"
)

// Server Web 服务核心结构，实现 app.Server
type Server struct {
	engine  *gin.Engine
	config  *Config
	logger  logger.Logger
	server  *http.Server
	started atomic.Bool
}

// NewServer 创建 Web 服务
func NewServer(cfg *Config, l logger.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if l == nil {
		l = logger.Default()
	}

	gin.SetMode(cfg.Mode)
	validator.Init()

	engine := gin.New()

	// 挂载基础中间件
	engine.Use(middleware.Recovery(l.Named("web.recovery")))
	engine.Use(middleware.Logger(l.Named("web.access")))
	if cfg.EnableMetrics {
		engine.Use(middleware.Metrics())
	}

	return &Server{
		engine: engine,
		config: cfg,
		logger: l.Named("web.server"),
	}
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler 接口
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 监听地址
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start 启动监听（非阻塞），端口占用等错误立即返回
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerAlreadyStarted
	}

	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.started.Store(false)
		return fmt.Errorf("web: listen %s failed: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		var err error
		if s.config.EnableTLS {
			s.logger.Info("starting https server", "addr", addr)
			err = s.server.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
		} else {
			s.logger.Info("starting http server", "addr", addr)
			err = s.server.Serve(ln)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", "error", err)
		}
	}()

	return nil
}

// Stop 立即关闭
func (s *Server) Stop() error {
	if !s.started.Load() || s.server == nil {
		return ErrServerNotStarted
	}
	return s.server.Close()
}

// GracefulStop 优雅关闭，等待进行中的请求完成
func (s *Server) GracefulStop() error {
	if !s.started.Load() || s.server == nil {
		return ErrServerNotStarted
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server exited")
	return nil
}
