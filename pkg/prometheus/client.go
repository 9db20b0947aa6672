package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client Prometheus 客户端
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	// HTTP 服务器
	httpServer *http.Server

	// 状态
	closed atomic.Bool
}

// New 创建 Prometheus 客户端
func New(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if l == nil {
		l = logger.NewNoop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}

	// 注册默认采集器
	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}

	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// 启动独立 HTTP 服务器
	if cfg.HTTPServer.Enabled {
		c.startHTTPServer()
	}

	return c, nil
}

// Registry 获取底层 Registry，业务指标注册到这里
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Register 注册采集器
func (c *Client) Register(cs ...prometheus.Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}

	for _, collector := range cs {
		if err := c.registry.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return ErrMetricExists
			}
			return err
		}
	}
	return nil
}

// Handler 返回 HTTP Handler（用于集成到现有 HTTP 服务器）
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
}

// Config 获取配置
func (c *Client) Config() *Config {
	return c.config
}

// startHTTPServer 启动独立的 HTTP 服务器
func (c *Client) startHTTPServer() {
	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	c.httpServer = &http.Server{
		Addr:         c.config.HTTPServer.Addr,
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	go func() {
		c.logger.Info("metrics server listening", "addr", c.config.HTTPServer.Addr, "path", c.config.HTTPServer.Path)
		if err := c.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	if c.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.httpServer.Shutdown(ctx)
	}

	return nil
}

// IsClosed 检查客户端是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
