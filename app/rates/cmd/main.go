package main

import (
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/pkg/app"
	"github.com/lk2023060901/xdooria-rates/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-rates/pkg/database/redis"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/prometheus"
	"github.com/lk2023060901/xdooria-rates/pkg/web"
)

// Config 定义 Rates 服务的完整配置结构
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	// 功能配置，支持热更新
	Rates model.Settings `mapstructure:"rates"`

	// HTTP 服务配置
	HTTP web.Config `mapstructure:"http"`

	// PostgreSQL 配置
	Database postgres.Config `mapstructure:"database"`
	// 启动时执行建表脚本
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// Redis 配置（开关跨节点同步）
	Redis RedisConfig `mapstructure:"redis"`

	// Prometheus 配置
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	// 指标配置
	Metrics metrics.Config `mapstructure:"metrics"`
}

// RedisConfig 未启用时开关只在本节点生效
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// defaultConfig 配置文件中未出现的字段保持这里的默认值
func defaultConfig() Config {
	return Config{
		Rates:      *model.DefaultSettings(),
		HTTP:       *web.DefaultConfig(),
		Prometheus: *prometheus.DefaultConfig(),
	}
}

func main() {
	cfg := defaultConfig()

	// 1. 加载配置
	mgr, err := app.LoadConfig(&cfg)
	if err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l, mgr)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
