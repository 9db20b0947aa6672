package main

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/dao"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/handler"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/manager"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/model"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/service"
	"github.com/lk2023060901/xdooria-rates/pkg/app"
	"github.com/lk2023060901/xdooria-rates/pkg/config"
	"github.com/lk2023060901/xdooria-rates/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-rates/pkg/database/redis"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/prometheus"
	"github.com/lk2023060901/xdooria-rates/pkg/router"
	"github.com/lk2023060901/xdooria-rates/pkg/web"
	webmetrics "github.com/lk2023060901/xdooria-rates/pkg/web/metrics"
)

// startupTimeout 启动阶段访问外部存储的超时
const startupTimeout = 10 * time.Second

// provideRatesSettings 提供功能配置
func provideRatesSettings(cfg *Config) *model.Settings {
	return &cfg.Rates
}

// provideWebConfig 提供 HTTP 服务配置
func provideWebConfig(cfg *Config) *web.Config {
	return &cfg.HTTP
}

// providePostgresConfig 提供数据库配置
func providePostgresConfig(cfg *Config) *postgres.Config {
	return &cfg.Database
}

// providePrometheusConfig 提供 Prometheus 配置
func providePrometheusConfig(cfg *Config) *prometheus.Config {
	return &cfg.Prometheus
}

// provideMetricsConfig 提供指标配置
func provideMetricsConfig(cfg *Config) *metrics.Config {
	return &cfg.Metrics
}

// providePostgresClient 连接数据库，cleanup 关闭连接池
func providePostgresClient(cfg *postgres.Config, l logger.Logger) (*postgres.Client, func(), error) {
	client, err := postgres.New(cfg, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect postgres")
	}
	return client, client.Close, nil
}

// provideRateDAO 创建倍率 DAO，按配置执行建表脚本
func provideRateDAO(cfg *Config, db *postgres.Client, l logger.Logger, m *metrics.RatesMetrics) (*dao.RateDAO, error) {
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		if err := dao.Migrate(ctx, db, l.Named("migrate")); err != nil {
			return nil, err
		}
	}
	return dao.NewRateDAO(db, l, m), nil
}

// provideRedisClient 未启用 Redis 时返回 nil
func provideRedisClient(cfg *Config, l logger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}

	client, err := redis.NewClient(&cfg.Redis.Config)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect redis")
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("failed to close redis client", "error", err)
		}
	}
	return client, cleanup, nil
}

// provideFeatureDAO 未启用 Redis 时开关只在本节点生效
func provideFeatureDAO(client *redis.Client, l logger.Logger, m *metrics.RatesMetrics) dao.FeatureDAO {
	if client == nil {
		l.Info("redis disabled, xp rate toggle is local only")
		return dao.NewNoopFeatureDAO()
	}
	return dao.NewRedisFeatureDAO(client, l, m)
}

// provideLifecycleHooks 提供玩家生命周期回调表
func provideLifecycleHooks() *service.LifecycleHooks {
	return router.NewHooks[*model.LifecycleEvent]()
}

// provideHTTPHandler 提供 HTTP 处理器，/metrics 暴露 Prometheus Registry，/v1/stats 附带连接池统计
func provideHTTPHandler(
	l logger.Logger,
	svc *service.RateService,
	commands *handler.CommandHandler,
	m *metrics.RatesMetrics,
	promClient *prometheus.Client,
	db *postgres.Client,
	rdb *redis.Client,
) *handler.HTTPHandler {
	var cache handler.CacheStats
	if rdb != nil {
		cache = rdb
	}
	return handler.NewHTTPHandler(l, svc, commands, m, promClient.Handler()).WithPoolStats(db, cache)
}

func provideAppOptions(cfg *Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName("rates"),
		app.WithLogger(l),
		app.WithLogConfig(&cfg.Log),
		app.WithNamedLoggers(cfg.Loggers),
	}
}

func provideAppComponents(
	baseApp *app.BaseApp,
	webServer *web.Server,
	httpHandler *handler.HTTPHandler,
	rateSvc *service.RateService,
	settingsMgr *manager.SettingsManager,
	feature dao.FeatureDAO,
	promClient *prometheus.Client,
	ratesMetrics *metrics.RatesMetrics,
	mgr config.Manager,
) (app.AppComponents, error) {
	// 注册指标到 Prometheus
	if err := ratesMetrics.Register(promClient.Registry()); err != nil {
		return app.AppComponents{}, errors.Wrap(err, "failed to register rates metrics")
	}
	webmetrics.InitMetrics(promClient.Registry())

	// 注册 HTTP 路由
	httpHandler.Register(webServer.Router())

	// 配置文件热更新
	if err := settingsMgr.Watch(mgr); err != nil {
		baseApp.AppLogger().Warn("rates settings hot reload disabled", "error", err)
	}

	return app.AppComponents{
		Servers: []app.Server{
			&toggleListener{svc: rateSvc, feature: feature, logger: baseApp.AppLogger()},
			webServer,
		},
		Closers: []app.Closer{
			promClient,
			ratesMetrics,
		},
	}, nil
}

// toggleListener 启动时同步共享的开关状态并监听远端变更，实现 app.Server 接口
type toggleListener struct {
	svc     *service.RateService
	feature dao.FeatureDAO
	logger  logger.Logger
}

func (t *toggleListener) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// 共享状态读取失败时沿用配置文件中的开关
	if err := t.svc.SyncToggle(ctx); err != nil {
		t.logger.Warn("failed to load shared toggle state", "error", err)
	}
	return t.feature.Start()
}

func (t *toggleListener) Stop() error {
	return t.feature.Stop()
}
