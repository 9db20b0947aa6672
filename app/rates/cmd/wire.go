//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/dao"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/handler"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/manager"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/service"
	"github.com/lk2023060901/xdooria-rates/pkg/app"
	"github.com/lk2023060901/xdooria-rates/pkg/config"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	"github.com/lk2023060901/xdooria-rates/pkg/prometheus"
	"github.com/lk2023060901/xdooria-rates/pkg/router"
	"github.com/lk2023060901/xdooria-rates/pkg/web"
)

func InitApp(cfg *Config, l logger.Logger, mgr config.Manager) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,

		// 2. 命令路由
		router.ProviderSet,

		// 3. 功能配置与在线玩家
		provideRatesSettings,
		manager.NewSettingsManager,
		manager.NewPlayerManager,

		// 4. 数据层 (PostgreSQL)
		providePostgresConfig,
		providePostgresClient,
		provideRateDAO,
		wire.Bind(new(service.RateStore), new(*dao.RateDAO)),

		// 5. 开关同步 (Redis Pub/Sub)
		provideRedisClient,
		provideFeatureDAO,

		// 6. 逻辑层
		provideLifecycleHooks,
		service.NewRateService,

		// 7. 接口层
		handler.NewCommandHandler,
		provideHTTPHandler,
		provideWebConfig,
		web.NewServer,

		// 8. Prometheus 客户端
		providePrometheusConfig,
		prometheus.New,

		// 9. 指标收集
		provideMetricsConfig,
		metrics.New,

		// 10. 组装与应用配置
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}
