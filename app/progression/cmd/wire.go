//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/lk2023060901/arise/app/progression/internal/handler"
	"github.com/lk2023060901/arise/app/progression/internal/manager"
	"github.com/lk2023060901/arise/app/progression/internal/service"
	"github.com/lk2023060901/arise/pkg/app"
	"github.com/lk2023060901/arise/pkg/logger"
)

func InitApp(cfg *Config, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,

		// 2. 指标
		providePrometheus,
		provideMetrics,

		// 3. 存储 (PostgreSQL / Redis)
		providePostgres,
		provideRedis,
		provideRepository,

		// 4. 管理层
		provideLockManager,
		manager.NewPlayerManager,

		// 5. 规则
		provideTables,
		provideRules,
		provideClock,
		provideRand,

		// 6. 事件投递
		providePublisher,

		// 7. 服务层与接口层
		service.NewProgressionService,
		handler.NewProgressionHandler,
		provideHTTPServer,

		// 8. 组装与应用配置
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}
