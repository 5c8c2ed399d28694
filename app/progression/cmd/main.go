package main

import (
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/gameconfig"
	"github.com/lk2023060901/arise/app/progression/internal/manager"
	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/pkg/app"
	"github.com/lk2023060901/arise/pkg/config"
	"github.com/lk2023060901/arise/pkg/database/postgres"
	"github.com/lk2023060901/arise/pkg/database/redis"
	"github.com/lk2023060901/arise/pkg/logger"
	"github.com/lk2023060901/arise/pkg/mq/kafka"
	"github.com/lk2023060901/arise/pkg/prometheus"
	"github.com/lk2023060901/arise/pkg/web"
)

// Config 成长服务的完整配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// HTTP 服务
	Server web.Config `mapstructure:"server"`

	// 存储
	Storage  StorageConfig   `mapstructure:"storage"`
	Postgres postgres.Config `mapstructure:"postgres"`
	Redis    RedisConfig     `mapstructure:"redis"`

	// 事件投递
	Kafka KafkaConfig `mapstructure:"kafka"`

	Metrics    metrics.Config    `mapstructure:"metrics"`
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	Lock     manager.LockConfig `mapstructure:"lock"`
	GameData gameconfig.Files   `mapstructure:"gamedata"`
}

// StorageConfig memory 仅用于本地调试，进程退出即丢失
type StorageConfig struct {
	Driver      string `mapstructure:"driver" validate:"omitempty,oneof=postgres memory"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 未启用时不使用缓存和分布式锁
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	redis.Config `mapstructure:",squash"`
}

// KafkaConfig 未启用时事件只在本地丢弃
type KafkaConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	Lanes                int  `mapstructure:"lanes"`
	kafka.ProducerConfig `mapstructure:",squash"`
}

func main() {
	var cfg Config

	// 1. 加载并校验配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}
	if err := config.NewValidator().Validate(&cfg); err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l)
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
