package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/app/progression/internal/dao"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/gameconfig"
	"github.com/lk2023060901/arise/app/progression/internal/handler"
	"github.com/lk2023060901/arise/app/progression/internal/manager"
	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/app/progression/internal/repository"
	"github.com/lk2023060901/arise/pkg/app"
	"github.com/lk2023060901/arise/pkg/database/postgres"
	"github.com/lk2023060901/arise/pkg/database/redis"
	"github.com/lk2023060901/arise/pkg/logger"
	"github.com/lk2023060901/arise/pkg/mq/kafka"
	"github.com/lk2023060901/arise/pkg/prometheus"
	"github.com/lk2023060901/arise/pkg/web"
	"github.com/lk2023060901/arise/pkg/web/validator"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"

	migrateTimeout = 30 * time.Second
)

func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, error) {
	return prometheus.New(&cfg.Prometheus, l)
}

// provideMetrics 创建业务指标并注册到进程注册表
func provideMetrics(cfg *Config, prom *prometheus.Client) (*metrics.ProgressionMetrics, error) {
	m, err := metrics.New(&cfg.Metrics)
	if err != nil {
		return nil, err
	}
	if err := m.Register(prom.Registry()); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

// providePostgres memory 模式下返回 nil
func providePostgres(cfg *Config, l logger.Logger) (*postgres.Client, error) {
	if cfg.Storage.Driver == driverMemory {
		l.Warn("using in-memory storage, state is lost on exit")
		return nil, nil
	}
	db, err := postgres.New(&cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	if cfg.Storage.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := dao.EnsureSchema(ctx, db.DB()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// provideRedis 未启用时返回 nil
func provideRedis(cfg *Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb, err := redis.NewClient(&cfg.Redis.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return rdb, nil
}

// provideRepository 按存储驱动选择仓储，有 Redis 时挂上快照缓存
func provideRepository(
	cfg *Config,
	db *postgres.Client,
	rdb *redis.Client,
	m *metrics.ProgressionMetrics,
	l logger.Logger,
) repository.PlayerRepository {
	if db == nil {
		return repository.NewMemoryRepository()
	}

	var cache repository.StateCache
	if rdb != nil {
		cache = dao.NewCacheDAO(rdb, l, m, cfg.Redis.CacheTTL)
	}
	return repository.NewPostgresRepository(
		db,
		dao.NewPlayerDAO(l, m),
		dao.NewGauntletDAO(l, m),
		dao.NewDungeonDAO(l, m),
		dao.NewConstellationDAO(l, m),
		dao.NewPurificationDAO(l, m),
		cache,
		l,
	)
}

func provideLockManager(cfg *Config, rdb *redis.Client, l logger.Logger, m *metrics.ProgressionMetrics) (*manager.LockManager, error) {
	return manager.NewLockManager(&cfg.Lock, rdb, l, m)
}

func provideTables(cfg *Config, l logger.Logger) (*gameconfig.Tables, error) {
	return gameconfig.Load(cfg.GameData, l)
}

func provideRules(tables *gameconfig.Tables) *engine.Rules {
	return engine.NewRules(tables)
}

func provideClock() engine.Clock {
	return engine.SystemClock{}
}

func provideRand() engine.Rand {
	return engine.NewRand(uint64(time.Now().UnixNano()))
}

// providePublisher 未启用 Kafka 时事件直接丢弃
func providePublisher(cfg *Config, m *metrics.ProgressionMetrics, l logger.Logger) (event.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return event.NoopPublisher{}, nil
	}
	producer, err := kafka.NewProducer(&cfg.Kafka.ProducerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	pub, err := event.NewKafkaPublisher(producer, cfg.Kafka.Lanes, l, m)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}
	return pub, nil
}

// provideHTTPServer 挂载中间件、指标与业务路由
func provideHTTPServer(
	cfg *Config,
	h *handler.ProgressionHandler,
	m *metrics.ProgressionMetrics,
	prom *prometheus.Client,
	l logger.Logger,
) (*web.Server, error) {
	validator.Init()

	srv, err := web.NewServer(&cfg.Server, l)
	if err != nil {
		return nil, err
	}
	r := srv.Router()
	r.Use(m.Middleware())
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if path := m.GetConfig().Path; path != "" {
		r.GET(path, metrics.Handler(prom.Registry()))
	}
	h.Register(r)
	return srv, nil
}

func provideAppOptions(l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
	}
}

// provideAppComponents Closers 按注册逆序关闭：先停事件投递，再断开存储
func provideAppComponents(
	srv *web.Server,
	prom *prometheus.Client,
	db *postgres.Client,
	rdb *redis.Client,
	publisher event.Publisher,
) app.AppComponents {
	closers := make([]app.Closer, 0, 4)
	closers = append(closers, prom)
	if db != nil {
		closers = append(closers, db)
	}
	if rdb != nil {
		closers = append(closers, rdb)
	}
	closers = append(closers, publisher)

	return app.AppComponents{
		Servers: []app.Server{srv, prom},
		Closers: closers,
	}
}
