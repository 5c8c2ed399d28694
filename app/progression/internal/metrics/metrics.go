package metrics

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/arise/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	// Path 暴露路径，为空时不注册路由
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "arise",
		Path:      "/metrics",
	}
}

// ProgressionMetrics 成长服务指标
type ProgressionMetrics struct {
	config *Config

	// 业务操作
	OperationTotal    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// 地下城
	DungeonResolved *prometheus.CounterVec
	DungeonScore    *prometheus.HistogramVec

	// 数据库
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// 缓存
	CacheHitTotal  *prometheus.CounterVec
	CacheMissTotal *prometheus.CounterVec

	// 锁等待与事件投递
	LockWait     prometheus.Histogram
	EventsTotal  *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	operations atomic.Int64
	failures   atomic.Int64
}

// New 创建指标
func New(cfg *Config) (*ProgressionMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}
	ns := newCfg.Namespace

	return &ProgressionMetrics{
		config: newCfg,

		OperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "operations_total",
				Help:      "业务操作总数",
			},
			[]string{"operation", "result"}, // result: success/domain_error/failed
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "operation_duration_seconds",
				Help:      "业务操作耗时（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),

		DungeonResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "dungeons_resolved_total",
				Help:      "地下城结算总数",
			},
			[]string{"archetype", "status"},
		),
		DungeonScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "dungeon_score",
				Help:      "地下城表现分",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"archetype"},
		),

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_hits_total",
				Help:      "缓存命中总数",
			},
			[]string{"cache_type"},
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_misses_total",
				Help:      "缓存未命中总数",
			},
			[]string{"cache_type"},
		),

		LockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "player_lock_wait_seconds",
				Help:      "获取玩家锁的等待时间（秒）",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "events_published_total",
				Help:      "对外事件投递总数",
			},
			[]string{"kind", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "HTTP 请求总数",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP 请求耗时（秒）",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}, nil
}

// Register 注册指标到 Prometheus Registry
func (m *ProgressionMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.OperationTotal,
		m.OperationDuration,
		m.DungeonResolved,
		m.DungeonScore,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.CacheHitTotal,
		m.CacheMissTotal,
		m.LockWait,
		m.EventsTotal,
		m.HTTPRequests,
		m.HTTPDuration,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordOperation 记录业务操作，result 取 success/domain_error/failed
func (m *ProgressionMetrics) RecordOperation(op, result string, duration time.Duration) {
	m.operations.Add(1)
	if result == ResultFailed {
		m.failures.Add(1)
	}
	m.OperationTotal.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordDungeon 记录地下城结算
func (m *ProgressionMetrics) RecordDungeon(archetype, status string, score *int) {
	m.DungeonResolved.WithLabelValues(archetype, status).Inc()
	if score != nil {
		m.DungeonScore.WithLabelValues(archetype).Observe(float64(*score))
	}
}

// RecordDBQuery 记录数据库查询
func (m *ProgressionMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	m.DBQueryTotal.WithLabelValues(operation, resultLabel(success)).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheHit 记录缓存命中
func (m *ProgressionMetrics) RecordCacheHit(cacheType string) {
	m.CacheHitTotal.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *ProgressionMetrics) RecordCacheMiss(cacheType string) {
	m.CacheMissTotal.WithLabelValues(cacheType).Inc()
}

// RecordLockWait 记录锁等待
func (m *ProgressionMetrics) RecordLockWait(d time.Duration) {
	m.LockWait.Observe(d.Seconds())
}

// RecordEvent 记录事件投递
func (m *ProgressionMetrics) RecordEvent(kind string, success bool) {
	m.EventsTotal.WithLabelValues(kind, resultLabel(success)).Inc()
}

// RecordHTTP 记录 HTTP 请求
func (m *ProgressionMetrics) RecordHTTP(method, path string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Totals 进程内累计的操作数和失败数
func (m *ProgressionMetrics) Totals() (operations, failures int64) {
	return m.operations.Load(), m.failures.Load()
}

// GetConfig 获取配置
func (m *ProgressionMetrics) GetConfig() *Config {
	return m.config
}

// 操作结果标签
const (
	ResultSuccess     = "success"
	ResultDomainError = "domain_error"
	ResultFailed      = "failed"
)

func resultLabel(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailed
}
