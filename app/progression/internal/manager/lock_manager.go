package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/pkg/config"
	"github.com/lk2023060901/arise/pkg/database/redis"
	"github.com/lk2023060901/arise/pkg/logger"
)

const lockKeyPrefix = "arise:lock:player:"

// LockConfig 玩家锁配置
type LockConfig struct {
	TTL           time.Duration `mapstructure:"ttl" json:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval" json:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries" json:"max_retries"`
}

// DefaultLockConfig 默认配置
func DefaultLockConfig() *LockConfig {
	return &LockConfig{
		TTL:           10 * time.Second,
		RetryInterval: 50 * time.Millisecond,
		MaxRetries:    100,
	}
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// LockManager 按玩家串行化操作
// 进程内用带引用计数的互斥，配置了 Redis 时再叠加分布式锁
type LockManager struct {
	cfg     *LockConfig
	redis   *redis.Client
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics

	mu      sync.Mutex
	entries map[int64]*lockEntry
}

// NewLockManager rdb 可为 nil
func NewLockManager(cfg *LockConfig, rdb *redis.Client, l logger.Logger, m *metrics.ProgressionMetrics) (*LockManager, error) {
	merged, err := config.MergeConfig(DefaultLockConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge lock config: %w", err)
	}
	return &LockManager{
		cfg:     merged,
		redis:   rdb,
		logger:  l.Named("manager.lock"),
		metrics: m,
		entries: make(map[int64]*lockEntry),
	}, nil
}

// WithPlayerLock 持锁执行 fn，等锁期间 ctx 取消则返回 ctx 错误
func (m *LockManager) WithPlayerLock(ctx context.Context, playerID int64, fn func() error) error {
	start := time.Now()

	e := m.acquire(playerID)
	defer m.release(playerID, e)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.ch }()

	if m.redis == nil {
		m.recordWait(start)
		return fn()
	}

	key := fmt.Sprintf("%s%d", lockKeyPrefix, playerID)
	err := m.redis.WithLockRetry(ctx, key, m.cfg.TTL, m.cfg.RetryInterval, m.cfg.MaxRetries, func() error {
		m.recordWait(start)
		return fn()
	})
	if errors.Is(err, redis.ErrLockFailed) {
		m.logger.Warn("player lock busy",
			"player_id", playerID,
			"waited", time.Since(start),
		)
	}
	return err
}

// Held 当前有引用的玩家数
func (m *LockManager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *LockManager) acquire(playerID int64) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[playerID]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		m.entries[playerID] = e
	}
	e.refs++
	return e
}

func (m *LockManager) release(playerID int64, e *lockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.entries, playerID)
	}
}

func (m *LockManager) recordWait(start time.Time) {
	if m.metrics != nil {
		m.metrics.RecordLockWait(time.Since(start))
	}
}
