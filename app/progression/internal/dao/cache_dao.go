package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/database/redis"
	"github.com/lk2023060901/arise/pkg/logger"
)

const (
	stateKeyPrefix = "arise:player:"
	stateCacheTTL  = 30 * time.Minute
)

// CacheDAO 玩家聚合的 Redis 缓存
type CacheDAO struct {
	redis   *redis.Client
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics
	ttl     time.Duration
}

// NewCacheDAO 创建缓存 DAO，ttl 为 0 时使用默认值
func NewCacheDAO(rdb *redis.Client, l logger.Logger, m *metrics.ProgressionMetrics, ttl time.Duration) *CacheDAO {
	if ttl <= 0 {
		ttl = stateCacheTTL
	}
	return &CacheDAO{
		redis:   rdb,
		logger:  l.Named("dao.cache"),
		metrics: m,
		ttl:     ttl,
	}
}

// 同一玩家的两个键落在同一 slot
func stateKey(playerID int64) string {
	return fmt.Sprintf("%s{%d}:state", stateKeyPrefix, playerID)
}

func versionKey(playerID int64) string {
	return fmt.Sprintf("%s{%d}:version", stateKeyPrefix, playerID)
}

// GetState 未命中返回 nil, nil
func (d *CacheDAO) GetState(ctx context.Context, playerID int64) (*model.PlayerState, error) {
	s, err := redis.GetObject[model.PlayerState](ctx, d.redis, stateKey(playerID))
	if err != nil {
		if err == redis.ErrNil {
			d.recordMiss()
			return nil, nil
		}
		d.logger.Error("failed to get player state from cache",
			"player_id", playerID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get player state from cache: %w", err)
	}
	d.recordHit()

	if s.Character != nil {
		if s.Character.DisciplineXP == nil {
			s.Character.DisciplineXP = make(map[model.Discipline]int64)
		}
		if s.Character.Consumables == nil {
			s.Character.Consumables = make(map[string]int)
		}
	}
	return s, nil
}

// SetState 写入缓存，缓存里已有更新版本时跳过
func (d *CacheDAO) SetState(ctx context.Context, s *model.PlayerState) error {
	written, err := d.redis.SetObjectIfNewer(ctx, stateKey(s.PlayerID), versionKey(s.PlayerID), s.Version, s, d.ttl, 2*d.ttl)
	if err != nil {
		d.logger.Error("failed to set player state cache",
			"player_id", s.PlayerID,
			"error", err,
		)
		return fmt.Errorf("failed to set player state cache: %w", err)
	}
	if !written {
		d.logger.Debug("skipped stale player state cache write",
			"player_id", s.PlayerID,
			"version", s.Version,
		)
	}
	return nil
}

// DeleteState 删除缓存数据，保留版本号
func (d *CacheDAO) DeleteState(ctx context.Context, playerID int64) error {
	deleted, err := d.redis.Del(ctx, stateKey(playerID))
	if err != nil {
		d.logger.Error("failed to delete player state cache",
			"player_id", playerID,
			"error", err,
		)
		return fmt.Errorf("failed to delete player state cache: %w", err)
	}

	d.logger.Debug("deleted player state cache",
		"player_id", playerID,
		"deleted_count", deleted,
	)
	return nil
}

func (d *CacheDAO) recordHit() {
	if d.metrics != nil {
		d.metrics.RecordCacheHit("redis")
	}
}

func (d *CacheDAO) recordMiss() {
	if d.metrics != nil {
		d.metrics.RecordCacheMiss("redis")
	}
}
