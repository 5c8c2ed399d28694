package manager

import (
	"context"
	"strconv"

	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/app/progression/internal/repository"
	"github.com/lk2023060901/arise/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// PlayerManager 玩家聚合的加载入口
// 同一玩家的并发读合并为一次仓储加载，每个调用方拿到独立副本
type PlayerManager struct {
	repo   repository.PlayerRepository
	logger logger.Logger
	group  singleflight.Group
}

// NewPlayerManager 创建玩家管理器
func NewPlayerManager(repo repository.PlayerRepository, l logger.Logger) *PlayerManager {
	return &PlayerManager{
		repo:   repo,
		logger: l.Named("manager.player"),
	}
}

// Load 加载玩家，返回值可以直接修改
func (m *PlayerManager) Load(ctx context.Context, playerID int64) (*model.PlayerState, error) {
	v, err, shared := m.group.Do(strconv.FormatInt(playerID, 10), func() (any, error) {
		return m.repo.Load(ctx, playerID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("player load shared", "player_id", playerID)
	}
	return v.(*model.PlayerState).Clone(), nil
}

// Create 新建玩家
func (m *PlayerManager) Create(ctx context.Context, s *model.PlayerState) error {
	if err := m.repo.Create(ctx, s); err != nil {
		return err
	}
	m.group.Forget(strconv.FormatInt(s.PlayerID, 10))
	return nil
}

// Save 保存并丢弃进行中的合并加载，后续读取拿到新版本
func (m *PlayerManager) Save(ctx context.Context, mu *repository.Mutation) error {
	if err := m.repo.Save(ctx, mu); err != nil {
		return err
	}
	m.group.Forget(strconv.FormatInt(mu.State.PlayerID, 10))
	return nil
}

// Repository 底层仓储，用于历史和统计查询
func (m *PlayerManager) Repository() repository.PlayerRepository {
	return m.repo
}
