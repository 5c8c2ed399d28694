package service

import (
	"context"
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// CreatePlayer 新建玩家，四个项目都在第 1 关
func (s *ProgressionService) CreatePlayer(ctx context.Context, playerID int64) (snap *model.Snapshot, err error) {
	start := time.Now()
	defer func() { s.recordOperation("create_player", start, err) }()

	err = s.locks.WithPlayerLock(ctx, playerID, func() error {
		now := s.clock.Now()
		st := model.NewPlayerState(playerID, now)
		s.rules.ApplyDerivation(st.Character, st.Gauntlets)
		refreshPromotion(st)

		if err := s.players.Create(ctx, st); err != nil {
			return err
		}
		snap = model.NewSnapshot(st, now)
		s.publisher.Publish(ctx, &event.ProgressionEvent{
			Kind:      event.KindPlayerCreated,
			PlayerID:  playerID,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "create_player", playerID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "player created", "player_id", playerID)
	return snap, nil
}

// GetSnapshot 当前快照
func (s *ProgressionService) GetSnapshot(ctx context.Context, playerID int64) (*model.Snapshot, error) {
	var snap *model.Snapshot
	err := s.read(ctx, "get_snapshot", playerID, func(st *model.PlayerState, now time.Time) error {
		snap = model.NewSnapshot(st, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
