package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// DungeonAssignment 领取地下城的结果
type DungeonAssignment struct {
	Run           *model.DungeonRun `json:"run"`
	KeysRemaining int               `json:"keys_remaining"`
	Snapshot      *model.Snapshot   `json:"snapshot,omitempty"`
}

// DungeonOutcome 地下城结算
type DungeonOutcome struct {
	Run *model.DungeonRun `json:"run"`
	// Credited 是否已把掉落计入角色，失败时为 false
	Credited  bool                           `json:"credited"`
	Forgiven  int                            `json:"forgiven,omitempty"`
	Promoted  bool                           `json:"promoted,omitempty"`
	Fallen    bool                           `json:"fallen,omitempty"`
	Corrupted *model.ConstellationAssignment `json:"corrupted,omitempty"`
	Snapshot  *model.Snapshot                `json:"snapshot,omitempty"`
}

// DungeonHistory 分页历史
type DungeonHistory struct {
	Runs   []*model.DungeonRun `json:"runs"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// RequestDungeon 消耗一把钥匙生成地下城
func (s *ProgressionService) RequestDungeon(ctx context.Context, playerID int64) (*DungeonAssignment, error) {
	out := &DungeonAssignment{}

	snap, err := s.mutate(ctx, "request_dungeon", playerID, func(st *model.PlayerState, ch *change) error {
		if st.ActiveRun != nil {
			return errors.Wrapf(engine.ErrAlreadyExists, "dungeon %s in progress", st.ActiveRun.ID)
		}
		c := st.Character
		if c.DungeonKeys < 1 {
			return errors.Wrap(engine.ErrInsufficientResource, "no dungeon key")
		}

		c.DungeonKeys--
		run := s.rules.GenerateDungeon(c, st.Gauntlets, s.rng, ch.now)
		st.ActiveRun = run

		out.Run = run.Clone()
		out.KeysRemaining = c.DungeonKeys
		ch.emit(event.KindDungeonStarted, out.Run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// RequestPromotion 开始晋升考核，不消耗钥匙
func (s *ProgressionService) RequestPromotion(ctx context.Context, playerID int64) (*DungeonAssignment, error) {
	out := &DungeonAssignment{}

	snap, err := s.mutate(ctx, "request_promotion", playerID, func(st *model.PlayerState, ch *change) error {
		if st.ActiveRun != nil {
			return errors.Wrapf(engine.ErrAlreadyExists, "dungeon %s in progress", st.ActiveRun.ID)
		}
		if !st.Promotion.CanAttempt {
			return errors.Wrapf(engine.ErrNotEligible, "rank %s already certified", st.Character.Rank)
		}

		run := s.rules.GeneratePromotion(st.Character, st.Gauntlets, ch.now)
		st.ActiveRun = run

		out.Run = run.Clone()
		out.KeysRemaining = st.Character.DungeonKeys
		ch.emit(event.KindPromotionStarted, out.Run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// ResolveDungeon 提交挑战结果
func (s *ProgressionService) ResolveDungeon(ctx context.Context, playerID int64, runID string, result model.AttemptResult) (*DungeonOutcome, error) {
	out := &DungeonOutcome{}

	snap, err := s.mutate(ctx, "resolve_dungeon", playerID, func(st *model.PlayerState, ch *change) error {
		run, err := s.activeRun(ctx, st, runID)
		if err != nil {
			return err
		}

		if run.Archetype == model.ArchetypePromotion {
			out.Forgiven = engine.ConsumeForgiveness(st.Character, result.FormBreaks)
			if err := s.rules.ResolvePromotion(run, result, out.Forgiven, ch.now); err != nil {
				return err
			}
		} else if err := s.rules.ResolveDungeon(run, result, s.rng, ch.now); err != nil {
			return err
		}

		if err := s.settleRun(st, run, out, ch.now); err != nil {
			return err
		}
		s.derive(st)

		st.ActiveRun = nil
		ch.runs = append(ch.runs, run)
		out.Run = run.Clone()
		ch.emit(event.KindDungeonResolved, out.Run)
		ch.onCommit(func() { s.recordDungeon(run) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// AbandonDungeon 放弃进行中的地下城，钥匙不返还；放弃晋升考核按失败处理
func (s *ProgressionService) AbandonDungeon(ctx context.Context, playerID int64, runID string) (*DungeonOutcome, error) {
	out := &DungeonOutcome{}

	snap, err := s.mutate(ctx, "abandon_dungeon", playerID, func(st *model.PlayerState, ch *change) error {
		run, err := s.activeRun(ctx, st, runID)
		if err != nil {
			return err
		}
		if err := s.rules.AbandonDungeon(run, ch.now); err != nil {
			return err
		}

		st.Statistics.DungeonsAbandoned++
		if run.Archetype == model.ArchetypePromotion {
			if err := s.failPromotion(st, out, ch.now); err != nil {
				return err
			}
			refreshPromotion(st)
		}

		st.ActiveRun = nil
		ch.runs = append(ch.runs, run)
		out.Run = run.Clone()
		ch.emit(event.KindDungeonAbandoned, out.Run)
		ch.onCommit(func() { s.recordDungeon(run) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// GetDungeonHistory 按开始时间倒序分页
func (s *ProgressionService) GetDungeonHistory(ctx context.Context, playerID int64, limit, offset int) (*DungeonHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)
	offset = max(offset, 0)

	out := &DungeonHistory{Limit: limit, Offset: offset}
	err := s.read(ctx, "dungeon_history", playerID, func(st *model.PlayerState, _ time.Time) error {
		runs, total, err := s.players.Repository().ListRuns(ctx, playerID, limit, offset)
		if err != nil {
			return err
		}
		out.Runs, out.Total = runs, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetDungeonStatistics 按类型汇总已结束的地下城
func (s *ProgressionService) GetDungeonStatistics(ctx context.Context, playerID int64) (*model.DungeonStatistics, error) {
	var out *model.DungeonStatistics
	err := s.read(ctx, "dungeon_statistics", playerID, func(st *model.PlayerState, _ time.Time) error {
		stats, err := s.players.Repository().DungeonStatistics(ctx, playerID)
		if err != nil {
			return err
		}
		out = stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// activeRun 只有进行中的地下城可以操作，已结束的返回 InvalidState
func (s *ProgressionService) activeRun(ctx context.Context, st *model.PlayerState, runID string) (*model.DungeonRun, error) {
	if st.ActiveRun != nil && st.ActiveRun.ID == runID {
		return st.ActiveRun, nil
	}
	run, err := s.players.Repository().GetRun(ctx, st.PlayerID, runID)
	if err != nil {
		return nil, err
	}
	return nil, errors.Wrapf(engine.ErrInvalidState, "dungeon %s already %s", run.ID, run.Status)
}

// settleRun 把结算结果写入角色和统计，失败不发放掉落
func (s *ProgressionService) settleRun(st *model.PlayerState, run *model.DungeonRun, out *DungeonOutcome, now time.Time) error {
	if run.Status != model.RunCompleted {
		st.Statistics.DungeonsFailed++
		if run.Archetype == model.ArchetypePromotion {
			return s.failPromotion(st, out, now)
		}
		return nil
	}

	c := st.Character
	c.TotalXP += run.Loot.XP
	c.Credits += run.Loot.Credits
	c.StatPoints += run.Loot.StatPoints
	if c.Consumables == nil {
		c.Consumables = make(map[string]int)
	}
	for _, item := range run.Loot.Items {
		c.Consumables[item.ID]++
	}
	st.Statistics.DungeonsCompleted++
	st.Statistics.TotalXPEarned += run.Loot.XP
	st.Statistics.TotalCreditsEarned += run.Loot.Credits
	out.Credited = true

	if run.Archetype == model.ArchetypePromotion {
		p := &st.Promotion
		p.CertifiedRank = c.Rank
		p.CanAttempt = false
		p.NextRank = ""
		p.LastAttemptAt = &now
		engine.ResetPromotionPerks(c)
		st.AddMilestone(model.MilestonePromotion, now, map[string]string{"rank": string(c.Rank)})
		out.Promoted = true
	}
	return nil
}

// failPromotion 晋升失败：进入堕落并腐化当前赞助
func (s *ProgressionService) failPromotion(st *model.PlayerState, out *DungeonOutcome, now time.Time) error {
	c, p := st.Character, &st.Promotion
	p.FailedAttempts++
	p.LastAttemptAt = &now

	if !c.IsFallen {
		c.IsFallen = true
		c.FallenSince = &now
		c.PreFallRank = c.Rank
		st.AddMilestone(model.MilestoneFallen, now, map[string]string{"rank": string(c.Rank)})
	}
	out.Fallen = true

	corrupted, err := s.rules.CorruptActive(st, now)
	if err != nil {
		return err
	}
	out.Corrupted = corrupted
	return nil
}
