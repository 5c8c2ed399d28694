package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// 每完成这么多次挑战发一把钥匙
const challengesPerKey = 5

// ChallengeDetails 挑战附加信息
type ChallengeDetails struct {
	ChallengeID    string
	Discipline     model.Discipline // 为空时只计入总经验
	PersonalRecord bool
	Note           string
}

// ChallengeResult 挑战结算
type ChallengeResult struct {
	ChallengeID         string          `json:"challenge_id,omitempty"`
	XPEarned            int64           `json:"xp_earned"`
	ChallengesCompleted int             `json:"challenges_completed"`
	KeysGranted         int             `json:"keys_granted"`
	DungeonKeys         int             `json:"dungeon_keys"`
	CurrentStreak       int             `json:"current_streak"`
	RankChanged         bool            `json:"rank_changed"`
	Snapshot            *model.Snapshot `json:"snapshot,omitempty"`
}

// CompleteChallenge 完成一次日常挑战
func (s *ProgressionService) CompleteChallenge(ctx context.Context, playerID int64, xpEarned int64, details ChallengeDetails) (*ChallengeResult, error) {
	res := &ChallengeResult{ChallengeID: details.ChallengeID, XPEarned: xpEarned}

	snap, err := s.mutate(ctx, "complete_challenge", playerID, func(st *model.PlayerState, ch *change) error {
		if xpEarned < 0 {
			return errors.Wrapf(engine.ErrInvalidState, "negative xp %d", xpEarned)
		}
		if details.Discipline != "" && !details.Discipline.Valid() {
			return errors.Wrapf(engine.ErrNotFound, "unknown discipline %q", details.Discipline)
		}

		c := st.Character
		c.ChallengesCompleted++
		if c.ChallengesCompleted%challengesPerKey == 0 {
			c.DungeonKeys++
			res.KeysGranted = 1
		}
		c.TotalXP += xpEarned
		if details.Discipline != "" {
			c.DisciplineXP[details.Discipline] += xpEarned
		}

		st.Statistics.TotalChallenges++
		st.Statistics.TotalXPEarned += xpEarned
		updateStreak(&st.Statistics, ch.now)

		if details.PersonalRecord {
			data := map[string]string{}
			if details.ChallengeID != "" {
				data["challenge_id"] = details.ChallengeID
			}
			if details.Discipline != "" {
				data["discipline"] = string(details.Discipline)
			}
			if details.Note != "" {
				data["note"] = details.Note
			}
			st.AddMilestone(model.MilestonePersonalRecord, ch.now, data)
		}

		res.RankChanged = s.derive(st)
		res.ChallengesCompleted = c.ChallengesCompleted
		res.DungeonKeys = c.DungeonKeys
		res.CurrentStreak = st.Statistics.CurrentStreak
		ch.emit(event.KindChallengeCompleted, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Snapshot = snap
	return res, nil
}

// updateStreak 按 UTC 自然日计算连续天数
func updateStreak(st *model.Statistics, now time.Time) {
	today := utcDay(now)
	switch {
	case st.LastActivityDate != nil && st.LastActivityDate.Equal(today):
		return
	case st.LastActivityDate != nil && st.LastActivityDate.AddDate(0, 0, 1).Equal(today):
		st.CurrentStreak++
	default:
		st.CurrentStreak = 1
	}
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	st.LastActivityDate = &today
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StageOutcome 关卡结算
type StageOutcome struct {
	engine.StageResult
	Level       int             `json:"level"`
	Rank        model.Rank      `json:"rank"`
	RankChanged bool            `json:"rank_changed"`
	Snapshot    *model.Snapshot `json:"snapshot,omitempty"`
}

// CompleteGauntletStage 完成关卡，经验以配置表为准，调用方上报的数值仅用于核对
func (s *ProgressionService) CompleteGauntletStage(
	ctx context.Context,
	playerID int64,
	discipline model.Discipline,
	stage int,
	xpEarned int64,
	isBoss bool,
	bossBonus int64,
) (*StageOutcome, error) {
	out := &StageOutcome{}

	snap, err := s.mutate(ctx, "complete_stage", playerID, func(st *model.PlayerState, ch *change) error {
		if !discipline.Valid() {
			return errors.Wrapf(engine.ErrNotFound, "unknown discipline %q", discipline)
		}

		res, err := s.rules.CompleteStage(st.Character, st.Gauntlet(discipline), stage, ch.now)
		if err != nil {
			return err
		}
		s.checkAdvisory(ctx, playerID, res, xpEarned, isBoss, bossBonus)

		st.Statistics.TotalXPEarned += res.XPGranted
		out.StageResult = res
		out.RankChanged = s.derive(st)
		out.Level = st.Character.Level
		out.Rank = st.Character.Rank
		ch.emit(event.KindStageCompleted, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

func (s *ProgressionService) checkAdvisory(ctx context.Context, playerID int64, res engine.StageResult, xpEarned int64, isBoss bool, bossBonus int64) {
	tableXP := res.XPGranted
	if xpEarned == tableXP && isBoss == engine.IsBossStage(res.Stage) && (!isBoss || bossBonus == res.BossBonus) {
		return
	}
	s.logger.WarnContext(ctx, "reported stage reward differs from table",
		"player_id", playerID,
		"discipline", res.Discipline,
		"stage", res.Stage,
		"reported_xp", xpEarned,
		"table_xp", tableXP,
		"reported_boss", isBoss,
		"reported_boss_bonus", bossBonus,
		"table_boss_bonus", res.BossBonus,
	)
}
