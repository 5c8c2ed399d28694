package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// StageResult 关卡结算
type StageResult struct {
	Discipline         model.Discipline `json:"discipline"`
	Stage              int              `json:"stage"`
	XPGranted          int64            `json:"xp_granted"`
	BossBonus          int64            `json:"boss_bonus"`
	NewStage           int              `json:"new_stage"`
	IntelligenceGained int              `json:"intelligence_gained"`
}

// IsBossStage 每 10 关一个 Boss
func IsBossStage(stage int) bool {
	return stage > 0 && stage%10 == 0
}

// ExpectedStageReward 查表得到关卡经验和 Boss 奖励
func (r *Rules) ExpectedStageReward(stage int) (xp, bossBonus int64) {
	band := r.tables.BandFor(stage)
	if IsBossStage(stage) {
		return band.XPPerStage, band.BossBonus
	}
	return band.XPPerStage, 0
}

// CompleteStage 推进关卡，只接受当前关
func (r *Rules) CompleteStage(c *model.Character, g *model.GauntletProgress, stage int, now time.Time) (StageResult, error) {
	if g.CurrentStage < 1 {
		return StageResult{}, errors.AssertionFailedf("gauntlet %s has invalid current stage %d", g.Discipline, g.CurrentStage)
	}
	if stage != g.CurrentStage {
		return StageResult{}, errors.Wrapf(ErrOutOfSequence,
			"stage %d submitted for %s, current stage is %d", stage, g.Discipline, g.CurrentStage)
	}

	xp, bonus := r.ExpectedStageReward(stage)
	res := StageResult{
		Discipline: g.Discipline,
		Stage:      stage,
		XPGranted:  xp,
		BossBonus:  bonus,
		NewStage:   stage + 1,
	}

	// Boss 奖励只记录，不计入经验
	if IsBossStage(stage) {
		g.BossBonuses = append(g.BossBonuses, model.BossBonus{Stage: stage, Bonus: bonus, At: now})
		c.Stats.Intelligence++
		res.IntelligenceGained = 1
	}

	g.MarkCompleted(stage)
	g.CurrentStage = stage + 1
	g.TotalXP += res.XPGranted

	if c.DisciplineXP == nil {
		c.DisciplineXP = make(map[model.Discipline]int64)
	}
	c.DisciplineXP[g.Discipline] += res.XPGranted
	c.TotalXP += res.XPGranted
	c.UpdatedAt = now
	return res, nil
}
