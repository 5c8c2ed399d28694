package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/shopspring/decimal"
)

const (
	defaultMaxTime       = 900
	abandonCooldown      = 300
	eliteTokenDropChance = 0.3

	promotionXP         = 1000
	promotionCredits    = 500
	promotionStatPoints = 5
	promotionXPPenalty  = 0.2
)

// EliteToken 高分掉落
var EliteToken = model.Item{ID: "elite_token", Name: "Elite Completion Token", Type: "consumable"}

type rewardMultiplier struct {
	xp, credits decimal.Decimal
}

var rewardMultipliers = map[model.Archetype]rewardMultiplier{
	model.ArchetypeTimeTrial: {decimal.RequireFromString("1.2"), decimal.RequireFromString("1.0")},
	model.ArchetypeGravity:   {decimal.RequireFromString("1.5"), decimal.RequireFromString("1.2")},
	model.ArchetypeCursed:    {decimal.RequireFromString("1.8"), decimal.RequireFromString("1.5")},
	model.ArchetypeHybrid:    {decimal.RequireFromString("2.0"), decimal.RequireFromString("2.0")},
}

// DifficultyFor 按等级划分难度
func DifficultyFor(level int) model.Difficulty {
	switch {
	case level < 10:
		return model.DifficultyEasy
	case level < 30:
		return model.DifficultyMedium
	case level < 60:
		return model.DifficultyHard
	default:
		return model.DifficultyExtreme
	}
}

// PickArchetype 最弱属性决定类型，并列时取靠后的属性
func PickArchetype(s model.Stats, rng Rand) model.Archetype {
	order := []model.Attribute{
		model.AttrStrength,
		model.AttrAgility,
		model.AttrVitality,
		model.AttrSensory,
		model.AttrIntelligence,
	}
	weakest := order[0]
	for _, a := range order[1:] {
		if s.Get(a) <= s.Get(weakest) {
			weakest = a
		}
	}

	switch weakest {
	case model.AttrStrength:
		return model.ArchetypeGravity
	case model.AttrAgility:
		return model.ArchetypeTimeTrial
	case model.AttrVitality:
		return model.ArchetypeCursed
	}
	pool := []model.Archetype{model.ArchetypeTimeTrial, model.ArchetypeGravity, model.ArchetypeCursed}
	return pool[rng.Intn(len(pool))]
}

// GenerateDungeon 为角色生成一次普通地下城
func (r *Rules) GenerateDungeon(c *model.Character, gauntlets map[model.Discipline]*model.GauntletProgress, rng Rand, now time.Time) *model.DungeonRun {
	return r.BuildRun(PickArchetype(c.Stats, rng), c, gauntlets, now)
}

// GeneratePromotion 晋升考核
func (r *Rules) GeneratePromotion(c *model.Character, gauntlets map[model.Discipline]*model.GauntletProgress, now time.Time) *model.DungeonRun {
	return r.BuildRun(model.ArchetypePromotion, c, gauntlets, now)
}

// BuildRun 按类型组装地下城
func (r *Rules) BuildRun(arch model.Archetype, c *model.Character, gauntlets map[model.Discipline]*model.GauntletProgress, now time.Time) *model.DungeonRun {
	run := &model.DungeonRun{
		ID:           r.newID(),
		PlayerID:     c.PlayerID,
		Archetype:    arch,
		Difficulty:   DifficultyFor(c.Level),
		Exercises:    buildExercises(arch, gauntlets),
		Requirements: buildRequirements(arch),
		Status:       model.RunInProgress,
		StartedAt:    now,
	}
	if arch == model.ArchetypePromotion {
		run.Difficulty = model.DifficultyExtreme
		run.Rewards = model.Rewards{
			XP:         promotionXP,
			Credits:    promotionCredits,
			StatPoints: promotionStatPoints,
			RankUp:     true,
		}
		run.Penalties = &model.Penalties{
			BecomeFallen:         true,
			XPPenalty:            promotionXPPenalty,
			ConstellationCorrupt: true,
		}
		return run
	}
	run.Rewards = baseRewards(arch, c.Level)
	return run
}

func baseRewards(arch model.Archetype, level int) model.Rewards {
	m, ok := rewardMultipliers[arch]
	if !ok {
		m = rewardMultipliers[model.ArchetypeTimeTrial]
	}
	xp := decimal.NewFromInt(int64(100 + 10*level)).Mul(m.xp).Floor()
	credits := decimal.NewFromInt(int64(50 + 5*level)).Mul(m.credits).Floor()
	return model.Rewards{XP: xp.IntPart(), Credits: credits.IntPart()}
}

func buildExercises(arch model.Archetype, gauntlets map[model.Discipline]*model.GauntletProgress) []model.Exercise {
	stage := func(d model.Discipline) int { return currentStage(gauntlets, d) }

	switch arch {
	case model.ArchetypeTimeTrial:
		out := make([]model.Exercise, 0, len(model.AllDisciplines))
		for _, d := range model.AllDisciplines {
			out = append(out, model.Exercise{Discipline: d, Stage: stage(d), Reps: 10, Rounds: 4, RestSeconds: 30})
		}
		return out
	case model.ArchetypeGravity:
		return []model.Exercise{
			{Discipline: model.DisciplinePush, Stage: stage(model.DisciplinePush), Reps: 8, Tempo: "4-0-4", Sets: 3},
			{Discipline: model.DisciplinePull, Stage: stage(model.DisciplinePull), Reps: 8, Tempo: "4-0-4", Sets: 3},
		}
	case model.ArchetypeCursed:
		return []model.Exercise{
			{Discipline: model.DisciplineCore, Stage: stage(model.DisciplineCore), Constraint: "no_sitting", TotalReps: 100, TimeLimit: 600},
		}
	case model.ArchetypeHybrid:
		out := make([]model.Exercise, 0, len(model.AllDisciplines))
		for _, d := range model.AllDisciplines {
			out = append(out, model.Exercise{Discipline: d, Stage: stage(d), Reps: 10, Tempo: "3-0-3", Sets: 2})
		}
		return out
	case model.ArchetypePromotion:
		return []model.Exercise{
			{Discipline: model.DisciplinePush, Stage: stage(model.DisciplinePush), Reps: 5, Sets: 3, PerfectForm: true},
			{Discipline: model.DisciplinePull, Stage: stage(model.DisciplinePull), Reps: 5, Sets: 3, PerfectForm: true},
			{Discipline: model.DisciplineLegs, Stage: stage(model.DisciplineLegs), Reps: 10, Sets: 3, PerfectForm: true},
			{Discipline: model.DisciplineCore, Stage: stage(model.DisciplineCore), HoldSeconds: 60, PerfectForm: true},
		}
	}
	return nil
}

func buildRequirements(arch model.Archetype) model.Requirements {
	switch arch {
	case model.ArchetypeGravity:
		return model.Requirements{
			MaxFormBreaks:        0,
			TempoTolerance:       0.5,
			CompletionConditions: []string{"perfect_tempo", "full_rom"},
		}
	case model.ArchetypeCursed:
		return model.Requirements{
			MaxFormBreaks:        3,
			MaxViolations:        0,
			CompletionConditions: []string{"meet_rep_target", "maintain_constraint"},
		}
	case model.ArchetypeHybrid:
		return model.Requirements{
			MaxFormBreaks:        1,
			MaxTimeSeconds:       1200,
			CompletionConditions: []string{"all_exercises_completed", "within_time_limit"},
		}
	case model.ArchetypePromotion:
		return model.Requirements{
			MaxFormBreaks:        0,
			NoConsumables:        true,
			NoRestPass:           true,
			CompletionConditions: []string{"all_exercises_perfect"},
		}
	default:
		return model.Requirements{
			MaxFormBreaks:        2,
			MaxTimeSeconds:       defaultMaxTime,
			CompletionConditions: []string{"all_exercises_completed", "within_time_limit"},
		}
	}
}

// RawScore 未截断的表现分
func RawScore(run *model.DungeonRun, res model.AttemptResult) int {
	score := 100 - 10*res.FormBreaks

	switch run.Archetype {
	case model.ArchetypeTimeTrial:
		if res.CompletionTime > 0 {
			maxTime := run.Requirements.MaxTimeSeconds
			if maxTime <= 0 {
				maxTime = defaultMaxTime
			}
			ratio := float64(res.CompletionTime) / float64(maxTime)
			if ratio < 0.5 {
				score += 20
			} else if ratio < 0.75 {
				score += 10
			}
		}
	case model.ArchetypeGravity:
		if res.FormBreaks == 0 {
			score += 30
		}
	case model.ArchetypeCursed:
		if res.ConstraintViolations == 0 {
			score += 25
		}
	}
	return score
}

// PerformanceScore 截断到 [0,100]
func PerformanceScore(run *model.DungeonRun, res model.AttemptResult) int {
	return min(max(RawScore(run, res), 0), 100)
}

// ComputeLoot 按分数折算奖励，掉落需要随机源
func ComputeLoot(rewards model.Rewards, score int, rng Rand) model.Loot {
	loot := model.Loot{
		XP:      rewards.XP * int64(score) / 100,
		Credits: rewards.Credits * int64(score) / 100,
	}
	switch {
	case score > 95:
		loot.StatPoints = 2
	case score > 80:
		loot.StatPoints = 1
	}
	if score > 90 && rng != nil && rng.Float64() < eliteTokenDropChance {
		loot.Items = append(loot.Items, EliteToken)
	}
	return loot
}

// ResolveDungeon 结算普通地下城，晋升考核走 ResolvePromotion
func (r *Rules) ResolveDungeon(run *model.DungeonRun, res model.AttemptResult, rng Rand, now time.Time) error {
	if run.Archetype == model.ArchetypePromotion {
		return r.ResolvePromotion(run, res, 0, now)
	}
	if err := checkResolvable(run, res); err != nil {
		return err
	}

	score := PerformanceScore(run, res)
	status := model.RunFailed
	if res.Success {
		status = model.RunCompleted
	}
	finish(run, status, res, score, now)
	run.Loot = ComputeLoot(run.Rewards, score, rng)
	return nil
}

// ResolvePromotion 晋升考核，forgiven 为被特性抵消的失误次数
func (r *Rules) ResolvePromotion(run *model.DungeonRun, res model.AttemptResult, forgiven int, now time.Time) error {
	if run.Archetype != model.ArchetypePromotion {
		return errors.AssertionFailedf("run %s is %s, not a promotion", run.ID, run.Archetype)
	}
	if err := checkResolvable(run, res); err != nil {
		return err
	}

	effective := res
	effective.FormBreaks = max(res.FormBreaks-forgiven, 0)
	score := PerformanceScore(run, effective)

	status := model.RunFailed
	if res.Success && effective.FormBreaks <= run.Requirements.MaxFormBreaks {
		status = model.RunCompleted
	}
	finish(run, status, res, score, now)
	if status == model.RunCompleted {
		run.Loot = model.Loot{
			XP:         run.Rewards.XP,
			Credits:    run.Rewards.Credits,
			StatPoints: run.Rewards.StatPoints,
		}
	} else {
		run.Loot = model.Loot{}
	}
	return nil
}

// AbandonDungeon 放弃进行中的地下城，钥匙不返还
func (r *Rules) AbandonDungeon(run *model.DungeonRun, now time.Time) error {
	if run.Status.Terminal() {
		return errors.Wrapf(ErrInvalidState, "dungeon %s already %s", run.ID, run.Status)
	}
	run.Status = model.RunAbandoned
	run.ResolvedAt = &now
	run.DurationSeconds = durationSeconds(run.StartedAt, now)
	run.Abandon = &model.AbandonPenalty{XPLoss: 0, CooldownSeconds: abandonCooldown}
	run.Loot = model.Loot{}
	return nil
}

func checkResolvable(run *model.DungeonRun, res model.AttemptResult) error {
	if run.Status.Terminal() {
		return errors.Wrapf(ErrInvalidState, "dungeon %s already %s", run.ID, run.Status)
	}
	if res.FormBreaks < 0 || res.CompletionTime < 0 || res.ConstraintViolations < 0 {
		return errors.AssertionFailedf("negative attempt counters for dungeon %s", run.ID)
	}
	return nil
}

func finish(run *model.DungeonRun, status model.RunStatus, res model.AttemptResult, score int, now time.Time) {
	run.Status = status
	run.Result = &res
	run.Score = &score
	run.ResolvedAt = &now
	run.DurationSeconds = durationSeconds(run.StartedAt, now)
}

func durationSeconds(start, end time.Time) int64 {
	d := int64(end.Sub(start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
