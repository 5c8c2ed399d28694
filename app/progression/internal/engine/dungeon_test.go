package engine

import (
	"testing"
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickArchetype(t *testing.T) {
	cases := []struct {
		name  string
		stats model.Stats
		rng   stubRand
		want  model.Archetype
	}{
		{"weak strength", model.Stats{Strength: 1, Agility: 3, Vitality: 3, Sensory: 3, Intelligence: 3}, stubRand{}, model.ArchetypeGravity},
		{"weak agility", model.Stats{Strength: 4, Agility: 2, Vitality: 3, Sensory: 3, Intelligence: 3}, stubRand{}, model.ArchetypeTimeTrial},
		{"weak vitality", model.Stats{Strength: 4, Agility: 4, Vitality: 2, Sensory: 3, Intelligence: 3}, stubRand{}, model.ArchetypeCursed},
		{"tie goes to later stat", model.Stats{Strength: 2, Agility: 2, Vitality: 5, Sensory: 5, Intelligence: 5}, stubRand{}, model.ArchetypeTimeTrial},
		{"all equal picks random", model.Stats{Strength: 1, Agility: 1, Vitality: 1, Sensory: 1, Intelligence: 1}, stubRand{n: 2}, model.ArchetypeCursed},
		{"weak sensory picks random", model.Stats{Strength: 5, Agility: 5, Vitality: 5, Sensory: 1, Intelligence: 5}, stubRand{n: 1}, model.ArchetypeGravity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, PickArchetype(c.stats, c.rng))
		})
	}
}

func TestDifficultyFor(t *testing.T) {
	assert.Equal(t, model.DifficultyEasy, DifficultyFor(9))
	assert.Equal(t, model.DifficultyMedium, DifficultyFor(10))
	assert.Equal(t, model.DifficultyHard, DifficultyFor(59))
	assert.Equal(t, model.DifficultyExtreme, DifficultyFor(60))
}

func TestBuildRunRewardsAndExercises(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	s.Character.Level = 5
	s.Gauntlets[model.DisciplinePush].CurrentStage = 7

	cases := []struct {
		arch      model.Archetype
		xp        int64
		credits   int64
		exercises int
	}{
		{model.ArchetypeTimeTrial, 180, 75, 4},
		{model.ArchetypeGravity, 225, 90, 2},
		{model.ArchetypeCursed, 270, 112, 1},
		{model.ArchetypeHybrid, 300, 150, 4},
	}
	for _, c := range cases {
		t.Run(string(c.arch), func(t *testing.T) {
			run := r.BuildRun(c.arch, s.Character, s.Gauntlets, testNow)
			assert.Equal(t, c.xp, run.Rewards.XP)
			assert.Equal(t, c.credits, run.Rewards.Credits)
			assert.Len(t, run.Exercises, c.exercises)
			assert.Equal(t, model.RunInProgress, run.Status)
			assert.Equal(t, model.DifficultyEasy, run.Difficulty)
			assert.Nil(t, run.Penalties)
		})
	}

	gravity := r.BuildRun(model.ArchetypeGravity, s.Character, s.Gauntlets, testNow)
	assert.Equal(t, 7, gravity.Exercises[0].Stage)
	assert.Equal(t, "4-0-4", gravity.Exercises[0].Tempo)
	assert.Equal(t, 0.5, gravity.Requirements.TempoTolerance)

	cursed := r.BuildRun(model.ArchetypeCursed, s.Character, s.Gauntlets, testNow)
	assert.Equal(t, "no_sitting", cursed.Exercises[0].Constraint)
	assert.Equal(t, 600, cursed.Exercises[0].TimeLimit)
	assert.Equal(t, 3, cursed.Requirements.MaxFormBreaks)
}

func TestGeneratePromotionIsFixed(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	s.Character.Level = 40

	run := r.GeneratePromotion(s.Character, s.Gauntlets, testNow)
	assert.Equal(t, model.ArchetypePromotion, run.Archetype)
	assert.Equal(t, model.DifficultyExtreme, run.Difficulty)
	assert.Equal(t, model.Rewards{XP: 1000, Credits: 500, StatPoints: 5, RankUp: true}, run.Rewards)
	require.NotNil(t, run.Penalties)
	assert.True(t, run.Penalties.BecomeFallen)
	assert.True(t, run.Penalties.ConstellationCorrupt)
	assert.Equal(t, 0.2, run.Penalties.XPPenalty)
	assert.True(t, run.Requirements.NoConsumables)
	require.Len(t, run.Exercises, 4)
	for _, e := range run.Exercises {
		assert.True(t, e.PerfectForm)
	}
	assert.Equal(t, 60, run.Exercises[3].HoldSeconds)
}

func TestGravityPerfectFormScoresExactly100(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	run := r.BuildRun(model.ArchetypeGravity, s.Character, s.Gauntlets, testNow)

	res := model.AttemptResult{Success: true, FormBreaks: 0}
	assert.GreaterOrEqual(t, RawScore(run, res), 100)
	assert.Equal(t, 130, RawScore(run, res))

	require.NoError(t, r.ResolveDungeon(run, res, stubRand{f: 0.99}, testNow.Add(90*time.Second)))
	require.NotNil(t, run.Score)
	assert.Equal(t, 100, *run.Score)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, int64(90), run.DurationSeconds)
	assert.Equal(t, run.Rewards.XP, run.Loot.XP)
	assert.Equal(t, 2, run.Loot.StatPoints)
	assert.Empty(t, run.Loot.Items)
}

func TestTimeTrialSpeedBonus(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	run := r.BuildRun(model.ArchetypeTimeTrial, s.Character, s.Gauntlets, testNow)

	assert.Equal(t, 100, RawScore(run, model.AttemptResult{FormBreaks: 2, CompletionTime: 400}))
	assert.Equal(t, 90, RawScore(run, model.AttemptResult{FormBreaks: 2, CompletionTime: 600}))
	assert.Equal(t, 80, RawScore(run, model.AttemptResult{FormBreaks: 2, CompletionTime: 700}))
	assert.Equal(t, 80, RawScore(run, model.AttemptResult{FormBreaks: 2}))
}

func TestCursedViolationBonusAndClamp(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	run := r.BuildRun(model.ArchetypeCursed, s.Character, s.Gauntlets, testNow)

	assert.Equal(t, 115, RawScore(run, model.AttemptResult{FormBreaks: 1}))
	assert.Equal(t, 90, RawScore(run, model.AttemptResult{FormBreaks: 1, ConstraintViolations: 2}))
	assert.Equal(t, 0, PerformanceScore(run, model.AttemptResult{FormBreaks: 15, ConstraintViolations: 1}))
}

func TestComputeLoot(t *testing.T) {
	rw := model.Rewards{XP: 225, Credits: 90}

	loot := ComputeLoot(rw, 85, stubRand{f: 0})
	assert.Equal(t, int64(191), loot.XP)
	assert.Equal(t, int64(76), loot.Credits)
	assert.Equal(t, 1, loot.StatPoints)
	assert.Empty(t, loot.Items)

	loot = ComputeLoot(rw, 91, stubRand{f: 0.1})
	assert.Equal(t, 1, loot.StatPoints)
	require.Len(t, loot.Items, 1)
	assert.Equal(t, EliteToken, loot.Items[0])

	loot = ComputeLoot(rw, 100, stubRand{f: 0.5})
	assert.Equal(t, 2, loot.StatPoints)
	assert.Empty(t, loot.Items)

	loot = ComputeLoot(rw, 80, stubRand{f: 0})
	assert.Zero(t, loot.StatPoints)
}

func TestFailedRunLootNeverExceedsPerfectLoot(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	s.Character.Level = 17

	for _, arch := range []model.Archetype{model.ArchetypeTimeTrial, model.ArchetypeGravity, model.ArchetypeCursed, model.ArchetypeHybrid} {
		for breaks := 0; breaks <= 12; breaks++ {
			run := r.BuildRun(arch, s.Character, s.Gauntlets, testNow)
			perfect := ComputeLoot(run.Rewards, 100, stubRand{f: 0})

			res := model.AttemptResult{Success: false, FormBreaks: breaks, CompletionTime: 300, ConstraintViolations: breaks % 2}
			require.NoError(t, r.ResolveDungeon(run, res, stubRand{f: 0}, testNow))
			assert.Equal(t, model.RunFailed, run.Status)
			assert.LessOrEqual(t, run.Loot.XP, perfect.XP)
			assert.LessOrEqual(t, run.Loot.Credits, perfect.Credits)
			assert.LessOrEqual(t, run.Loot.StatPoints, perfect.StatPoints)
			assert.LessOrEqual(t, len(run.Loot.Items), len(perfect.Items))
		}
	}
}

func TestResolveTwiceFails(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	run := r.BuildRun(model.ArchetypeHybrid, s.Character, s.Gauntlets, testNow)

	require.NoError(t, r.ResolveDungeon(run, model.AttemptResult{Success: true}, stubRand{}, testNow))
	err := r.ResolveDungeon(run, model.AttemptResult{Success: true}, stubRand{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, r.AbandonDungeon(run, testNow), ErrInvalidState)
}

func TestResolvePromotion(t *testing.T) {
	r := newTestRules()
	s := newTestState()

	run := r.GeneratePromotion(s.Character, s.Gauntlets, testNow)
	require.NoError(t, r.ResolveDungeon(run, model.AttemptResult{Success: true}, stubRand{}, testNow))
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, model.Loot{XP: 1000, Credits: 500, StatPoints: 5}, run.Loot)

	run = r.GeneratePromotion(s.Character, s.Gauntlets, testNow)
	require.NoError(t, r.ResolvePromotion(run, model.AttemptResult{Success: true, FormBreaks: 1}, 0, testNow))
	assert.Equal(t, model.RunFailed, run.Status)
	assert.Equal(t, model.Loot{}, run.Loot)

	run = r.GeneratePromotion(s.Character, s.Gauntlets, testNow)
	require.NoError(t, r.ResolvePromotion(run, model.AttemptResult{Success: true, FormBreaks: 1}, 1, testNow))
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 1, run.Result.FormBreaks)

	run = r.GeneratePromotion(s.Character, s.Gauntlets, testNow)
	require.NoError(t, r.ResolvePromotion(run, model.AttemptResult{Success: false}, 0, testNow))
	assert.Equal(t, model.RunFailed, run.Status)
}

func TestAbandonDungeon(t *testing.T) {
	r := newTestRules()
	s := newTestState()
	run := r.BuildRun(model.ArchetypeCursed, s.Character, s.Gauntlets, testNow)

	require.NoError(t, r.AbandonDungeon(run, testNow.Add(time.Minute)))
	assert.Equal(t, model.RunAbandoned, run.Status)
	require.NotNil(t, run.Abandon)
	assert.Equal(t, 300, run.Abandon.CooldownSeconds)
	assert.Zero(t, run.Abandon.XPLoss)
	assert.Equal(t, int64(60), run.DurationSeconds)

	err := r.ResolveDungeon(run, model.AttemptResult{Success: true}, stubRand{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}
