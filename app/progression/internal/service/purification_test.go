package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fallWithSponsor 升到 E 级、接受赞助后晋升失败
func (f *fixture) fallWithSponsor(t *testing.T) *DungeonOutcome {
	t.Helper()
	ctx := context.Background()

	f.clearStages(t, 10)
	f.challenges(t, 3, ChallengeDetails{PersonalRecord: true})
	_, err := f.svc.AcceptSponsor(ctx, testPlayer, model.TriggerPRStreak)
	require.NoError(t, err)

	assigned, err := f.svc.RequestPromotion(ctx, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, model.ArchetypePromotion, assigned.Run.Archetype)

	out, err := f.svc.ResolveDungeon(ctx, testPlayer, assigned.Run.ID, model.AttemptResult{Success: false, FormBreaks: 2})
	require.NoError(t, err)
	return out
}

func (f *fixture) advanceTrials(t *testing.T, through int) {
	t.Helper()
	for phase := 1; phase <= through; phase++ {
		_, err := f.svc.AdvancePurificationPhase(context.Background(), testPlayer, phase, model.PhaseData{
			TrialID: "trial-" + string(rune('0'+phase)),
		})
		require.NoError(t, err)
	}
}

func TestRequestPromotionNotEligible(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	_, err := f.svc.RequestPromotion(context.Background(), testPlayer)
	assert.True(t, errors.Is(err, engine.ErrNotEligible))
}

func TestPromotionFailureCorruptsSponsor(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	out := f.fallWithSponsor(t)
	assert.Equal(t, model.RunFailed, out.Run.Status)
	assert.True(t, out.Fallen)
	assert.False(t, out.Credited)
	require.NotNil(t, out.Corrupted)
	assert.True(t, out.Corrupted.Corrupted)
	assert.Equal(t, "corrupted_goku", out.Corrupted.Sponsor.ID)

	snap := out.Snapshot
	c := snap.Character
	assert.True(t, c.IsFallen)
	require.NotNil(t, c.FallenSince)
	assert.Equal(t, model.RankE, c.PreFallRank)
	assert.False(t, snap.Promotion.CanAttempt)
	assert.Equal(t, 1, snap.Promotion.FailedAttempts)

	require.NotNil(t, snap.Sponsor)
	assert.True(t, snap.Sponsor.Corrupted)
	require.NotEmpty(t, snap.Sponsor.Effects)
	assert.True(t, strings.HasPrefix(snap.Sponsor.Effects[0].Value, "-"), snap.Sponsor.Effects[0].Value)

	// 腐化的赞助可以被新赞助替换
	offers, err := f.svc.DetectAvailableSponsors(context.Background(), testPlayer)
	require.NoError(t, err)
	assert.True(t, offers.CanAccept)
}

func TestAbandonPromotionCountsAsFailure(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()
	f.clearStages(t, 10)

	assigned, err := f.svc.RequestPromotion(ctx, testPlayer)
	require.NoError(t, err)

	out, err := f.svc.AbandonDungeon(ctx, testPlayer, assigned.Run.ID)
	require.NoError(t, err)
	assert.True(t, out.Fallen)
	assert.Nil(t, out.Corrupted)
	assert.True(t, out.Snapshot.Character.IsFallen)
	assert.Equal(t, 1, out.Snapshot.Statistics.DungeonsAbandoned)
	assert.Equal(t, 0, out.Snapshot.Statistics.DungeonsFailed)
}

func TestStartPurification(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	_, err := f.svc.StartPurification(ctx, testPlayer)
	assert.True(t, errors.Is(err, engine.ErrNotEligible))

	f.fallWithSponsor(t)

	f.clock.Advance(29 * 24 * time.Hour)
	_, err = f.svc.StartPurification(ctx, testPlayer)
	assert.True(t, errors.Is(err, engine.ErrNotEligible))

	f.clock.Advance(24 * time.Hour)
	out, err := f.svc.StartPurification(ctx, testPlayer)
	require.NoError(t, err)
	assert.True(t, out.SponsorReset)
	assert.Equal(t, 1, out.Progress.Phase)
	assert.Equal(t, 1, out.Snapshot.Sponsor.Level)

	_, err = f.svc.StartPurification(ctx, testPlayer)
	assert.True(t, errors.Is(err, engine.ErrAlreadyExists))
}

func TestAdvancePurificationSequence(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	_, err := f.svc.AdvancePurificationPhase(ctx, testPlayer, 1, model.PhaseData{TrialID: "trial-1"})
	assert.True(t, errors.Is(err, engine.ErrNotActive))

	f.fallWithSponsor(t)
	f.clock.Advance(engine.MinFallenDuration)
	_, err = f.svc.StartPurification(ctx, testPlayer)
	require.NoError(t, err)

	res, err := f.svc.AdvancePurificationPhase(ctx, testPlayer, 1, model.PhaseData{TrialID: "trial-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NextPhase)

	_, err = f.svc.AdvancePurificationPhase(ctx, testPlayer, 2, model.PhaseData{TrialID: "trial-1"})
	assert.True(t, errors.Is(err, engine.ErrAlreadyExists))

	_, err = f.svc.AdvancePurificationPhase(ctx, testPlayer, 3, model.PhaseData{TrialID: "trial-3"})
	assert.True(t, errors.Is(err, engine.ErrOutOfSequence))

	absorb := model.OptionAbsorb
	_, err = f.svc.AdvancePurificationPhase(ctx, testPlayer, 2, model.PhaseData{TrialID: "trial-2", Option: &absorb})
	assert.True(t, errors.Is(err, engine.ErrOutOfSequence))

	snap := f.snapshot(t)
	require.NotNil(t, snap.Purification)
	assert.Equal(t, 2, snap.Purification.Phase)
	assert.Equal(t, []string{"trial-1"}, snap.Purification.CompletedTrials)
}

func TestPurificationAbsorbForgivesPromotion(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	f.fallWithSponsor(t)
	f.clock.Advance(engine.MinFallenDuration)
	_, err := f.svc.StartPurification(ctx, testPlayer)
	require.NoError(t, err)
	f.advanceTrials(t, 3)

	// 第四阶段未选择时停留在原阶段
	res, err := f.svc.AdvancePurificationPhase(ctx, testPlayer, 4, model.PhaseData{TrialID: "trial-4", MirrorDefeated: true})
	require.NoError(t, err)
	assert.False(t, res.Finalized)
	assert.Equal(t, 4, res.NextPhase)

	absorb := model.OptionAbsorb
	res, err = f.svc.AdvancePurificationPhase(ctx, testPlayer, 4, model.PhaseData{TrialID: "trial-5", Option: &absorb})
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	require.NotNil(t, res.Perk)
	assert.Equal(t, engine.PerkUnbreakableWill, res.Perk.ID)
	assert.Equal(t, 1, res.Perk.UsesRemaining)

	snap := res.Snapshot
	assert.False(t, snap.Character.IsFallen)
	assert.Nil(t, snap.Purification)
	assert.True(t, snap.Promotion.CanAttempt)
	assert.True(t, snap.Character.HasAchievement(engine.AchievementRedeemed))

	assigned, err := f.svc.RequestPromotion(ctx, testPlayer)
	require.NoError(t, err)
	out, err := f.svc.ResolveDungeon(ctx, testPlayer, assigned.Run.ID, model.AttemptResult{Success: true, FormBreaks: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Forgiven)
	assert.True(t, out.Promoted)
	assert.Equal(t, model.RunCompleted, out.Run.Status)

	c := out.Snapshot.Character
	assert.Equal(t, model.RankE, out.Snapshot.Promotion.CertifiedRank)
	assert.False(t, out.Snapshot.Promotion.CanAttempt)
	// 晋升后特性次数刷新
	require.NotNil(t, c.Perk(engine.PerkUnbreakableWill))
	assert.Equal(t, 1, c.Perk(engine.PerkUnbreakableWill).UsesRemaining)
}

func TestPurificationPurgeRestoresRank(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	f.fallWithSponsor(t)
	f.clock.Advance(engine.MinFallenDuration)
	_, err := f.svc.StartPurification(ctx, testPlayer)
	require.NoError(t, err)
	f.advanceTrials(t, 3)

	purge := model.OptionPurge
	res, err := f.svc.AdvancePurificationPhase(ctx, testPlayer, 4, model.PhaseData{TrialID: "trial-4", Option: &purge})
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Nil(t, res.Perk)
	assert.Equal(t, model.RankE, res.Rank)

	c := res.Snapshot.Character
	assert.False(t, c.IsFallen)
	assert.Nil(t, c.FallenSince)
	assert.Empty(t, c.PreFallRank)
	assert.Empty(t, c.Perks)
	assert.True(t, res.Snapshot.Promotion.CanAttempt)
}
