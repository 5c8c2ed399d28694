package service

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAvailableSponsors(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	offers, err := f.svc.DetectAvailableSponsors(ctx, testPlayer)
	require.NoError(t, err)
	assert.Empty(t, offers.Triggers)
	assert.NotNil(t, offers.Sponsors)
	assert.True(t, offers.CanAccept)

	f.challenges(t, 3, ChallengeDetails{PersonalRecord: true, Discipline: model.DisciplinePush})
	version := f.snapshot(t).Version

	offers, err = f.svc.DetectAvailableSponsors(ctx, testPlayer)
	require.NoError(t, err)
	assert.Equal(t, []model.Trigger{model.TriggerPRStreak}, offers.Triggers)
	require.Len(t, offers.Sponsors, 1)
	assert.Equal(t, "goku", offers.Sponsors[0].ID)
	assert.Equal(t, version, f.snapshot(t).Version)
}

func TestAcceptSponsor(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	_, err := f.svc.AcceptSponsor(ctx, testPlayer, model.TriggerPRStreak)
	assert.True(t, errors.Is(err, engine.ErrNotEligible))

	_, err = f.svc.AcceptSponsor(ctx, testPlayer, model.Trigger("moonlight"))
	assert.True(t, errors.Is(err, engine.ErrNotFound))

	f.challenges(t, 3, ChallengeDetails{PersonalRecord: true})
	out, err := f.svc.AcceptSponsor(ctx, testPlayer, model.TriggerPRStreak)
	require.NoError(t, err)
	assert.Equal(t, "goku", out.Assignment.Sponsor.ID)
	assert.Equal(t, 1, out.Assignment.Level)
	assert.Equal(t, model.AssignmentActive, out.Assignment.Status)
	require.NotNil(t, out.Snapshot.Sponsor)
	assert.Equal(t, out.Assignment.ID, out.Snapshot.Sponsor.ID)
	assert.Equal(t, out.Assignment.ID, out.Snapshot.Character.ActiveSponsorID)

	_, err = f.svc.AcceptSponsor(ctx, testPlayer, model.TriggerPRStreak)
	assert.True(t, errors.Is(err, engine.ErrAlreadyExists))

	offers, err := f.svc.DetectAvailableSponsors(ctx, testPlayer)
	require.NoError(t, err)
	assert.False(t, offers.CanAccept)
	assert.Contains(t, f.events.kinds(), event.KindSponsorAccepted)
}

func TestCompleteSponsorTask(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	ctx := context.Background()

	_, err := f.svc.CompleteSponsorTask(ctx, testPlayer, "task-1", 1000)
	assert.True(t, errors.Is(err, engine.ErrNotActive))

	f.challenges(t, 3, ChallengeDetails{PersonalRecord: true})
	_, err = f.svc.AcceptSponsor(ctx, testPlayer, model.TriggerPRStreak)
	require.NoError(t, err)
	credits := f.snapshot(t).Character.Credits

	_, err = f.svc.CompleteSponsorTask(ctx, testPlayer, "task-0", -1)
	assert.True(t, errors.Is(err, engine.ErrInvalidState))

	out, err := f.svc.CompleteSponsorTask(ctx, testPlayer, "task-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), out.XP)
	assert.Equal(t, 1, out.LevelsGained)
	assert.Equal(t, 2, out.SponsorLevel)
	assert.Equal(t, credits+1000, out.Snapshot.Character.Credits)
	assert.Equal(t, int64(1000), out.Snapshot.Statistics.TotalCreditsEarned)
	assert.Equal(t, 2, out.Snapshot.Sponsor.Level)
	assert.Equal(t, int64(0), out.Snapshot.Sponsor.Experience)

	_, err = f.svc.CompleteSponsorTask(ctx, testPlayer, "task-1", 1000)
	assert.True(t, errors.Is(err, engine.ErrAlreadyExists))
	assert.Equal(t, 2, f.snapshot(t).Sponsor.Level)
}
