package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerStateCloneIsDeep(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewPlayerState(7, now)
	s.Character.DisciplineXP[DisciplinePush] = 40
	s.Character.Consumables["elite_token"] = 1
	s.Gauntlet(DisciplinePush).MarkCompleted(1)
	s.AddMilestone(MilestonePersonalRecord, now, map[string]string{"k": "v"})
	s.Assignments = append(s.Assignments, &ConstellationAssignment{
		ID:      "a1",
		Status:  AssignmentActive,
		Level:   1,
		Effects: []Effect{{Kind: EffectXPMultiplier, Base: decimal.NewFromFloat(0.1)}},
	})
	s.Purification = &PurificationProgress{Phase: 2, CompletedTrials: []string{"t1"}}

	c := s.Clone()
	require.Equal(t, s, c)

	c.Character.DisciplineXP[DisciplinePush] = 99
	c.Character.Consumables["elite_token"] = 5
	c.Gauntlet(DisciplinePush).MarkCompleted(2)
	c.Milestones[0].Data["k"] = "changed"
	c.Assignments[0].Level = 3
	c.Purification.CompletedTrials[0] = "x"

	assert.Equal(t, int64(40), s.Character.DisciplineXP[DisciplinePush])
	assert.Equal(t, 1, s.Character.Consumables["elite_token"])
	assert.Equal(t, []int{1}, s.Gauntlets[DisciplinePush].StagesCompleted)
	assert.Equal(t, "v", s.Milestones[0].Data["k"])
	assert.Equal(t, 1, s.Assignments[0].Level)
	assert.Equal(t, "t1", s.Purification.CompletedTrials[0])
}

func TestMarkCompletedKeepsSortedSet(t *testing.T) {
	g := NewGauntletProgress(1, DisciplineCore)
	for _, s := range []int{3, 1, 2, 3, 1} {
		g.MarkCompleted(s)
	}
	assert.Equal(t, []int{1, 2, 3}, g.StagesCompleted)
	assert.True(t, g.IsCompleted(2))
	assert.False(t, g.IsCompleted(4))
}

func TestRankIndex(t *testing.T) {
	assert.Equal(t, 0, RankF.Index())
	assert.Equal(t, 8, RankSSS.Index())
	assert.Equal(t, -1, Rank("Z").Index())
	assert.Less(t, RankB.Index(), RankA.Index())
}

func TestEffectValueAt(t *testing.T) {
	e := Effect{Kind: EffectStatBoost, Attribute: AttrStrength, Base: decimal.NewFromFloat(0.5), Scaling: decimal.NewFromFloat(0.5)}
	assert.True(t, e.ValueAt(1).Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, e.ValueAt(4).Equal(decimal.NewFromInt(2)))
}

func TestNewSnapshotIncludesSponsorEffects(t *testing.T) {
	now := time.Now()
	s := NewPlayerState(1, now)
	s.Assignments = []*ConstellationAssignment{
		{ID: "old", Status: AssignmentSuperseded, Level: 1},
		{
			ID:      "cur",
			Status:  AssignmentActive,
			Level:   3,
			Sponsor: Sponsor{ID: "goku", Name: "Son Goku"},
			Effects: []Effect{{Kind: EffectStatBoost, Attribute: AttrStrength, Base: decimal.NewFromFloat(0.5), Scaling: decimal.NewFromFloat(0.5)}},
		},
	}
	snap := NewSnapshot(s, now)
	require.NotNil(t, snap.Sponsor)
	assert.Equal(t, "cur", snap.Sponsor.ID)
	require.Len(t, snap.Sponsor.Effects, 1)
	assert.Equal(t, "1.5", snap.Sponsor.Effects[0].Value)

	snap.Character.Level = 50
	assert.Equal(t, 0, s.Character.Level)
}
