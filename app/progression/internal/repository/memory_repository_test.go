package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func newRun(id string, arch model.Archetype, status model.RunStatus, score *int, startedAt time.Time) *model.DungeonRun {
	return &model.DungeonRun{
		ID:        id,
		PlayerID:  1,
		Archetype: arch,
		Status:    status,
		Score:     score,
		StartedAt: startedAt,
	}
}

func TestMemoryCreateAndLoad(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Load(ctx, 1)
	assert.True(t, errors.Is(err, engine.ErrNotFound))

	s := model.NewPlayerState(1, testNow)
	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, int64(1), s.Version)

	err = repo.Create(ctx, model.NewPlayerState(1, testNow))
	assert.True(t, errors.Is(err, engine.ErrAlreadyExists))

	loaded, err := repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)

	// 返回副本
	loaded.Character.Credits = 999
	again, err := repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.Character.Credits)
}

func TestMemorySaveVersionCheck(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewPlayerState(1, testNow)))

	a, err := repo.Load(ctx, 1)
	require.NoError(t, err)
	b, err := repo.Load(ctx, 1)
	require.NoError(t, err)

	a.Character.Credits = 10
	require.NoError(t, repo.Save(ctx, &Mutation{State: a}))
	assert.Equal(t, int64(2), a.Version)

	b.Character.Credits = 20
	err = repo.Save(ctx, &Mutation{State: b})
	assert.True(t, errors.Is(err, ErrConcurrentUpdate))
	assert.Equal(t, int64(1), b.Version)

	stored, err := repo.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Character.Credits)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryRunsAndStatistics(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, model.NewPlayerState(1, testNow)))

	s, err := repo.Load(ctx, 1)
	require.NoError(t, err)

	runs := []*model.DungeonRun{
		newRun("r1", model.ArchetypeGravity, model.RunCompleted, intPtr(80), testNow),
		newRun("r2", model.ArchetypeGravity, model.RunFailed, intPtr(40), testNow.Add(time.Minute)),
		newRun("r3", model.ArchetypeCursed, model.RunAbandoned, nil, testNow.Add(2*time.Minute)),
	}
	s.ActiveRun = newRun("r4", model.ArchetypeTimeTrial, model.RunInProgress, nil, testNow.Add(3*time.Minute))
	require.NoError(t, repo.Save(ctx, &Mutation{State: s, Runs: runs}))

	page, total, err := repo.ListRuns(ctx, 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, page, 2)
	assert.Equal(t, "r4", page[0].ID)
	assert.Equal(t, "r3", page[1].ID)

	page, _, err = repo.ListRuns(ctx, 1, 10, 3)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r1", page[0].ID)

	page, _, err = repo.ListRuns(ctx, 1, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	run, err := repo.GetRun(ctx, 1, "r2")
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, run.Status)

	_, err = repo.GetRun(ctx, 1, "missing")
	assert.True(t, errors.Is(err, engine.ErrNotFound))

	stats, err := repo.DungeonStatistics(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Abandoned)
	assert.InDelta(t, 60.0, stats.AverageScore, 0.001)
	assert.Equal(t, model.ArchetypeStat{Total: 2, Completed: 1, BestScore: 80}, stats.ByArchetype[model.ArchetypeGravity])
	assert.Equal(t, model.ArchetypeStat{Total: 1}, stats.ByArchetype[model.ArchetypeCursed])
	_, ok := stats.ByArchetype[model.ArchetypeTimeTrial]
	assert.False(t, ok)
}

func TestBuildStatisticsEmpty(t *testing.T) {
	stats := buildStatistics(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.AverageScore)
	assert.NotNil(t, stats.ByArchetype)
}

func TestMemoryConcurrentPlayers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	done := make(chan error, 8)
	for i := int64(1); i <= 8; i++ {
		go func(id int64) {
			if err := repo.Create(ctx, model.NewPlayerState(id, testNow)); err != nil {
				done <- err
				return
			}
			s, err := repo.Load(ctx, id)
			if err != nil {
				done <- err
				return
			}
			s.Character.Credits = id
			done <- repo.Save(ctx, &Mutation{State: s})
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
	for i := int64(1); i <= 8; i++ {
		s, err := repo.Load(ctx, i)
		require.NoError(t, err, fmt.Sprintf("player %d", i))
		assert.Equal(t, i, s.Character.Credits)
	}
}
