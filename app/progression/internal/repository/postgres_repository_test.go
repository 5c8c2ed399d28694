package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/dao"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/database/postgres"
	"github.com/lk2023060901/arise/pkg/database/redis"
	"github.com/lk2023060901/arise/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要真实数据库，未设置 ARISE_TEST_POSTGRES_HOST 时跳过
func newPostgresRepo(t *testing.T) PlayerRepository {
	t.Helper()
	host := os.Getenv("ARISE_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("ARISE_TEST_POSTGRES_HOST not set")
	}

	db, err := postgres.New(&postgres.Config{
		Host:     host,
		Password: os.Getenv("ARISE_TEST_POSTGRES_PASSWORD"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, dao.EnsureSchema(context.Background(), db.DB()))

	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(&redis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	l := logger.NewNoop()
	return NewPostgresRepository(
		db,
		dao.NewPlayerDAO(l, nil),
		dao.NewGauntletDAO(l, nil),
		dao.NewDungeonDAO(l, nil),
		dao.NewConstellationDAO(l, nil),
		dao.NewPurificationDAO(l, nil),
		dao.NewCacheDAO(rdb, l, nil, time.Minute),
		l,
	)
}

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	playerID := time.Now().UnixNano()

	s := model.NewPlayerState(playerID, testNow)
	require.NoError(t, repo.Create(ctx, s))
	assert.True(t, errors.Is(repo.Create(ctx, model.NewPlayerState(playerID, testNow)), engine.ErrAlreadyExists))

	loaded, err := repo.Load(ctx, playerID)
	require.NoError(t, err)
	require.Len(t, loaded.Gauntlets, len(model.AllDisciplines))

	loaded.Gauntlet(model.DisciplinePull).MarkCompleted(1)
	loaded.Gauntlet(model.DisciplinePull).CurrentStage = 2
	loaded.ActiveRun = &model.DungeonRun{
		ID:        "00000000-0000-0000-0000-000000000001",
		PlayerID:  playerID,
		Archetype: model.ArchetypeGravity,
		Status:    model.RunInProgress,
		StartedAt: testNow,
	}
	require.NoError(t, repo.Save(ctx, &Mutation{State: loaded}))

	stale := loaded.Clone()
	stale.Version--
	assert.True(t, errors.Is(repo.Save(ctx, &Mutation{State: stale}), ErrConcurrentUpdate))

	again, err := repo.Load(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Version)
	assert.Equal(t, 2, again.Gauntlet(model.DisciplinePull).CurrentStage)
	require.NotNil(t, again.ActiveRun)

	runs, total, err := repo.ListRuns(ctx, playerID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, runs, 1)
}

func TestPostgresRepositoryLateReaderBackfill(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()
	playerID := time.Now().UnixNano()

	require.NoError(t, repo.Create(ctx, model.NewPlayerState(playerID, testNow)))
	read, err := repo.Load(ctx, playerID)
	require.NoError(t, err)

	write := read.Clone()
	write.Character.Credits = 300
	require.NoError(t, repo.Save(ctx, &Mutation{State: write}))

	// 无锁读路径的回写晚于加锁写路径
	repo.(*postgresRepository).refreshCache(ctx, read)

	got, err := repo.Load(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, write.Version, got.Version)
	assert.Equal(t, int64(300), got.Character.Credits)

	got.Character.Credits = 400
	require.NoError(t, repo.Save(ctx, &Mutation{State: got}))
}
