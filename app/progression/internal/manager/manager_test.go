package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/app/progression/internal/repository"
	"github.com/lk2023060901/arise/pkg/database/redis"
	"github.com/lk2023060901/arise/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLockManager(t *testing.T, rdb *redis.Client) *LockManager {
	t.Helper()
	m, err := NewLockManager(&LockConfig{RetryInterval: 5 * time.Millisecond}, rdb, logger.NewNoop(), nil)
	require.NoError(t, err)
	return m
}

func assertSerialized(t *testing.T, m *LockManager) {
	t.Helper()
	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
		counter int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithPlayerLock(context.Background(), 1, func() error {
				n := atomic.AddInt32(&inside, 1)
				if n > atomic.LoadInt32(&maxSeen) {
					atomic.StoreInt32(&maxSeen, n)
				}
				counter++
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxSeen))
	assert.Equal(t, 20, counter)
	assert.Equal(t, 0, m.Held())
}

func TestLockManagerLocal(t *testing.T) {
	m := newLockManager(t, nil)
	assert.Equal(t, 10*time.Second, m.cfg.TTL)
	assertSerialized(t, m)
}

func TestLockManagerRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.NewClient(&redis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	m := newLockManager(t, rdb)
	assertSerialized(t, m)
	assert.False(t, mr.Exists("arise:lock:player:1"))
}

func TestLockManagerDifferentPlayersParallel(t *testing.T) {
	m := newLockManager(t, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithPlayerLock(context.Background(), 1, func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// 玩家 2 不受玩家 1 阻塞
	err := m.WithPlayerLock(context.Background(), 2, func() error { return nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = m.WithPlayerLock(ctx, 1, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestLockManagerReturnsFnError(t *testing.T) {
	m := newLockManager(t, nil)
	boom := errors.New("boom")
	err := m.WithPlayerLock(context.Background(), 3, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Held())
}

type countingRepo struct {
	*repository.MemoryRepository
	loads int32
	gate  chan struct{}
}

func (r *countingRepo) Load(ctx context.Context, playerID int64) (*model.PlayerState, error) {
	atomic.AddInt32(&r.loads, 1)
	<-r.gate
	return r.MemoryRepository.Load(ctx, playerID)
}

func TestPlayerManagerLoadReturnsCopies(t *testing.T) {
	repo := &countingRepo{MemoryRepository: repository.NewMemoryRepository(), gate: make(chan struct{})}
	close(repo.gate)
	pm := NewPlayerManager(repo, logger.NewNoop())
	ctx := context.Background()

	_, err := pm.Load(ctx, 1)
	assert.True(t, errors.Is(err, engine.ErrNotFound))

	require.NoError(t, pm.Create(ctx, model.NewPlayerState(1, time.Now().UTC())))

	a, err := pm.Load(ctx, 1)
	require.NoError(t, err)
	a.Character.Credits = 50
	b, err := pm.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Character.Credits)

	require.NoError(t, pm.Save(ctx, &repository.Mutation{State: a}))
	c, err := pm.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), c.Character.Credits)
	assert.Equal(t, int64(2), c.Version)
}

func TestPlayerManagerSharesConcurrentLoads(t *testing.T) {
	mem := repository.NewMemoryRepository()
	require.NoError(t, mem.Create(context.Background(), model.NewPlayerState(1, time.Now().UTC())))
	repo := &countingRepo{MemoryRepository: mem, gate: make(chan struct{})}
	pm := NewPlayerManager(repo, logger.NewNoop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := pm.Load(context.Background(), 1)
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	// 等所有调用进入合并
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&repo.loads), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&repo.loads), int32(1))
}
