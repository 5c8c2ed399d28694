package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(&Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
	assert.ErrorIs(t, (&Config{Addr: "x:1", DB: -1}).Validate(), ErrInvalidConfig)
	assert.NoError(t, DefaultConfig().Validate())
}

type snapshot struct {
	PlayerID int64 `json:"player_id"`
	Level    int   `json:"level"`
}

func TestObjectRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, err := GetObject[snapshot](ctx, c, "missing")
	assert.ErrorIs(t, err, ErrNil)

	require.NoError(t, c.SetObject(ctx, "snap:1", snapshot{PlayerID: 1, Level: 7}, time.Minute))
	got, err := GetObject[snapshot](ctx, c, "snap:1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Level)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "snap:1")
	assert.ErrorIs(t, err, ErrNil)
}

func TestSetObjectIfNewer(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.SetObjectIfNewer(ctx, "snap:{1}", "snap:{1}:ver", 5, snapshot{PlayerID: 1, Level: 5}, time.Minute, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// 旧版本不覆盖
	ok, err = c.SetObjectIfNewer(ctx, "snap:{1}", "snap:{1}:ver", 4, snapshot{PlayerID: 1, Level: 4}, time.Minute, 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	got, err := GetObject[snapshot](ctx, c, "snap:{1}")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Level)

	// 同版本可重写
	ok, err = c.SetObjectIfNewer(ctx, "snap:{1}", "snap:{1}:ver", 5, snapshot{PlayerID: 1, Level: 5}, time.Minute, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// 数据被删后版本号仍然生效
	_, err = c.Del(ctx, "snap:{1}")
	require.NoError(t, err)
	ok, err = c.SetObjectIfNewer(ctx, "snap:{1}", "snap:{1}:ver", 4, snapshot{PlayerID: 1, Level: 4}, time.Minute, 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 版本号过期后可重新写入
	mr.FastForward(3 * time.Minute)
	ok, err = c.SetObjectIfNewer(ctx, "snap:{1}", "snap:{1}:ver", 1, snapshot{PlayerID: 1, Level: 1}, time.Minute, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.SetObjectIfNewer(ctx, "snap:{2}", "snap:{2}:ver", 1, snapshot{}, 0, 0)
	assert.Error(t, err)
}

func TestLock(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	a := NewLock(c, "lock:player:1", time.Second)
	b := NewLock(c, "lock:player:1", time.Second)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Unlock(ctx), ErrLockNotHeld)
	assert.ErrorIs(t, b.LockWithRetry(ctx, time.Millisecond, 2), ErrLockFailed)

	require.NoError(t, a.Refresh(ctx))
	require.NoError(t, a.Unlock(ctx))

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, b.Refresh(ctx), ErrLockNotHeld)
}

func TestWithLockRetry_Serializes(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	var inside, maxInside, total int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLockRetry(ctx, "lock:k", time.Second, 2*time.Millisecond, 1000, func() error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				atomic.AddInt32(&total, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), total)
	assert.Equal(t, int32(1), maxInside)
}

func TestWithLockRetry_ReturnsFnError(t *testing.T) {
	c, _ := newTestClient(t)
	boom := errors.New("boom")

	err := c.WithLockRetry(context.Background(), "lock:e", time.Second, time.Millisecond, 1, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	n, err := c.Exists(context.Background(), "lock:e")
	require.NoError(t, err)
	assert.Zero(t, n)
}
