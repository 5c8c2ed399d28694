package app

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	started atomic.Bool
	stopped atomic.Bool
	stopErr error
}

func (s *fakeServer) Start() error { s.started.Store(true); return nil }
func (s *fakeServer) Stop() error  { s.stopped.Store(true); return s.stopErr }

func TestShutdown_ClosesInReverseOrder(t *testing.T) {
	a := NewBaseApp(WithName("test"))

	var order []int
	a.AppendCloser(
		CloserFunc(func() error { order = append(order, 1); return nil }),
		CloserFunc(func() error { order = append(order, 2); return errors.New("ignored") }),
		CloserFunc(func() error { order = append(order, 3); return nil }),
	)
	srv := &fakeServer{}
	a.AppendServer(srv)

	require.NoError(t, a.Shutdown())
	assert.True(t, srv.stopped.Load())
	assert.Equal(t, []int{3, 2, 1}, order)

	// 重复调用不再执行
	require.NoError(t, a.Shutdown())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestShutdown_ReturnsServerStopError(t *testing.T) {
	a := NewBaseApp()
	a.AppendServer(&fakeServer{stopErr: errors.New("boom")})
	assert.EqualError(t, a.Shutdown(), "boom")
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	a := NewBaseApp(WithStopTimeout(time.Second))
	srv := &fakeServer{}
	InitApp(a, AppComponents{Servers: []Server{srv}})

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, srv.started.Load, time.Second, 5*time.Millisecond)
	a.cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, srv.stopped.Load())
	assert.ErrorIs(t, a.Run(), ErrAppAlreadyRunning)
}
