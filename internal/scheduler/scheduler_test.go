package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/scheduler"
)

func TestScheduler_RunsTaskImmediatelyAndOnTick(t *testing.T) {
	var runs int64
	s := scheduler.NewScheduler(zap.NewNop(), 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 2
	}, time.Second, 5*time.Millisecond, "expected the immediate run plus at least one tick")
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	s := scheduler.NewScheduler(zap.NewNop(), time.Hour, func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrAlreadyRunning)
}

func TestScheduler_StopWithoutStartFails(t *testing.T) {
	s := scheduler.NewScheduler(zap.NewNop(), time.Hour, func(ctx context.Context) error {
		return nil
	})

	assert.ErrorIs(t, s.Stop(), scheduler.ErrNotRunning)
}

func TestScheduler_StopHaltsLoop(t *testing.T) {
	var runs int64
	s := scheduler.NewScheduler(zap.NewNop(), 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	after := atomic.LoadInt64(&runs)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt64(&runs), "no runs after Stop returns")
}

func TestScheduler_TaskErrorDoesNotStopLoop(t *testing.T) {
	var runs int64
	s := scheduler.NewScheduler(zap.NewNop(), 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return assert.AnError
	})

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := scheduler.NewScheduler(zap.NewNop(), 10*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, s.Start(ctx))

	cancel()

	assert.Eventually(t, func() bool {
		return !s.IsRunning()
	}, time.Second, 5*time.Millisecond)
}
