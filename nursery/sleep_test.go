package nursery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepZeroOnOpenScope(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	defer func() { require.NoError(t, s.Close()) }()

	start := time.Now()
	require.NoError(t, Sleep(s, 0))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepElapses(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	defer func() { require.NoError(t, s.Close()) }()

	start := time.Now()
	require.NoError(t, Sleep(s, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleepAfterStopFails(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Stop()

	err := Sleep(s, 24*time.Hour)
	var ce *CancellationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ErrStopped, ce.Cause)

	// A zero duration still observes the token.
	assert.Error(t, Sleep(s, 0))
	require.NoError(t, s.Close())
}

func TestSleepWakesOnStop(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	woke := make(chan error, 3)
	ready := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Spawn(func(_ context.Context) error {
			ready <- struct{}{}
			woke <- Sleep(s, time.Hour)
			return nil
		}))
	}
	for i := 0; i < 3; i++ {
		<-ready
	}
	s.Stop()

	for i := 0; i < 3; i++ {
		select {
		case err := <-woke:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("sleeper was not woken by Stop")
		}
	}
	require.NoError(t, s.Close())
}

func TestSleepWakesOnSiblingFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	s := New(context.Background())
	start := time.Now()
	require.NoError(t, s.Spawn(func(_ context.Context) error { return Sleep(s, time.Hour) }))
	require.NoError(t, s.Spawn(func(_ context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return boom
	}))

	err := s.Close()
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
