package prom

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-nursery/nursery"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMetricsCountTasks(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewPedanticRegistry()
	m, err := New(reg, "test")
	require.NoError(t, err)

	s := nursery.New(context.Background(), nursery.WithObserver(m), nursery.WithExecutor(nursery.Inline))
	require.NoError(t, s.Spawn(func(_ context.Context) error { return nil }))
	require.NoError(t, nursery.StartWithRetry(s, func() nursery.Work {
		n := 0
		return func(_ context.Context) error {
			n++
			if n < 3 {
				return errors.New("transient")
			}
			return nil
		}
	}(), func(error) bool { return true }))
	require.NoError(t, s.Spawn(func(_ context.Context) error { return errors.New("boom") }))
	require.Error(t, s.Close())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.tasksStarted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.tasksFinished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksErrored))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksRetried))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeTasks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scopesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scopesStopped.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.closes.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.closeWait))
}

func TestMetricsStopReasons(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := New(reg, "test")
	require.NoError(t, err)

	stopped := nursery.New(context.Background(), nursery.WithObserver(m))
	stopped.Stop()
	require.NoError(t, stopped.Close())

	closed := nursery.New(context.Background(), nursery.WithObserver(m))
	require.NoError(t, closed.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scopesStopped.WithLabelValues("stop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scopesStopped.WithLabelValues("close")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.closes.WithLabelValues("ok")))
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := New(reg, "dup")
	require.NoError(t, err)
	_, err = New(reg, "dup")
	var are prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &are)
}

func TestMetricsCompleteWhenCloseReturns(t *testing.T) {
	t.Parallel()
	m, err := New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)

	s := nursery.New(context.Background(), nursery.WithObserver(m))
	for i := 0; i < 16; i++ {
		require.NoError(t, s.Spawn(func(_ context.Context) error { return nil }))
	}
	require.NoError(t, s.Close())

	assert.Equal(t, 16.0, testutil.ToFloat64(m.tasksFinished))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeTasks))
}
