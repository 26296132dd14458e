package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingTunable struct {
	calls atomic.Int32
	fail  func(n int32) error
}

func (c *countingTunable) ManagePool(ctx context.Context) error {
	n := c.calls.Add(1)
	if c.fail != nil {
		return c.fail(n)
	}
	return nil
}

func TestManagerRunsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	target := &countingTunable{}
	m := NewManager(target, 5*time.Millisecond, nil)
	m.Start()
	m.Start()

	require.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, time.Millisecond)

	m.Stop()
	stopped := target.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, target.calls.Load(), "no cycles after Stop")

	m.Stop()
}

func TestManagerSurvivesErrorsAndPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	target := &countingTunable{fail: func(n int32) error {
		switch n {
		case 1:
			return errors.New("grow failed")
		case 2:
			panic("boom")
		}
		return nil
	}}
	m := NewManager(target, 5*time.Millisecond, nil)
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return target.calls.Load() >= 4 }, time.Second, time.Millisecond)
}

func TestManagerStopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	target := &countingTunable{}
	m := NewManager(target, time.Millisecond, nil)
	m.Stop()
	m.Start()
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, target.calls.Load())
}

func TestManagerStopIsNotDelayedByInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(&countingTunable{}, time.Hour, nil)
	m.Start()

	start := time.Now()
	m.Stop()
	assert.Less(t, time.Since(start), time.Second)
}

func TestManagedCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &mockFactory{}
	m, err := NewManaged(context.Background(), f, Parameters{MinConnections: 2, MaxConnections: 4}, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, m.PoolSize())
	assert.Equal(t, 2, m.AvailableSize())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	for i := 0; i < 2; i++ {
		_, err = m.Get(context.Background())
		require.ErrorIs(t, err, ErrPoolClosed)
		assert.EqualError(t, err, "connection pool is closed")
	}
	for _, c := range f.opened() {
		assert.True(t, c.closed.Load())
	}
}

func TestManagedTunesInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, err := NewManaged(context.Background(), &mockFactory{}, Parameters{MinConnections: 1, MaxConnections: 3}, 5*time.Millisecond)
	require.NoError(t, err)
	defer m.Close()

	c, err := m.Get(context.Background())
	require.NoError(t, err)
	c.Retire()
	require.NoError(t, c.Close())
	assert.Equal(t, 0, m.PoolSize())

	require.Eventually(t, func() bool { return m.PoolSize() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(2), m.Stats().Created)
}
