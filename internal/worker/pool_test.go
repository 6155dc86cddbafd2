package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	calls    atomic.Int32
	failures int32
}

func (t *countingTask) Process(ctx context.Context) error {
	n := t.calls.Add(1)
	if n <= t.failures {
		return errors.New("transient failure")
	}
	return nil
}

func TestPoolProcessesTasks(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start()

	tasks := make([]*countingTask, 5)
	for i := range tasks {
		tasks[i] = &countingTask{}
		require.True(t, pool.Submit(tasks[i]))
	}

	require.Eventually(t, func() bool {
		for _, task := range tasks {
			if task.calls.Load() == 0 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	pool.Stop()
	assert.Zero(t, pool.DeadLetterCount())
}

func TestPoolRetriesThenSucceeds(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start()

	task := &countingTask{failures: 2}
	require.True(t, pool.Submit(task))

	require.Eventually(t, func() bool {
		return task.calls.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)

	pool.Stop()
	assert.Zero(t, pool.DeadLetterCount())
}

func TestPoolDeadLetter(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start()

	task := &countingTask{failures: 100}
	require.True(t, pool.Submit(task))

	require.Eventually(t, func() bool {
		return pool.DeadLetterCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	pool.Stop()
	assert.Equal(t, int32(3), task.calls.Load())
}

func TestPoolBackpressure(t *testing.T) {
	// Workers never started, so the queue fills up.
	pool := NewPool(1, 2)

	assert.True(t, pool.Submit(&countingTask{}))
	assert.True(t, pool.Submit(&countingTask{}))
	assert.False(t, pool.Submit(&countingTask{}))

	stats := pool.Stats()
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, 2, stats.QueueLength)
}
