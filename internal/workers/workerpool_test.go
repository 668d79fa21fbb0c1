package workers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	wp := NewWorkerPool(4, 16)
	defer wp.Stop()

	var counter int64
	for i := 0; i < 10; i++ {
		ok := wp.AddJob(func() {
			atomic.AddInt64(&counter, 1)
		})
		assert.True(t, ok)
	}

	wp.Wait()
	assert.Equal(t, int64(10), atomic.LoadInt64(&counter))
}

func TestWorkerPoolRejectsWhenQueueFull(t *testing.T) {
	wp := NewWorkerPool(1, 1)
	defer wp.Stop()

	block := make(chan struct{})

	// occupy the single worker, then fill the one queue slot
	assert.True(t, wp.AddJob(func() { <-block }))

	// the worker may not have dequeued yet, give it a moment
	time.Sleep(50 * time.Millisecond)
	assert.True(t, wp.AddJob(func() {}))

	// queue is now full
	assert.False(t, wp.AddJob(func() {}))

	close(block)
	wp.Wait()
}

func TestWorkerPoolStopIsIdempotent(t *testing.T) {
	wp := NewWorkerPool(2, 4)
	wp.AddJob(func() {})
	wp.Stop()
	assert.NotPanics(t, func() { wp.Stop() })
}
