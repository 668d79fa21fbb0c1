package workers

import (
	"sync"
)

// WorkerPool runs queued jobs on a fixed number of goroutines. The probe
// layer uses it to bound how many servers are dialed at once.
type WorkerPool struct {
	jobCh chan func()
	wg    sync.WaitGroup

	stopOnce sync.Once
}

// NewWorkerPool initializes a worker pool with a fixed number of workers.
func NewWorkerPool(workerCount, jobBufferSize int) *WorkerPool {
	wp := &WorkerPool{
		jobCh: make(chan func(), jobBufferSize),
	}
	for i := 0; i < workerCount; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobCh {
		job()
	}
}

// AddJob enqueues a job without blocking. It reports false when the queue
// is full and the job was not accepted.
func (wp *WorkerPool) AddJob(job func()) bool {
	wp.wg.Add(1)
	select {
	case wp.jobCh <- func() {
		defer wp.wg.Done()
		job()
	}:
		return true
	default:
		wp.wg.Done()
		return false
	}
}

// Wait blocks until all accepted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Stop closes the job channel gracefully and waits for in-flight jobs.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobCh)
		wp.wg.Wait()
	})
}
