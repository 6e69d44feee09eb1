// Package queue runs inbox transcripts on a bounded worker pool.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/metrics"
)

// Job is one transcript waiting for a worker. OnFinish, when set, runs after
// Work with its result.
type Job struct {
	ID       string
	Source   string
	Work     func(context.Context) error
	OnFinish func(error)
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int
	Capacity    int
	WorkerCount int
	Processed   uint64
	Failed      uint64
}

// Queue is a fixed-capacity channel drained by workerCount goroutines, each
// job bounded by timeout.
type Queue struct {
	jobs        chan Job
	workerCount int
	timeout     time.Duration
	metrics     *metrics.Metrics

	mu        sync.RWMutex
	started   bool
	stopped   bool
	wg        sync.WaitGroup
	processed uint64
	failed    uint64
}

// New creates a stopped Queue. m may be nil.
func New(capacity, workerCount int, timeout time.Duration, m *metrics.Metrics) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	q := &Queue{
		jobs:        make(chan Job, capacity),
		workerCount: workerCount,
		timeout:     timeout,
		metrics:     m,
	}
	q.publish()
	return q
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// EnqueueWithRetry adds j, retrying for window while the queue is full,
// stopped, or not yet started. It returns (enqueued, droppedFull). A zero
// window makes a single non-blocking attempt.
func (q *Queue) EnqueueWithRetry(ctx context.Context, j Job, window, interval time.Duration) (bool, bool) {
	if q.tryEnqueue(j) {
		return true, false
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	deadline := time.Now().Add(window)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false, false
		case <-ticker.C:
			if q.tryEnqueue(j) {
				return true, false
			}
		}
	}
	slog.Warn("queue full, dropping job", "job_id", j.ID, "source", j.Source)
	return false, true
}

func (q *Queue) tryEnqueue(j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.stopped {
		return false
	}
	select {
	case q.jobs <- j:
		q.publishLocked()
		return true
	default:
		return false
	}
}

// Stop closes the queue to new jobs and waits for the workers until ctx ends.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
	return Stats{
		Length:      len(q.jobs),
		Capacity:    cap(q.jobs),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
	}
}

// Healthy reports whether the workers are running.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.started && !q.stopped
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			q.handleJob(ctx, j)
			q.publish()
		}
	}
}

func (q *Queue) handleJob(ctx context.Context, j Job) {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	err := q.runJob(jobCtx, j)
	if j.OnFinish != nil {
		j.OnFinish(err)
	}
	atomic.AddUint64(&q.processed, 1)
	if err != nil {
		atomic.AddUint64(&q.failed, 1)
		slog.Error("job failed", "job_id", j.ID, "source", j.Source, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return
	}
	slog.Info("job finished", "job_id", j.ID, "source", j.Source, "duration_ms", time.Since(start).Milliseconds())
}

func (q *Queue) runJob(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panic: %v", j.ID, r)
		}
	}()
	return j.Work(ctx)
}

func (q *Queue) publish() {
	q.mu.RLock()
	defer q.mu.RUnlock()
	q.publishLocked()
}

func (q *Queue) publishLocked() {
	if q.metrics != nil {
		st := q.Stats()
		q.metrics.UpdateQueue(st.Length, st.Capacity, st.WorkerCount, st.Processed, st.Failed)
	}
}
