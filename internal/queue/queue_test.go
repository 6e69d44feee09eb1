package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/metrics"
)

// enqueue makes a single non-blocking attempt.
func enqueue(q *Queue, j Job) bool {
	ok, _ := q.EnqueueWithRetry(context.Background(), j, 0, time.Millisecond)
	return ok
}

func TestQueueProcessesJob(t *testing.T) {
	q := New(10, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var processed int32
	done := make(chan error, 1)
	ok := enqueue(q, Job{
		ID:     "job1",
		Source: "test",
		Work: func(ctx context.Context) error {
			atomic.AddInt32(&processed, 1)
			return nil
		},
		OnFinish: func(err error) { done <- err },
	})
	if !ok {
		t.Fatalf("expected enqueue to succeed")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected job error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("job did not complete")
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("job not processed")
	}
}

func TestQueueRejectsBeforeStartAndWhenFull(t *testing.T) {
	q := New(1, 0, 100*time.Millisecond, nil)
	noop := func(ctx context.Context) error { return nil }
	if enqueue(q, Job{ID: "early", Work: noop}) {
		t.Fatalf("expected enqueue before start to be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	if !enqueue(q, Job{ID: "first", Source: "test", Work: noop}) {
		t.Fatalf("expected first enqueue to succeed")
	}
	if enqueue(q, Job{ID: "drop", Source: "test", Work: noop}) {
		t.Fatalf("expected enqueue to be rejected when queue is full")
	}
}

func TestEnqueueWithRetryDropsWhenFull(t *testing.T) {
	q := New(1, 0, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	if !enqueue(q, Job{ID: "first", Source: "test", Work: func(ctx context.Context) error { return nil }}) {
		t.Fatalf("expected initial enqueue to succeed")
	}

	enqueued, dropped := q.EnqueueWithRetry(ctx, Job{ID: "retry", Source: "test", Work: func(ctx context.Context) error { return nil }}, 200*time.Millisecond, 50*time.Millisecond)
	if enqueued {
		t.Fatalf("expected enqueue to fail due to full queue")
	}
	if !dropped {
		t.Fatalf("expected enqueue to be reported as dropped after retries")
	}
}

func TestQueueRecoversPanicsAndCountsFailures(t *testing.T) {
	m := metrics.New()
	q := New(4, 1, time.Second, m)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan error, 2)
	enqueue(q, Job{ID: "panic", Work: func(ctx context.Context) error { panic("boom") }, OnFinish: func(err error) { done <- err }})
	enqueue(q, Job{ID: "fail", Work: func(ctx context.Context) error { return errors.New("bad") }, OnFinish: func(err error) { done <- err }})
	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err == nil {
				t.Fatalf("expected error from job")
			}
		case <-time.After(time.Second):
			t.Fatalf("jobs did not complete")
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	q.Stop(stopCtx)

	stats := q.Stats()
	if stats.Processed != 2 || stats.Failed != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if q.Healthy() {
		t.Fatalf("expected stopped queue to be unhealthy")
	}
	snap := m.Snapshot()
	if snap.QueueCapacity != 4 || snap.WorkerCount != 1 || snap.JobsProcessed != 2 || snap.JobsFailed != 2 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestJobTimeout(t *testing.T) {
	q := New(1, 1, 50*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan error, 1)
	enqueue(q, Job{ID: "slow", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, OnFinish: func(err error) { done <- err }})

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("job did not time out")
	}
}
