package metrics

import (
	"sync/atomic"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

// Metrics captures shared operational stats for pipelines, issues and the
// inbox queue.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64
	jobsProcessed int64
	jobsFailed    int64

	pipelinesRun    int64
	pipelinesFailed int64

	issuesCreated int64
	issuesSkipped int64
	issuesFailed  int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength     int   `json:"queue_length"`
	QueueCapacity   int   `json:"queue_capacity"`
	WorkerCount     int   `json:"worker_count"`
	JobsProcessed   int64 `json:"jobs_processed"`
	JobsFailed      int64 `json:"jobs_failed"`
	PipelinesRun    int64 `json:"pipelines_run"`
	PipelinesFailed int64 `json:"pipelines_failed"`
	IssuesCreated   int64 `json:"issues_created"`
	IssuesSkipped   int64 `json:"issues_skipped"`
	IssuesFailed    int64 `json:"issues_failed"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int, processed, failed uint64) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
	atomic.StoreInt64(&m.jobsProcessed, int64(processed))
	atomic.StoreInt64(&m.jobsFailed, int64(failed))
}

// RecordPipeline increments run/failed counters based on outcome.
func (m *Metrics) RecordPipeline(err error) {
	atomic.AddInt64(&m.pipelinesRun, 1)
	if err != nil {
		atomic.AddInt64(&m.pipelinesFailed, 1)
	}
}

// RecordOutcome counts one per-item outcome.
func (m *Metrics) RecordOutcome(status tracker.Status) {
	switch status {
	case tracker.StatusCreated:
		atomic.AddInt64(&m.issuesCreated, 1)
	case tracker.StatusSkipped:
		atomic.AddInt64(&m.issuesSkipped, 1)
	default:
		atomic.AddInt64(&m.issuesFailed, 1)
	}
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QueueLength:     int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity:   int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:     int(atomic.LoadInt64(&m.workerCount)),
		JobsProcessed:   atomic.LoadInt64(&m.jobsProcessed),
		JobsFailed:      atomic.LoadInt64(&m.jobsFailed),
		PipelinesRun:    atomic.LoadInt64(&m.pipelinesRun),
		PipelinesFailed: atomic.LoadInt64(&m.pipelinesFailed),
		IssuesCreated:   atomic.LoadInt64(&m.issuesCreated),
		IssuesSkipped:   atomic.LoadInt64(&m.issuesSkipped),
		IssuesFailed:    atomic.LoadInt64(&m.issuesFailed),
	}
}
