package metrics

import (
	"errors"
	"testing"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

func TestMetricsCounters(t *testing.T) {
	m := New()
	m.RecordPipeline(nil)
	m.RecordPipeline(errors.New("boom"))
	m.RecordOutcome(tracker.StatusCreated)
	m.RecordOutcome(tracker.StatusSkipped)
	m.RecordOutcome(tracker.StatusError)
	m.RecordOutcome(tracker.StatusError)
	m.UpdateQueue(2, 16, 1, 5, 1)

	snap := m.Snapshot()
	if snap.PipelinesRun != 2 || snap.PipelinesFailed != 1 {
		t.Fatalf("unexpected pipeline counters: %+v", snap)
	}
	if snap.IssuesCreated != 1 || snap.IssuesSkipped != 1 || snap.IssuesFailed != 2 {
		t.Fatalf("unexpected issue counters: %+v", snap)
	}
	if snap.QueueLength != 2 || snap.QueueCapacity != 16 || snap.WorkerCount != 1 || snap.JobsProcessed != 5 || snap.JobsFailed != 1 {
		t.Fatalf("unexpected queue stats: %+v", snap)
	}
}
