// Package pipeline turns a meeting transcript into tracker issues: summarize,
// extract action items, resolve the project once, then resolve each assignee
// and create its issue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/events"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/extract"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/metrics"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

// SummaryPrefix starts the summary of every created issue.
const SummaryPrefix = "Action Item: "

// Summarizer produces the minutes of meeting for a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Tracker is the subset of the tracker client a run needs.
type Tracker interface {
	ResolveProjectKey(ctx context.Context, displayName string) (string, error)
	ResolveAssigneeID(ctx context.Context, name string) (string, error)
	CreateIssue(ctx context.Context, in tracker.IssueRequest) (tracker.Outcome, error)
}

// TrackerFactory builds a tracker bound to one request's credentials.
type TrackerFactory func(cfg tracker.Config) Tracker

// HTTPTrackers returns a factory of REST clients sharing httpClient.
func HTTPTrackers(httpClient *http.Client) TrackerFactory {
	return func(cfg tracker.Config) Tracker {
		return tracker.NewClient(cfg, httpClient)
	}
}

// Request is one pipeline run.
type Request struct {
	ID         string
	Transcript string
	Tracker    tracker.Config
}

// Result aggregates a completed run.
type Result struct {
	SummaryText string            `json:"summary_text"`
	AssigneeIDs map[string]string `json:"assignee_id_map"`
	Outcomes    []tracker.Outcome `json:"issue_outcomes"`
}

func newResult(summary string) Result {
	return Result{
		SummaryText: summary,
		AssigneeIDs: map[string]string{},
		Outcomes:    []tracker.Outcome{},
	}
}

// Service runs pipelines. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	summarizer Summarizer
	strategy   extract.Strategy
	trackers   TrackerFactory
	metrics    *metrics.Metrics
	bus        *events.Bus
}

// New builds a Service. m and bus may be nil.
func New(summarizer Summarizer, strategy extract.Strategy, trackers TrackerFactory, m *metrics.Metrics, bus *events.Bus) *Service {
	if strategy == nil {
		strategy = extract.Default()
	}
	return &Service{summarizer: summarizer, strategy: strategy, trackers: trackers, metrics: m, bus: bus}
}

// Run executes every stage for req. Summarization and project resolution
// failures abort the run; per-item failures are recorded in the result.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	res, err := s.run(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordPipeline(err)
	}
	if err != nil {
		s.advance(req.ID, StageFailed, 0, err.Error())
		slog.Error("pipeline failed", "request_id", req.ID, "error", err)
		return Result{}, err
	}
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request) (Result, error) {
	if s.summarizer == nil || s.trackers == nil {
		return Result{}, errors.New("pipeline not configured")
	}
	s.advance(req.ID, StageReceived, 0, fmt.Sprintf("%d bytes", len(req.Transcript)))

	summary, err := s.summarizer.Summarize(ctx, req.Transcript)
	if err != nil {
		return Result{}, err
	}
	s.advance(req.ID, StageSummarized, 0, "")

	items := s.strategy.Extract(summary)
	if n := extract.Unmatched(summary, items); n > 0 {
		slog.Warn("assignee labels not matched by extraction pattern", "request_id", req.ID, "unmatched", n)
	}
	s.advance(req.ID, StageExtracted, 0, fmt.Sprintf("%d items", len(items)))

	tr := s.trackers(req.Tracker)
	projectKey, err := tr.ResolveProjectKey(ctx, req.Tracker.ProjectName)
	if err != nil {
		return Result{}, err
	}
	s.advance(req.ID, StageProjectResolved, 0, projectKey)

	res := newResult(summary)
	for i, item := range items {
		out := s.processItem(ctx, req.ID, i, tr, projectKey, item, res.AssigneeIDs)
		if s.metrics != nil {
			s.metrics.RecordOutcome(out.Status)
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	s.advance(req.ID, StageCompleted, 0, fmt.Sprintf("%d outcomes", len(res.Outcomes)))
	slog.Info("pipeline completed", "request_id", req.ID, "project", projectKey, "items", len(items))
	return res, nil
}

// processItem resolves one assignee and creates its issue. Every failure
// becomes an error outcome and an "Error: " entry in ids.
func (s *Service) processItem(ctx context.Context, requestID string, idx int, tr Tracker, projectKey string, item extract.ActionItem, ids map[string]string) tracker.Outcome {
	name := item.Assignee
	s.advance(requestID, StageAssigneeResolving, idx+1, name)
	accountID, err := tr.ResolveAssigneeID(ctx, name)
	if err != nil {
		return itemFailure(requestID, name, err, ids)
	}
	ids[name] = accountID

	summary := SummaryPrefix + item.Description
	s.advance(requestID, StageIssueCreating, idx+1, summary)
	out, err := tr.CreateIssue(ctx, tracker.IssueRequest{
		ProjectKey:  projectKey,
		Summary:     summary,
		Description: item.Description,
		AssigneeID:  accountID,
	})
	if err != nil {
		return itemFailure(requestID, name, err, ids)
	}
	if out.Assignee == "" {
		out.Assignee = name
	}
	slog.Info("issue processed", "request_id", requestID, "assignee", name, "status", out.Status, "key", out.Key)
	return out
}

func itemFailure(requestID, name string, err error, ids map[string]string) tracker.Outcome {
	msg := strings.TrimSpace(err.Error())
	ids[name] = "Error: " + msg
	slog.Warn("action item failed", "request_id", requestID, "assignee", name, "error", msg)
	return tracker.Outcome{
		Status:   tracker.StatusError,
		Assignee: name,
		Error:    fmt.Sprintf("Issue failed for %s: %s", name, msg),
	}
}

func (s *Service) advance(requestID string, stage Stage, item int, detail string) {
	s.bus.Publish(events.Event{RequestID: requestID, Stage: string(stage), Item: item, Detail: detail})
}
