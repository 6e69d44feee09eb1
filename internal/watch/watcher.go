// Package watch feeds transcripts dropped into an inbox directory through the
// pipeline.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/notify"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/pipeline"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/queue"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

const (
	processedDir = "processed"
	failedDir    = "failed"

	defaultSettle         = 500 * time.Millisecond
	defaultStableInterval = 2 * time.Second
	defaultStableChecks   = 2
	enqueueWindow         = 5 * time.Second
	enqueueTick           = 250 * time.Millisecond
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Watcher monitors the inbox for new *.txt transcripts. Each one is read into
// memory, run with the inbox tracker credentials, reported to the webhook and
// moved to processed/ or failed/. A run cut short by shutdown leaves the file
// in the inbox for the next start.
type Watcher struct {
	dir      string
	creds    tracker.Config
	queue    *queue.Queue
	runner   Runner
	notifier *notify.Webhook
	maxBytes int64

	// settle is how long a file must stay quiet before it is queued.
	settle time.Duration
	// A queued file is read only once its size holds for stableChecks polls
	// stableInterval apart.
	stableInterval time.Duration
	stableChecks   int

	mu       sync.Mutex
	pending  map[string]*time.Timer
	inflight map[string]struct{}
}

func New(dir string, creds tracker.Config, q *queue.Queue, runner Runner, notifier *notify.Webhook, maxBytes int64) *Watcher {
	return &Watcher{
		dir:      dir,
		creds:    creds,
		queue:    q,
		runner:   runner,
		notifier: notifier,
		maxBytes: maxBytes,
		settle:   defaultSettle,
		pending:  make(map[string]*time.Timer),
		inflight: make(map[string]struct{}),

		stableInterval: defaultStableInterval,
		stableChecks:   defaultStableChecks,
	}
}

// Start creates the inbox and watches it until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch inbox: %w", err)
	}
	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				w.cancelPending()
				return
			case evt, ok := <-fw.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 && isTranscript(evt.Name) {
					w.schedule(ctx, evt.Name)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Error("watcher error", "error", err)
			}
		}
	}()
	slog.Info("watching inbox", "dir", w.dir)
	return nil
}

// Backfill queues transcripts already sitting in the inbox.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if isTranscript(e) {
			w.Submit(ctx, e)
		}
	}
	return nil
}

// schedule debounces events for path so a file still being written is not
// picked up half-finished.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if _, err := os.Stat(path); err != nil {
			return
		}
		w.Submit(ctx, path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Submit queues path, retrying briefly when the queue is full. A path that is
// already queued or running is not queued again.
func (w *Watcher) Submit(ctx context.Context, path string) bool {
	w.mu.Lock()
	if _, busy := w.inflight[path]; busy {
		w.mu.Unlock()
		return true
	}
	w.inflight[path] = struct{}{}
	w.mu.Unlock()

	id := uuid.NewString()
	job := queue.Job{
		ID:     id,
		Source: filepath.Base(path),
		Work: func(jobCtx context.Context) error {
			return w.process(jobCtx, id, path)
		},
		OnFinish: func(error) { w.release(path) },
	}
	ok, _ := w.queue.EnqueueWithRetry(ctx, job, enqueueWindow, enqueueTick)
	if !ok {
		w.release(path)
	}
	return ok
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inflight, path)
	w.mu.Unlock()
}

func (w *Watcher) process(ctx context.Context, id, path string) error {
	if err := waitForStableSize(ctx, path, w.stableInterval, w.stableChecks); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("transcript gone before processing", "file", filepath.Base(path))
			return nil
		}
		if interrupted(ctx, err) {
			return w.leave(path, err)
		}
		w.finish(ctx, path, nil, err)
		return err
	}
	transcript, err := readTranscript(path, w.maxBytes)
	if err != nil {
		w.finish(ctx, path, nil, err)
		return err
	}
	res, err := w.runner.Run(ctx, pipeline.Request{ID: id, Transcript: transcript, Tracker: w.creds})
	if err != nil && interrupted(ctx, err) {
		return w.leave(path, err)
	}
	w.finish(ctx, path, &res, err)
	return err
}

// interrupted reports whether the run stopped because the worker was shut
// down. A job hitting its own timeout is a real failure.
func interrupted(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled)
}

// leave keeps path in the inbox so the next start's backfill picks it up.
func (w *Watcher) leave(path string, err error) error {
	slog.Warn("transcript left in inbox after shutdown", "file", filepath.Base(path), "error", err)
	return err
}

// waitForStableSize polls path until its size is unchanged for required
// consecutive checks.
func waitForStableSize(ctx context.Context, path string, interval time.Duration, required int) error {
	if required <= 0 {
		return nil
	}
	var last int64 = -1
	stable := 0
	for {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		size := info.Size()
		if size == last {
			stable++
			if stable >= required {
				return nil
			}
		} else {
			stable = 0
		}
		last = size
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (w *Watcher) finish(ctx context.Context, path string, res *pipeline.Result, runErr error) {
	name := filepath.Base(path)
	msg := notify.Message{Source: name}
	dest := processedDir
	if runErr != nil {
		dest = failedDir
		msg.Text = fmt.Sprintf("%s: failed: %v", name, runErr)
		msg.Error = runErr.Error()
	} else {
		msg.Text = fmt.Sprintf("%s: %s", name, tally(res.Outcomes))
		msg.SummaryText = res.SummaryText
		msg.AssigneeIDs = res.AssigneeIDs
		msg.Outcomes = res.Outcomes
	}
	if err := moveTo(path, filepath.Join(w.dir, dest)); err != nil {
		slog.Warn("could not move transcript", "file", name, "error", err)
	}
	if err := w.notifier.Send(ctx, msg); err != nil {
		slog.Warn("webhook failed", "file", name, "error", err)
	}
}

func tally(outcomes []tracker.Outcome) string {
	counts := map[tracker.Status]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return fmt.Sprintf("%d created, %d skipped, %d failed",
		counts[tracker.StatusCreated], counts[tracker.StatusSkipped], counts[tracker.StatusError])
}

func readTranscript(path string, maxBytes int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("transcript %s exceeds %d bytes", filepath.Base(path), maxBytes)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("transcript %s is empty", filepath.Base(path))
	}
	return string(data), nil
}

// moveTo moves path into dir. A name already taken in dir gets a timestamp
// and short id suffix instead of being overwritten.
func moveTo(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := filepath.Base(path)
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		stamp := time.Now().UTC().Format("20060102T150405")
		dest = filepath.Join(dir, fmt.Sprintf("%s-%s-%s%s", strings.TrimSuffix(name, ext), stamp, uuid.NewString()[:8], ext))
	}
	return os.Rename(path, dest)
}

func isTranscript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}
