// Package app wires configuration, the pipeline and its inbound surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/config"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/events"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/extract"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/httpapi"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/llm"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/metrics"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/notify"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/pipeline"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/queue"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/watch"
)

const (
	maxHeaderBytes = 1 << 20
	readTimeout    = 30 * time.Second
)

// App wires the pipeline to the HTTP server and the optional inbox watcher.
type App struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	bus      *events.Bus
	pipeline *pipeline.Service
	queue    *queue.Queue
	watcher  *watch.Watcher
	handler  http.Handler
}

// NewPipeline builds the pipeline service described by cfg.
func NewPipeline(cfg config.Config, m *metrics.Metrics, bus *events.Bus) (*pipeline.Service, error) {
	strategy, err := extract.NewPatternStrategy(cfg.Extraction.Pattern)
	if err != nil {
		return nil, err
	}
	summarizer := llm.NewSummarizer(&http.Client{Timeout: cfg.LLMTimeout()}, cfg.LLM)
	trackers := pipeline.HTTPTrackers(&http.Client{Timeout: cfg.TrackerTimeout()})
	return pipeline.New(summarizer, strategy, trackers, m, bus), nil
}

func New(cfg config.Config) (*App, error) {
	m := metrics.New()
	bus := events.NewBus()
	svc, err := NewPipeline(cfg, m, bus)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, metrics: m, bus: bus, pipeline: svc}

	if cfg.Watch.Enabled {
		creds, err := tracker.NewConfig(cfg.Watch.TrackerBaseURL, cfg.Watch.TrackerEmail, cfg.Watch.TrackerAPIToken, cfg.Watch.TrackerProject)
		if err != nil {
			return nil, fmt.Errorf("inbox tracker: %w", err)
		}
		jobTimeout := time.Duration(cfg.Watch.JobTimeoutSec) * time.Second
		a.queue = queue.New(cfg.Watch.QueueSize, cfg.Watch.WorkerCount, jobTimeout, m)
		hook := notify.NewWebhook(cfg.NotifyWebhookURL, &http.Client{Timeout: cfg.TrackerTimeout()})
		a.watcher = watch.New(cfg.Watch.InboxDir, creds, a.queue, svc, hook, cfg.MaxUploadBytes)
	}

	var healthy func() bool
	if a.queue != nil {
		healthy = a.queue.Healthy
	}
	a.handler = httpapi.NewRouter(svc, m, cfg.MaxUploadBytes, healthy).Handler()
	return a, nil
}

// Run starts the stage tracer, the inbox (when enabled) and the HTTP server,
// and blocks until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	go traceStages(ctx, a.bus.Subscribe())

	if a.watcher != nil {
		a.queue.Start(ctx)
		if err := a.watcher.Start(ctx); err != nil {
			return err
		}
		if err := a.watcher.Backfill(ctx); err != nil {
			slog.Warn("inbox backfill failed", "error", err)
		}
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPPort,
		Handler:           a.handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	if a.queue != nil {
		a.queue.Stop(shutdownCtx)
	}
	slog.Info("shutdown complete")
	return nil
}

// Handler exposes the routed HTTP handler for tests.
func (a *App) Handler() http.Handler { return a.handler }

// Pipeline exposes the pipeline service.
func (a *App) Pipeline() *pipeline.Service { return a.pipeline }

func traceStages(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			slog.Debug("stage", "request_id", ev.RequestID, "stage", ev.Stage, "item", ev.Item, "detail", ev.Detail, "at", ev.At)
		}
	}
}
