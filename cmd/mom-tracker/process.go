package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/app"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/config"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/pipeline"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/tracker"
)

type processOptions struct {
	file    string
	project string
	baseURL string
	email   string
	token   string
}

func processCmd() *cobra.Command {
	var opts processOptions
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one transcript through the pipeline and print the JSON result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.SetDefault(app.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel))
			return runProcess(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "transcript file (required)")
	cmd.Flags().StringVar(&opts.project, "project", "", "project display name (default $TRACKER_PROJECT)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Jira base url (default $TRACKER_BASE_URL)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Jira account email (default $TRACKER_EMAIL)")
	cmd.Flags().StringVar(&opts.token, "token", "", "Jira API token (default $TRACKER_API_TOKEN)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runProcess(ctx context.Context, cfg config.Config, opts processOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if int64(len(data)) > cfg.MaxUploadBytes {
		return fmt.Errorf("transcript exceeds %d bytes", cfg.MaxUploadBytes)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("transcript %s is empty", opts.file)
	}

	creds, err := tracker.NewConfig(
		pick(opts.baseURL, cfg.Watch.TrackerBaseURL),
		pick(opts.email, cfg.Watch.TrackerEmail),
		pick(opts.token, cfg.Watch.TrackerAPIToken),
		pick(opts.project, cfg.Watch.TrackerProject),
	)
	if err != nil {
		return err
	}

	svc, err := app.NewPipeline(cfg, nil, nil)
	if err != nil {
		return err
	}
	res, err := svc.Run(ctx, pipeline.Request{ID: uuid.NewString(), Transcript: string(data), Tracker: creds})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func pick(flag, fallback string) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	return fallback
}
