package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/app"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload form, the /process endpoint and the inbox watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.SetDefault(app.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel))

			application, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return application.Run(ctx)
		},
	}
}
