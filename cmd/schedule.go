package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fundingbay/leadsync/internal/export"
	"github.com/fundingbay/leadsync/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the export daily at the configured local time",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		loc, err := time.LoadLocation(cfg.Schedule.Timezone)
		if err != nil {
			return eris.Wrapf(err, "load timezone %s", cfg.Schedule.Timezone)
		}

		pipeline, err := buildPipeline(ctx, false)
		if err != nil {
			return err
		}

		job := func(ctx context.Context) error {
			return pipeline.Run(ctx, export.Options{})
		}
		schedule.New(cfg.Schedule.Hour, cfg.Schedule.Minute, loc, job).Run(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
