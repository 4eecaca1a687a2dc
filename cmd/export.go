package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fundingbay/leadsync/internal/export"
	"github.com/fundingbay/leadsync/pkg/closecrm"
	"github.com/fundingbay/leadsync/pkg/gsheet"
)

var (
	exportOutput    string
	exportNoPublish bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run one full export now",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := buildPipeline(cmd.Context(), exportNoPublish)
		if err != nil {
			return err
		}
		return pipeline.Run(cmd.Context(), export.Options{
			SnapshotPath: exportOutput,
			NoPublish:    exportNoPublish,
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "also write the grids to a local XLSX file")
	exportCmd.Flags().BoolVar(&exportNoPublish, "no-publish", false, "skip the Google Sheets write")
	rootCmd.AddCommand(exportCmd)
}

// buildPipeline wires the Close client, fetcher, and publisher from
// config. The publisher is skipped entirely when publishing is off.
func buildPipeline(ctx context.Context, noPublish bool) (*export.Pipeline, error) {
	crm := closecrm.NewClient(
		cfg.Close.APIKey,
		cfg.Close.SourceFieldID,
		cfg.Close.SourceTag,
		closecrm.WithBaseURL(cfg.Close.BaseURL),
		closecrm.WithTimeout(cfg.Close.Timeout()),
		closecrm.WithRateLimit(cfg.Close.RateLimitRPS),
	)
	fetcher := export.NewFetcher(crm, cfg.Close.EnrichConcurrency)

	var publisher gsheet.Publisher
	if !noPublish {
		var err error
		publisher, err = gsheet.NewClient(ctx, cfg.Sheets.CredentialsPath)
		if err != nil {
			return nil, err
		}
	}

	return export.NewPipeline(fetcher, publisher, cfg.Sheets), nil
}
