package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundingbay/leadsync/pkg/gsheet"
)

var (
	sheetTitle string
	sheetID    string
	sheetEmail string
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Manage the target spreadsheet",
}

var sheetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new spreadsheet with the export sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := gsheet.NewClient(cmd.Context(), cfg.Sheets.CredentialsPath)
		if err != nil {
			return err
		}

		title := sheetTitle
		if title == "" {
			title = fmt.Sprintf("Close Leads - %s", time.Now().Format("2006-01-02"))
		}
		id, err := pub.Create(cmd.Context(), title)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		fmt.Fprintln(cmd.OutOrStdout(), gsheet.URL(id))
		return nil
	},
}

var sheetShareCmd = &cobra.Command{
	Use:   "share",
	Short: "Grant a user write access to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := gsheet.NewClient(cmd.Context(), cfg.Sheets.CredentialsPath)
		if err != nil {
			return err
		}

		id := sheetID
		if id == "" {
			id = cfg.Sheets.SpreadsheetID
		}
		return pub.Share(cmd.Context(), id, sheetEmail)
	},
}

func init() {
	sheetCreateCmd.Flags().StringVar(&sheetTitle, "title", "", "spreadsheet title (defaults to a dated one)")

	sheetShareCmd.Flags().StringVar(&sheetID, "id", "", "spreadsheet ID (defaults to the configured one)")
	sheetShareCmd.Flags().StringVar(&sheetEmail, "email", "", "email address to grant write access")
	_ = sheetShareCmd.MarkFlagRequired("email")

	sheetCmd.AddCommand(sheetCreateCmd, sheetShareCmd)
	rootCmd.AddCommand(sheetCmd)
}
