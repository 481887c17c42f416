package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/service"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset-reports <kind>...",
	Short: "Delete all report rows of the given kinds",
	Long: `Delete every row of the given report kinds. Kinds are daily, weekly,
monthly (rollups) and focus, rest (detail records). Kinds that are not named
are left untouched. This cannot be undone.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetConfirmed, "yes", "y", false, "Confirm the deletion")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	kinds := make([]model.ReportKind, 0, len(args))
	for _, raw := range args {
		kind, err := model.ParseReportKind(raw)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}

	if !resetConfirmed {
		yellow := color.New(color.FgYellow, color.Bold)
		yellow.Fprintf(cmd.ErrOrStderr(), "Refusing to delete %v without --yes\n", kinds)
		return fmt.Errorf("reset not confirmed")
	}

	return withReports(cmd, func(reports *service.ReportService) error {
		if apiErr := reports.Reset(cmd.Context(), kinds); apiErr != nil {
			return apiErr
		}
		green := color.New(color.FgGreen, color.Bold)
		green.Fprintf(cmd.OutOrStdout(), "Deleted %v\n", kinds)
		return nil
	})
}
