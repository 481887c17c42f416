package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/service"
)

var (
	reportKind  string
	reportScope string
	reportDate  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print recorded intervals and rollups",
}

var reportDetailsCmd = &cobra.Command{
	Use:   "details",
	Short: "List focus or rest records",
	RunE:  runReportDetails,
}

var reportRollupsCmd = &cobra.Command{
	Use:   "rollups",
	Short: "List daily, weekly or monthly totals",
	RunE:  runReportRollups,
}

func init() {
	reportDetailsCmd.Flags().StringVarP(&reportKind, "kind", "k", "focus", "Record kind (focus, rest)")
	reportDetailsCmd.Flags().StringVarP(&reportScope, "scope", "s", "daily", "Period scope (daily, weekly, monthly)")
	reportDetailsCmd.Flags().StringVarP(&reportDate, "date", "d", "", "Reference date YYYY-MM-DD (default today)")

	reportRollupsCmd.Flags().StringVarP(&reportKind, "kind", "k", "daily", "Rollup kind (daily, weekly, monthly)")
	reportRollupsCmd.Flags().StringVarP(&reportScope, "scope", "s", "monthly", "Period scope (daily, weekly, monthly)")
	reportRollupsCmd.Flags().StringVarP(&reportDate, "date", "d", "", "Reference date YYYY-MM-DD (default today)")

	reportCmd.AddCommand(reportDetailsCmd, reportRollupsCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReportDetails(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseRecordKind(reportKind)
	if err != nil {
		return err
	}
	scope, err := model.ParseReportKind(reportScope)
	if err != nil {
		return err
	}

	return withReports(cmd, func(reports *service.ReportService) error {
		date, apiErr := reports.ParseDate(reportDate)
		if apiErr != nil {
			return apiErr
		}
		view, apiErr := reports.Details(cmd.Context(), kind, scope, date)
		if apiErr != nil {
			return apiErr
		}
		printDetails(cmd.OutOrStdout(), kind, view)
		return nil
	})
}

func runReportRollups(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseReportKind(reportKind)
	if err != nil {
		return err
	}
	scope, err := model.ParseReportKind(reportScope)
	if err != nil {
		return err
	}

	return withReports(cmd, func(reports *service.ReportService) error {
		date, apiErr := reports.ParseDate(reportDate)
		if apiErr != nil {
			return apiErr
		}
		view, apiErr := reports.Rollups(cmd.Context(), kind, scope, date)
		if apiErr != nil {
			return apiErr
		}
		printRollups(cmd.OutOrStdout(), kind, view)
		return nil
	})
}

func withReports(cmd *cobra.Command, fn func(*service.ReportService) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	application, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()
	return fn(application.reports)
}

func printDetails(out io.Writer, kind model.RecordKind, view *service.DetailsView) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(out)
	cyan.Fprintf(out, "%s RECORDS (%s)\n", strings.ToUpper(string(kind)), view.Timezone)
	fmt.Fprintln(out)

	if len(view.Records) == 0 {
		yellow.Fprintln(out, "No records")
	}
	total := 0
	for _, record := range view.Records {
		fmt.Fprintf(out, "%s  ", record.StartLocalTimestamp.Format("2006-01-02 15:04"))
		green.Fprintf(out, "%3d min\n", record.DurationMinutes)
		total += record.DurationMinutes
	}

	fmt.Fprintln(out)
	cyan.Fprint(out, "Total:  ")
	fmt.Fprintf(out, "%d min\n", total)
	printStale(out, view.Stale)
}

func printRollups(out io.Writer, kind model.ReportKind, view *service.RollupsView) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(out)
	cyan.Fprintf(out, "%s TOTALS (%s)\n", strings.ToUpper(string(kind)), view.Timezone)
	fmt.Fprintln(out)

	if len(view.Rollups) == 0 {
		yellow.Fprintln(out, "No rollups")
	}
	for _, rollup := range view.Rollups {
		fmt.Fprintf(out, "%-10s  focus ", rollup.Key)
		green.Fprintf(out, "%4d min", rollup.FocusTotalMinutes)
		fmt.Fprint(out, "  rest ")
		yellow.Fprintf(out, "%4d min\n", rollup.RestTotalMinutes)
	}
	printStale(out, view.Stale)
}

func printStale(out io.Writer, stale bool) {
	if stale {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintln(out, "Some intervals failed to record; totals may be incomplete")
	}
	fmt.Fprintln(out)
}
