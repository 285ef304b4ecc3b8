package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/penwyp/go-ontrack/internal/core/constants"
	"github.com/penwyp/go-ontrack/internal/data/chart"
	"github.com/penwyp/go-ontrack/internal/presentation/formatter"
	"github.com/penwyp/go-ontrack/internal/util"
	"github.com/spf13/cobra"
)

var (
	reportFrom          string
	reportTo            string
	reportStep          string
	reportPrograms      string
	reportOutput        string
	reportSplitCategory bool
	reportSplitProgram  bool
	reportTop           int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report recorded time as charts and summaries",
}

var reportActivityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Time per hour or day, optionally split by category or program",
	Long: `Buckets recorded time over a time range.

--from and --to accept YYYY-MM-DD[THH:MM], "now", or a span looking back
from now such as 12h, 7d or 2w. They default to the first and last recorded
bucket. --step is hour, day, or a duration such as 6h or 2d.`,
	Args: cobra.NoArgs,
	RunE: runReportActivity,
}

var reportPieCmd = &cobra.Command{
	Use:   "pie",
	Short: "Share of time per program or category over a time range",
	Args:  cobra.NoArgs,
	RunE:  runReportPie,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Totals per category and top programs",
	Args:  cobra.NoArgs,
	RunE:  runReportSummary,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportActivityCmd, reportPieCmd, reportSummaryCmd)

	for _, c := range []*cobra.Command{reportActivityCmd, reportPieCmd} {
		c.Flags().StringVar(&reportFrom, "from", "",
			"Start of the range (YYYY-MM-DD[THH:MM], now, or a span like 7d)")
		c.Flags().StringVar(&reportTo, "to", "",
			"End of the range, exclusive")
		c.Flags().StringVar(&reportPrograms, "program", "",
			"Comma-separated program ids (default: all visible programs)")
		c.Flags().StringVarP(&reportOutput, "output", "o", "table",
			"Output format (table, json, csv)")
		c.Flags().BoolVar(&reportSplitCategory, "split-category", false,
			"Split by category")
	}
	reportActivityCmd.Flags().StringVar(&reportStep, "step", "hour",
		"Bucket size (hour, day, or a duration like 6h, 2d)")
	reportActivityCmd.Flags().BoolVar(&reportSplitProgram, "split-program", false,
		"Stack bars per program")
	reportSummaryCmd.Flags().IntVar(&reportTop, "top", 10,
		"Number of programs to list (0 = all)")
}

func runReportActivity(cmd *cobra.Command, args []string) error {
	step, err := parseStep(reportStep)
	if err != nil {
		return err
	}
	f, err := formatter.New(reportOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p, st, err := openProfile()
	if err != nil {
		return err
	}
	defer st.Close()

	start, end, err := parseRange(reportFrom, reportTo)
	if err != nil {
		return err
	}
	c, err := chart.BuildActivityChart(p, chart.Request{
		Start:           start,
		End:             end,
		Step:            step,
		SplitByCategory: reportSplitCategory,
		SplitByProgram:  reportSplitProgram,
		Programs:        splitList(reportPrograms),
	})
	if err != nil {
		return err
	}
	util.LogDebug("Activity chart built",
		util.F("kind", string(c.Kind)), util.F("buckets", c.NumBuckets()))
	return f.FormatActivity(c)
}

func runReportPie(cmd *cobra.Command, args []string) error {
	f, err := formatter.New(reportOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p, st, err := openProfile()
	if err != nil {
		return err
	}
	defer st.Close()

	start, end, err := parseRange(reportFrom, reportTo)
	if err != nil {
		return err
	}
	pie, err := chart.BuildPie(p, chart.PieRequest{
		Start:           start,
		End:             end,
		SplitByCategory: reportSplitCategory,
		Programs:        splitList(reportPrograms),
	})
	if err != nil {
		return err
	}
	return f.FormatPie(pie)
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	p, st, err := openProfile()
	if err != nil {
		return err
	}
	defer st.Close()
	return formatter.NewSummaryFormatter(cmd.OutOrStdout(), reportTop).Format(p)
}

// parseStep accepts hour, day, a Go duration or a day/week span.
func parseStep(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour", "hourly", "h":
		return constants.HourBucket, nil
	case "day", "daily", "d":
		return constants.DayBucket, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	d, err := util.ParseSpan(s)
	if err != nil {
		return 0, fmt.Errorf("invalid step %q: want hour, day or a duration like 6h", s)
	}
	return d, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	now := util.GetTimeProvider().Now()
	start, err := util.ParseTimeArg(from, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	end, err := util.ParseTimeArg(to, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	return start, end, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
