package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/pipeline"
)

var flagReportSessions int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Cost report across recorded transcripts",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&flagReportSessions, "sessions", 10, "Number of most expensive sessions to list")
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, _ []string) error {
	calc, err := newCalculator()
	if err != nil {
		return err
	}
	result, err := loadData(calc)
	if err != nil {
		return err
	}

	if len(result.Sessions) == 0 {
		fmt.Printf("\n  No transcripts found in %s.\n", flagDataDir)
		return nil
	}

	filtered, since, until := applyFilters(result.Sessions)
	stats := pipeline.Aggregate(filtered, since, until)
	if stats.Sessions == 0 {
		fmt.Println("\n  No sessions in the selected time range.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("AGENT COST  Last %dd", flagDays)))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Sessions", cli.FormatNumber(int64(stats.Sessions))},
			{"Calls", cli.FormatNumber(int64(stats.Calls))},
			{"Priced Responses", cli.FormatNumber(int64(stats.Records - stats.Unpriced))},
			{"---"},
			{"Prompt Tokens", cli.FormatTokens(stats.PromptTokens)},
			{"Billed Input", cli.FormatTokens(stats.BilledInput)},
			{"Output Tokens", cli.FormatTokens(stats.OutputTokens)},
			{"Cached Tokens", cli.FormatTokens(stats.CachedTokens)},
			{"Cache Hit Rate", cli.FormatPercent(stats.CacheHitRate)},
			{"---"},
			{"Cost (est)", cli.FormatCost(stats.TotalCost)},
			{"Cost/day", cli.FormatCost(stats.CostPerDay) + "/day"},
		},
	}))
	fmt.Println()

	breakdowns := pipeline.Breakdowns(filtered)
	printModels(pipeline.AggregateModels(breakdowns))
	fmt.Print(cli.RenderCostBreakdown(pipeline.AggregateTiers(breakdowns), stats.TotalCost))
	fmt.Println()
	printDays(pipeline.AggregateDays(filtered, since, until))
	printTopSessions(filtered, flagReportSessions)

	if stats.Unpriced > 0 {
		fmt.Fprintf(os.Stderr, "\n  %d responses used models without pricing and were not counted\n", stats.Unpriced)
	}
	if result.FileErrors > 0 {
		fmt.Fprintf(os.Stderr, "\n  %d files could not be parsed\n", result.FileErrors)
	}
	if result.ParseErrors > 0 {
		fmt.Fprintf(os.Stderr, "  %d malformed lines were skipped\n", result.ParseErrors)
	}
	return nil
}

func printModels(models []model.ModelStats) {
	if len(models) == 0 {
		return
	}
	rows := make([][]string, 0, len(models))
	for _, ms := range models {
		rows = append(rows, []string{
			ms.Model,
			cli.FormatNumber(int64(ms.Records)),
			cli.FormatTokens(ms.BilledInput),
			cli.FormatTokens(ms.OutputTokens),
			cli.FormatTokens(ms.CachedTokens),
			cli.FormatCost(ms.TotalCost),
			fmt.Sprintf("%.1f%%", ms.SharePercent),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Model",
		Headers: []string{"Model", "Calls", "Input", "Output", "Cached", "Cost", "Share"},
		Rows:    rows,
	}))
	fmt.Println()
}

func printDays(days []model.DailyStats) {
	if len(days) == 0 {
		return
	}

	// days is newest first; the sparkline reads left to right.
	costs := make([]float64, len(days))
	rows := make([][]string, 0, len(days))
	for i, d := range days {
		costs[len(days)-1-i] = d.TotalCost
		rows = append(rows, []string{
			d.Date.Format("2006-01-02 Mon"),
			cli.FormatNumber(int64(d.Sessions)),
			cli.FormatNumber(int64(d.Records)),
			cli.FormatTokens(d.PromptTokens),
			cli.FormatTokens(d.OutputTokens),
			cli.FormatCost(d.TotalCost),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Daily",
		Headers: []string{"Date", "Sessions", "Calls", "Prompt", "Output", "Cost"},
		Rows:    rows,
	}))
	fmt.Printf("  Cost trend  %s\n\n", cli.RenderSparkline(costs))
}

func printTopSessions(sessions []model.SessionCost, limit int) {
	if limit <= 0 || len(sessions) == 0 {
		return
	}
	top := pipeline.TopSessions(sessions, limit)

	rows := make([][]string, 0, len(top))
	for _, s := range top {
		start := ""
		if !s.StartTime.IsZero() {
			start = s.StartTime.Local().Format("Jan 02 15:04")
		}
		rows = append(rows, []string{
			s.SessionID,
			start,
			cli.FormatDuration(s.Duration()),
			cli.FormatNumber(int64(s.Calls)),
			cli.FormatCost(s.TotalCost),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Top %d Sessions", len(top)),
		Headers: []string{"Session", "Started", "Duration", "Calls", "Cost"},
		Rows:    rows,
	}))
}
