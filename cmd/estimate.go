package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/pipeline"
)

var (
	flagEstPrompt     int64
	flagEstCandidates int64
	flagEstThinking   int64
	flagEstCached     int64
	flagEstTotal      int64
	flagEstFormat     string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Price a single set of token counts",
	Long: "Price one response's usage metadata. Output tokens are derived as\n" +
		"total - prompt - cached when positive, otherwise candidates + thinking.",
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().Int64Var(&flagEstPrompt, "prompt", 0, "Prompt token count")
	estimateCmd.Flags().Int64Var(&flagEstCandidates, "candidates", 0, "Candidates token count")
	estimateCmd.Flags().Int64Var(&flagEstThinking, "thinking", 0, "Thinking token count")
	estimateCmd.Flags().Int64Var(&flagEstCached, "cached", 0, "Cached content token count")
	estimateCmd.Flags().Int64Var(&flagEstTotal, "total", 0, "Total token count")
	estimateCmd.Flags().StringVar(&flagEstFormat, "format", "table", "Output format: table or json")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(_ *cobra.Command, _ []string) error {
	if flagEstFormat != "table" && flagEstFormat != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", flagEstFormat)
	}

	calc, err := newCalculator()
	if err != nil {
		return err
	}

	usage := model.TokenUsage{
		PromptTokenCount:        flagEstPrompt,
		CandidatesTokenCount:    flagEstCandidates,
		ThinkingTokensCount:     flagEstThinking,
		CachedContentTokenCount: flagEstCached,
		TotalTokenCount:         flagEstTotal,
	}
	b, ok := calc.Breakdown(flagModel, usage)
	if !ok {
		return fmt.Errorf("no pricing for model %q; see `agentcost pricing`", flagModel)
	}

	if flagEstFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	fmt.Println()
	fmt.Print(cli.RenderCostBreakdown(pipeline.AggregateTiers([]model.CostBreakdown{b}), b.TotalCost))
	return nil
}
