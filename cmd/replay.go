package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/monitor"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/replay"
	"github.com/theirongolddev/agentcost/internal/source"
)

var (
	flagReplayDelay  time.Duration
	flagReplayFormat string
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Price a recorded transcript call by call",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().DurationVar(&flagReplayDelay, "delay", 0, "Pause between calls")
	replayCmd.Flags().StringVar(&flagReplayFormat, "format", "table", "Output format: table or json")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	if flagReplayFormat != "table" && flagReplayFormat != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", flagReplayFormat)
	}

	path := args[0]
	pr := source.ParseFile(source.DiscoveredFile{Path: path, SessionID: source.SessionIDFor(path)})
	if pr.Err != nil {
		return pr.Err
	}
	if pr.ParseErrors > 0 {
		fmt.Fprintf(os.Stderr, "  %d malformed lines were skipped\n", pr.ParseErrors)
	}

	ls, err := newLiveSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var total replay.Stats
	for i, c := range pr.Calls {
		if i > 0 && flagReplayDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(flagReplayDelay):
			}
		}
		stats, err := replay.Drive(ctx, ls.rec, ls.gen, []source.Call{c})
		total.Calls += stats.Calls
		total.Chunks += stats.Chunks
		total.Responses += stats.Responses
		if err != nil {
			return err
		}
		if flagReplayDelay > 0 && !flagQuiet {
			fmt.Fprintf(os.Stderr, "\r  Replaying %s  %s", cli.RenderProgressBar(i+1, len(pr.Calls), 30),
				cli.FormatCostPrecise(ls.tracker.TotalCost(), 4))
		}
	}
	if flagReplayDelay > 0 && !flagQuiet && len(pr.Calls) > 0 {
		fmt.Fprintln(os.Stderr)
	}

	history := ls.tracker.History()
	if history == nil {
		history = []model.CostBreakdown{}
	}
	tiers := pipeline.AggregateTiers(history)

	if flagReplayFormat == "json" {
		out := monitor.Breakdowns{
			Breakdowns: history,
			Tiers:      tiers,
			TotalCost:  ls.tracker.TotalCost(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println()
	fmt.Print(cli.RenderCostBreakdown(tiers, ls.tracker.TotalCost()))
	fmt.Println()
	fmt.Print(ls.summary("Replay complete", total))
	return nil
}
