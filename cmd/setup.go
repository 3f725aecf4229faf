package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/source"
	"github.com/theirongolddev/agentcost/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	files, _ := source.ScanDir(flagDataDir)

	saved, err := tui.RunSetup(cfg, config.ConfigPath(), len(files))
	if errors.Is(err, tui.ErrSetupAborted) {
		fmt.Println("\n  Setup aborted, nothing saved.")
		return nil
	}
	if err != nil {
		return err
	}
	cfg = saved

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `agentcost setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
