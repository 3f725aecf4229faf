package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default model:     %s\n", config.GetDefaultModel(cfg))
	fmt.Printf("    Transcripts:       %s\n", config.GetTranscriptDir(cfg))
	fmt.Printf("    Default days:      %d\n", cfg.General.DefaultDays)
	fmt.Printf("    Log level:         %s\n", config.GetLogLevel(cfg))
	fmt.Println()

	fmt.Println("  [Monitor]")
	fmt.Printf("    Address:           %s\n", cfg.Monitor.Addr)
	fmt.Printf("    Events buffer:     %d\n", cfg.Monitor.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Pricing]")
	if len(cfg.Pricing.Models) == 0 {
		fmt.Println("    Overrides: none (built-in prices)")
	} else {
		names := make([]string, 0, len(cfg.Pricing.Models))
		for name := range cfg.Pricing.Models {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("    Override: %s (%d tiers)\n", name, len(cfg.Pricing.Models[name].Tiers))
		}
	}
	fmt.Println()

	fmt.Println("  Run `agentcost setup` to reconfigure.")
	return nil
}
