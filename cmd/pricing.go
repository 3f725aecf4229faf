package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/config"
)

var flagPricingFormat string

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "List model prices per million tokens",
	RunE:  runPricing,
}

func init() {
	pricingCmd.Flags().StringVar(&flagPricingFormat, "format", "table", "Output format: table, json or yaml")
	rootCmd.AddCommand(pricingCmd)
}

type pricingTier struct {
	Name            string  `json:"name" yaml:"name"`
	MaxPromptTokens int64   `json:"max_prompt_tokens,omitempty" yaml:"max_prompt_tokens,omitempty"`
	InputPerMTok    float64 `json:"input_per_mtok" yaml:"input_per_mtok"`
	OutputPerMTok   float64 `json:"output_per_mtok" yaml:"output_per_mtok"`
	CachedPerMTok   float64 `json:"cached_per_mtok" yaml:"cached_per_mtok"`
}

type pricingEntry struct {
	Model string        `json:"model" yaml:"model"`
	Tiers []pricingTier `json:"tiers" yaml:"tiers"`
}

func perMTok(perToken float64) float64 {
	return decimal.NewFromFloat(perToken).Mul(decimal.NewFromInt(1_000_000)).Round(6).InexactFloat64()
}

func pricingEntries(table *config.Table) []pricingEntry {
	names := table.Models()
	entries := make([]pricingEntry, 0, len(names))
	for _, name := range names {
		p, _ := table.Lookup(name)
		e := pricingEntry{Model: name}
		for _, t := range p.Tiers {
			e.Tiers = append(e.Tiers, pricingTier{
				Name:            t.Name,
				MaxPromptTokens: t.MaxPromptTokens,
				InputPerMTok:    perMTok(t.Rates.Input),
				OutputPerMTok:   perMTok(t.Rates.Output),
				CachedPerMTok:   perMTok(t.Rates.Cached),
			})
		}
		entries = append(entries, e)
	}
	return entries
}

func runPricing(_ *cobra.Command, _ []string) error {
	table, err := config.PricingTable(cfg)
	if err != nil {
		return err
	}
	entries := pricingEntries(table)

	switch flagPricingFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(entries)
	case "table":
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", flagPricingFormat)
	}

	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		if i > 0 {
			rows = append(rows, []string{"---"})
		}
		for j, t := range e.Tiers {
			modelCell := ""
			if j == 0 {
				modelCell = e.Model
			}
			bound := "unbounded"
			if t.MaxPromptTokens > 0 {
				bound = "≤ " + cli.FormatTokens(t.MaxPromptTokens)
			}
			rows = append(rows, []string{
				modelCell,
				t.Name,
				bound,
				fmt.Sprintf("$%.3f", t.InputPerMTok),
				fmt.Sprintf("$%.3f", t.OutputPerMTok),
				fmt.Sprintf("$%.4f", t.CachedPerMTok),
			})
		}
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Pricing (USD per million tokens)",
		Headers: []string{"Model", "Tier", "Prompt", "Input", "Output", "Cached"},
		Rows:    rows,
	}))
	if len(cfg.Pricing.Models) > 0 {
		fmt.Printf("  %d model(s) overridden in %s\n", len(cfg.Pricing.Models), config.ConfigPath())
	}
	return nil
}
