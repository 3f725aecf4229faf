// Package cmd implements the agentcost CLI commands.
package cmd

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/store"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

var (
	flagDays     int
	flagModel    string
	flagFilter   string
	flagNoCache  bool
	flagDataDir  string
	flagQuiet    bool
	flagLogLevel string
)

// cfg is the loaded configuration, set before any command runs.
var cfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "agentcost",
	Short: "Token cost accounting for AI agent sessions",
	Long: "Price the token usage of AI agent sessions: replay recorded transcripts,\n" +
		"follow live ones, and report cost by model and pricing tier.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runReport,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 0, "Time window in days (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model assumed for requests that name none")
	rootCmd.PersistentFlags().StringVar(&flagFilter, "filter", "", "Only include models matching this substring")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Transcript directory")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (error, warn, info, debug)")
}

// setup loads .env and config, then resolves flags that default from them.
// Precedence: flag, environment, config file, built-in default.
func setup(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv()

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	level := flagLogLevel
	if level == "" {
		level = config.GetLogLevel(cfg)
	}
	if err := configureLogging(level); err != nil {
		return err
	}

	if flagModel == "" {
		flagModel = config.GetDefaultModel(cfg)
	}
	if flagDataDir == "" {
		flagDataDir = config.GetTranscriptDir(cfg)
	}
	if flagDays <= 0 {
		flagDays = cfg.General.DefaultDays
	}
	if flagDays <= 0 {
		flagDays = 30
	}
	theme.SetActive(cfg.Appearance.Theme)

	log.WithField("command", cmd.Name()).
		WithField("data_dir", flagDataDir).
		WithField("model", flagModel).
		Debug("cmd: configured")
	return nil
}

func configureLogging(level string) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level == "" {
		level = "warn"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}

// newCalculator prices usage against the built-in table plus config overrides.
func newCalculator() (*pipeline.Calculator, error) {
	table, err := config.PricingTable(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewCalculator(table), nil
}

// loadData is the shared data loading path used by reporting commands.
// Uses SQLite cache when available for fast subsequent runs.
func loadData(calc *pipeline.Calculator) (*pipeline.LoadResult, error) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning transcripts in %s...\n", flagDataDir)
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%100 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing %s", cli.RenderProgressBar(current, total, 30))
		}
	}

	if !flagNoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			log.WithError(err).Debug("cmd: cache unavailable")
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
			}
		} else {
			defer func() { _ = cache.Close() }()

			cr, err := pipeline.LoadWithCache(flagDataDir, calc, cache, progressFn)
			if err != nil {
				log.WithError(err).Warn("cmd: cached load failed")
				if !flagQuiet {
					fmt.Fprintf(os.Stderr, "\n  Cache error, falling back to full parse\n")
				}
			} else {
				if cr.Pruned > 0 {
					log.WithField("files", cr.Pruned).Debug("cmd: pruned removed transcripts from cache")
				}
				if !flagQuiet && cr.TotalFiles > 0 {
					if cr.Reparsed == 0 {
						fmt.Fprintf(os.Stderr, "\r  Loaded %s transcripts from cache    \n",
							cli.FormatNumber(int64(len(cr.Sessions))))
					} else {
						fmt.Fprintf(os.Stderr, "\r  %s cached + %d reparsed    \n",
							cli.FormatNumber(int64(cr.CacheHits)), cr.Reparsed)
					}
				}
				return &cr.LoadResult, nil
			}
		}
	}

	result, err := pipeline.Load(flagDataDir, calc, progressFn)
	if err != nil {
		return nil, err
	}

	if !flagQuiet && result.TotalFiles > 0 {
		fmt.Fprintf(os.Stderr, "\r  Parsed %s transcripts    \n",
			cli.FormatNumber(int64(result.ParsedFiles)))
	}
	return result, nil
}

// applyFilters returns filtered sessions and the computed time range.
func applyFilters(sessions []model.SessionCost) ([]model.SessionCost, time.Time, time.Time) {
	now := time.Now()
	since := now.AddDate(0, 0, -flagDays)

	filtered := sessions
	if flagFilter != "" {
		filtered = pipeline.FilterByModel(filtered, flagFilter)
	}
	return pipeline.FilterByTime(filtered, since, now), since, now
}
