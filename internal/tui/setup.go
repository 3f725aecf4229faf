package tui

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/agentcost/internal/config"
	"github.com/theirongolddev/agentcost/internal/tui/theme"
)

// ErrSetupAborted is returned when the user leaves the wizard early.
var ErrSetupAborted = errors.New("setup aborted")

// setupValues holds the raw answers of the setup form.
type setupValues struct {
	model         string
	transcriptDir string
	days          string
	theme         string
	logLevel      string
}

func setupValuesFrom(cfg config.Config) setupValues {
	return setupValues{
		model:         cfg.General.DefaultModel,
		transcriptDir: cfg.General.TranscriptDir,
		days:          strconv.Itoa(cfg.General.DefaultDays),
		theme:         cfg.Appearance.Theme,
		logLevel:      cfg.General.LogLevel,
	}
}

// apply writes the answers into cfg.
func (v setupValues) apply(cfg *config.Config) {
	cfg.General.DefaultModel = v.model
	cfg.General.TranscriptDir = v.transcriptDir
	if d, err := strconv.Atoi(v.days); err == nil && d > 0 {
		cfg.General.DefaultDays = d
	}
	cfg.Appearance.Theme = v.theme
	cfg.General.LogLevel = v.logLevel
}

func validateDir(s string) error {
	if s == "" {
		return nil
	}
	info, err := os.Stat(s)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // created on first use
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

func newSetupForm(models []string, transcripts int, vals *setupValues) *huh.Form {
	modelOpts := huh.NewOptions(models...)

	days := []huh.Option[string]{
		huh.NewOption("7 days", "7"),
		huh.NewOption("30 days", "30"),
		huh.NewOption("90 days", "90"),
	}

	welcome := "Pricing defaults and transcript location for agentcost."
	if transcripts > 0 {
		welcome = fmt.Sprintf("Found %d transcripts. %s", transcripts, welcome)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to agentcost").
				Description(welcome),
			huh.NewSelect[string]().
				Title("Default model").
				Description("Priced when a request does not name a model.").
				Options(modelOpts...).
				Value(&vals.model),
			huh.NewInput().
				Title("Transcript directory").
				Description("Leave empty for ~/.agentcost/transcripts.").
				Value(&vals.transcriptDir).
				Validate(validateDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default report window").
				Options(days...).
				Value(&vals.days),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.theme),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("error", "warn", "info", "debug")...).
				Value(&vals.logLevel),
		),
	).WithTheme(huh.ThemeCharm())
}

// RunSetup runs the first-run wizard and saves the answers to path.
// It returns the saved configuration.
func RunSetup(cfg config.Config, path string, transcripts int) (config.Config, error) {
	table, err := config.PricingTable(cfg)
	if err != nil {
		return cfg, err
	}

	vals := setupValuesFrom(cfg)
	form := newSetupForm(table.Models(), transcripts, &vals)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return cfg, ErrSetupAborted
		}
		return cfg, fmt.Errorf("setup form: %w", err)
	}

	vals.apply(&cfg)
	if err := config.SaveFile(path, cfg); err != nil {
		return cfg, fmt.Errorf("saving config: %w", err)
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, nil
}
