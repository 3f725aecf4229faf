package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment variables that take precedence over the config file.
const (
	EnvModel    = "AGENTCOST_MODEL"
	EnvLogLevel = "AGENTCOST_LOG_LEVEL"
	EnvDataDir  = "AGENTCOST_DATA_DIR"
)

// Config holds all agentcost configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Appearance AppearanceConfig `toml:"appearance"`
	Pricing    PricingOverrides `toml:"pricing"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultModel  string `toml:"default_model"`
	TranscriptDir string `toml:"transcript_dir,omitempty"`
	LogLevel      string `toml:"log_level"`
	DefaultDays   int    `toml:"default_days"`
}

// MonitorConfig holds settings for the HTTP monitor.
type MonitorConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// PricingOverrides allows user-defined pricing for specific models.
type PricingOverrides struct {
	Models map[string]ModelPricingOverride `toml:"models,omitempty"`
}

// ModelPricingOverride lists the tiers of one model, cheapest band first.
type ModelPricingOverride struct {
	Tiers []TierOverride `toml:"tiers"`
}

// TierOverride holds per-million-token prices for one tier.
type TierOverride struct {
	Name            string  `toml:"name,omitempty"`
	MaxPromptTokens int64   `toml:"max_prompt_tokens,omitempty"`
	InputPerMTok    float64 `toml:"input_per_mtok"`
	OutputPerMTok   float64 `toml:"output_per_mtok"`
	CachedPerMTok   float64 `toml:"cached_per_mtok"`
}

// Pricing converts the override into per-token model pricing.
func (o ModelPricingOverride) Pricing() ModelPricing {
	p := ModelPricing{Tiers: make([]Tier, 0, len(o.Tiers))}
	for i, t := range o.Tiers {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("tier%d", i+1)
		}
		p.Tiers = append(p.Tiers, Tier{
			Name:            name,
			MaxPromptTokens: t.MaxPromptTokens,
			Rates:           PerMTok(t.InputPerMTok, t.OutputPerMTok, t.CachedPerMTok),
		})
	}
	return p
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultModel: "gemini-2.5-pro",
			LogLevel:     "warn",
			DefaultDays:  30,
		},
		Monitor: MonitorConfig{
			Addr:         "127.0.0.1:8787",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentcost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "agentcost")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadDotEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debugf("config: ignoring .env: %v", err)
	}
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads config from path, returning defaults if it doesn't exist.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path, creating parent directories.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetDefaultModel returns the model from env var or config, in that order.
func GetDefaultModel(cfg Config) string {
	if m := os.Getenv(EnvModel); m != "" {
		return m
	}
	return cfg.General.DefaultModel
}

// GetLogLevel returns the log level from env var or config, in that order.
func GetLogLevel(cfg Config) string {
	if l := os.Getenv(EnvLogLevel); l != "" {
		return l
	}
	return cfg.General.LogLevel
}

// GetTranscriptDir returns the transcript directory from env var or config.
// Falls back to ~/.agentcost/transcripts.
func GetTranscriptDir(cfg Config) string {
	if d := os.Getenv(EnvDataDir); d != "" {
		return d
	}
	if cfg.General.TranscriptDir != "" {
		return cfg.General.TranscriptDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agentcost", "transcripts")
}

// PricingTable builds the effective pricing table for cfg.
func PricingTable(cfg Config) (*Table, error) {
	return NewTable(DefaultPricing, cfg.Pricing)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
