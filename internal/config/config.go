// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig `mapstructure:"trading"`
	Entry       EntryConfig   `mapstructure:"entry"`
	Exit        ExitConfig    `mapstructure:"exit"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Credentials Credentials   `mapstructure:"-"` // Loaded separately
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode         string `mapstructure:"mode"`          // "live", "paper"
	DatabasePath string `mapstructure:"database_path"` // SQLite trade store
	Instruments  string `mapstructure:"instruments"`   // optional instrument dump CSV
}

// EntryConfig holds the entry gate thresholds.
type EntryConfig struct {
	SlopeThresholdDegrees float64  `mapstructure:"slope_threshold_degrees"`
	SlopeScalePerHour     float64  `mapstructure:"slope_scale_per_hour"`
	MaxCandleRatio        float64  `mapstructure:"max_candle_ratio"`
	CutoffHour            int      `mapstructure:"cutoff_hour"`
	CutoffMinute          int      `mapstructure:"cutoff_minute"`
	ExtendedSessionDates  []string `mapstructure:"extended_session_dates"` // YYYY-MM-DD, cutoff waived
	IndexNeutralBandPct   float64  `mapstructure:"index_neutral_band_pct"`
}

// ExitConfig holds the exit rule parameters.
type ExitConfig struct {
	StopLossPercent  float64       `mapstructure:"stop_loss_percent"`
	ProfitMultiple   float64       `mapstructure:"profit_multiple"`
	SweepHour        int           `mapstructure:"sweep_hour"`
	SweepMinute      int           `mapstructure:"sweep_minute"`
	VWAPCrossFromHr  int           `mapstructure:"vwap_cross_from_hour"`
	VWAPCrossFromMin int           `mapstructure:"vwap_cross_from_minute"`
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	Kite KiteCredentials `mapstructure:"kite"`
}

// KiteCredentials holds Kite Connect API credentials.
type KiteCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	UserID     string `mapstructure:"user_id"`
	TOTPSecret string `mapstructure:"totp_secret"` // for 2FA code generation
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/signal-trader"
	}
	return filepath.Join(home, ".config", "signal-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.database_path", filepath.Join(DefaultConfigDir(), "trades.db"))

	v.SetDefault("entry.slope_threshold_degrees", 45.0)
	v.SetDefault("entry.slope_scale_per_hour", 0.002)
	v.SetDefault("entry.max_candle_ratio", 7.5)
	v.SetDefault("entry.cutoff_hour", 15)
	v.SetDefault("entry.cutoff_minute", 0)
	v.SetDefault("entry.index_neutral_band_pct", 0.05)

	v.SetDefault("exit.stop_loss_percent", 10.0)
	v.SetDefault("exit.profit_multiple", 1.5)
	v.SetDefault("exit.sweep_hour", 15)
	v.SetDefault("exit.sweep_minute", 25)
	v.SetDefault("exit.vwap_cross_from_hour", 11)
	v.SetDefault("exit.vwap_cross_from_minute", 15)
	v.SetDefault("exit.monitor_interval", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_API_SECRET"); v != "" {
		cfg.Credentials.Kite.APISecret = v
	}
	if v := os.Getenv("KITE_USER_ID"); v != "" {
		cfg.Credentials.Kite.UserID = v
	}
	if v := os.Getenv("KITE_TOTP_SECRET"); v != "" {
		cfg.Credentials.Kite.TOTPSecret = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Entry.SlopeThresholdDegrees <= 0 || c.Entry.SlopeThresholdDegrees >= 90 {
		return fmt.Errorf("slope_threshold_degrees must be between 0 and 90")
	}
	if c.Entry.MaxCandleRatio <= 0 {
		return fmt.Errorf("max_candle_ratio must be positive")
	}
	if c.Exit.StopLossPercent <= 0 || c.Exit.StopLossPercent >= 100 {
		return fmt.Errorf("stop_loss_percent must be between 0 and 100")
	}
	if c.Exit.ProfitMultiple <= 1 {
		return fmt.Errorf("profit_multiple must be greater than 1")
	}
	for _, d := range c.Entry.ExtendedSessionDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid extended_session_dates entry %q: %w", d, err)
		}
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode != "live"
}

// IsExtendedSessionDate reports whether the entry cutoff is waived for the
// given day, e.g. an exchange-announced special session.
func (c *Config) IsExtendedSessionDate(t time.Time) bool {
	day := t.Format("2006-01-02")
	for _, d := range c.Entry.ExtendedSessionDates {
		if d == day {
			return true
		}
	}
	return false
}
