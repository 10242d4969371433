package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Signal Trader Configuration

[trading]
# Trading mode: "live" or "paper"
mode = "paper"
# SQLite trade store path
# database_path = "~/.config/signal-trader/trades.db"
# Optional broker instrument dump (CSV). When unset the dump is fetched live.
# instruments = "~/.config/signal-trader/instruments.csv"

[entry]
# Minimum VWAP slope angle in degrees
slope_threshold_degrees = 45.0
# Price-normalization scale applied per hour when computing the slope
slope_scale_per_hour = 0.002
# Maximum current/prior session candle range ratio
max_candle_ratio = 7.5
# No entries at or after this wall-clock time (IST)
cutoff_hour = 15
cutoff_minute = 0
# Dates (YYYY-MM-DD) on which the cutoff is waived, e.g. special sessions
extended_session_dates = []
# Index move below this percent of open counts as neutral
index_neutral_band_pct = 0.05

[exit]
# Stop loss percent below buy price
stop_loss_percent = 10.0
# Profit target as a multiple of buy price
profit_multiple = 1.5
# End-of-day close sweep time (IST)
sweep_hour = 15
sweep_minute = 25
# VWAP-cross exits are evaluated only from this time (IST)
vwap_cross_from_hour = 11
vwap_cross_from_minute = 15
# Interval between exit checks for open positions
monitor_interval = "5m"

[logging]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# Signal Trader Credentials
# Keep this file private (chmod 600).

[kite]
api_key = ""
api_secret = ""
user_id = ""
# TOTP secret for 2FA code generation during login
totp_secret = ""
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.toml", configTemplate, 0644)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
}

func writeTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
