// Package cli provides the command-line interface for the trading engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signal-trader/internal/broker"
	"signal-trader/internal/config"
	"signal-trader/internal/logging"
	"signal-trader/internal/store"
	"signal-trader/internal/trading"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-07-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Kite    *broker.KiteGateway
	Gateway broker.Gateway
	Router  broker.OrderRouter
	Store   store.TradeStore
	Engine  *trading.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	kite := broker.NewKiteGateway(broker.KiteConfig{
		APIKey:         cfg.Credentials.Kite.APIKey,
		APISecret:      cfg.Credentials.Kite.APISecret,
		UserID:         cfg.Credentials.Kite.UserID,
		TOTPSecret:     cfg.Credentials.Kite.TOTPSecret,
		NeutralBandPct: cfg.Entry.IndexNeutralBandPct,
	})
	app.Kite = kite
	app.Gateway = broker.NewResilientGateway(kite, kite, logger)

	if cfg.Trading.Instruments != "" {
		if instruments, err := broker.LoadInstrumentsCSV(cfg.Trading.Instruments); err != nil {
			logger.Warn().Err(err).Str("path", cfg.Trading.Instruments).Msg("Instrument CSV load failed")
		} else {
			kite.SeedInstruments(instruments)
			logger.Debug().Int("count", len(instruments)).Msg("Instrument universe seeded from CSV")
		}
	}

	if cfg.IsPaperMode() {
		app.Router = broker.NewPaperRouter(logger)
		logger.Debug().Msg("Paper order router initialized")
	} else {
		app.Router = kite
		logger.Debug().Msg("Live order router initialized")
	}

	if tradeStore, err := store.NewSQLiteStore(cfg.Trading.DatabasePath); err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize trade store, trading commands unavailable")
	} else {
		app.Store = tradeStore
		app.Engine = trading.NewEngine(cfg, app.Gateway, app.Router, tradeStore, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "signal-trader",
		Short: "Signal Trader - directional alerts to option trades",
		Long: `Signal Trader converts directional stock alerts into option-contract
trades on the Indian market. Webhook alerts are normalized into fixed
time slots, resolved to liquid out-of-the-money contracts, gated on VWAP
slope and candle size, and managed through a fixed-cycle scheduler with
stop-loss, VWAP-cross, profit-target and end-of-day exits.

Use 'signal-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/signal-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newSessionCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newIngestCmd(app))
	rootCmd.AddCommand(newCycleCmd(app))
	rootCmd.AddCommand(newSweepCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newResolveCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Signal Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Trading")
	output.Printf("  Mode:              %s\n", cfg.Trading.Mode)
	output.Printf("  Database:          %s\n", cfg.Trading.DatabasePath)
	output.Println()

	output.Bold("Entry Gates")
	output.Printf("  Slope Threshold:   %.1f°\n", cfg.Entry.SlopeThresholdDegrees)
	output.Printf("  Slope Scale:       %.4f /hr\n", cfg.Entry.SlopeScalePerHour)
	output.Printf("  Max Candle Ratio:  %.1f\n", cfg.Entry.MaxCandleRatio)
	output.Printf("  Entry Cutoff:      %02d:%02d\n", cfg.Entry.CutoffHour, cfg.Entry.CutoffMinute)
	output.Println()

	output.Bold("Exit Rules")
	output.Printf("  Stop Loss:         %.1f%%\n", cfg.Exit.StopLossPercent)
	output.Printf("  Profit Multiple:   %.1fx\n", cfg.Exit.ProfitMultiple)
	output.Printf("  VWAP Cross From:   %02d:%02d\n", cfg.Exit.VWAPCrossFromHr, cfg.Exit.VWAPCrossFromMin)
	output.Printf("  EOD Sweep:         %02d:%02d\n", cfg.Exit.SweepHour, cfg.Exit.SweepMinute)
	output.Printf("  Monitor Interval:  %s\n", cfg.Exit.MonitorInterval)
}
