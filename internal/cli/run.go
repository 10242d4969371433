package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"signal-trader/internal/trading"
	"signal-trader/pkg/utils"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the cycle scheduler",
		Long: `Run the scheduler loop: fixed re-evaluation cycles through the
session, a periodic exit monitor, and the end-of-day sweep. Blocks until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Engine == nil {
				return fmt.Errorf("trade store unavailable")
			}

			output := NewOutput(cmd)
			if !app.Config.IsPaperMode() && !app.Kite.IsAuthenticated() {
				return fmt.Errorf("not authenticated, run 'session login' first")
			}

			sweepAt := utils.NewMinuteOfDay(app.Config.Exit.SweepHour, app.Config.Exit.SweepMinute)
			scheduler := trading.NewCycleScheduler(app.Engine, sweepAt, app.Config.Exit.MonitorInterval, app.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			output.Info("Scheduler running in %s mode, Ctrl-C to stop", app.Config.Trading.Mode)
			if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			output.Println()
			output.Info("Scheduler stopped")
			return nil
		},
	}
}

func newCycleCmd(app *App) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one re-evaluation cycle now",
		Long:  "Manually run one cycle pass against its reference slot, then check exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Engine == nil {
				return fmt.Errorf("trade store unavailable")
			}
			output := NewOutput(cmd)

			if index < 0 {
				index = currentCycleIndex(time.Now())
			}
			if err := app.Engine.RunCycle(cmd.Context(), index); err != nil {
				return err
			}
			output.Success("✓ Cycle %d completed", index)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "cycle index (default: latest elapsed cycle today)")
	return cmd
}

// currentCycleIndex picks the most recent cycle whose fire time has passed.
func currentCycleIndex(now time.Time) int {
	now = now.In(utils.IndiaLocation)
	idx := 0
	for i, cycle := range utils.CycleTimes {
		if !cycle.At(now).After(now) {
			idx = i
		}
	}
	return idx
}

func newSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Force-close all open positions now",
		Long:  "Run the end-of-day sweep immediately: every open position is sold time-based.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Engine == nil {
				return fmt.Errorf("trade store unavailable")
			}
			output := NewOutput(cmd)
			if err := app.Engine.RunSweep(cmd.Context()); err != nil {
				return err
			}
			output.Success("✓ Sweep completed")
			return nil
		},
	}
}
