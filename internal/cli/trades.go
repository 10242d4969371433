package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"signal-trader/internal/models"
	"signal-trader/internal/store"
	"signal-trader/pkg/utils"
)

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Trade record inspection",
		Long:  "List trade records and daily summaries from the trade store.",
	}
	cmd.AddCommand(newTradesListCmd(app))
	cmd.AddCommand(newTradesSummaryCmd(app))
	return cmd
}

func newTradesListCmd(app *App) *cobra.Command {
	var (
		dayStr string
		status string
		stock  string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trade records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("trade store unavailable")
			}
			output := NewOutput(cmd)

			filter := store.RecordFilter{
				StockName: stock,
				Limit:     limit,
			}
			if dayStr != "" {
				day, err := time.ParseInLocation("2006-01-02", dayStr, utils.IndiaLocation)
				if err != nil {
					return fmt.Errorf("invalid --day: %w", err)
				}
				filter.Day = day
			}
			if status != "" {
				filter.Status = models.TradeStatus(status)
			}

			records, err := app.Store.GetRecords(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			table := NewTable(output, "STOCK", "TYPE", "SLOT", "STATUS", "BUY", "SELL", "EXIT", "P&L")
			for _, rec := range records {
				buy, sell, pnl := "-", "-", "-"
				if rec.BuyPrice > 0 {
					buy = fmt.Sprintf("%.2f", rec.BuyPrice)
				}
				if rec.Closed() {
					sell = fmt.Sprintf("%.2f", rec.SellPrice)
					pnl = output.FormatPnL(rec.PnL)
				}
				table.AddRow(
					rec.Alert.StockName,
					string(rec.Alert.Type),
					rec.Alert.Slot.Format("15:04"),
					string(rec.Status),
					buy,
					sell,
					string(rec.ExitReason),
					pnl,
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d record(s)", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&dayStr, "day", "", "filter by day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: pending, bought, sold")
	cmd.Flags().StringVar(&stock, "stock", "", "filter by stock name")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to show")

	return cmd
}

func newTradesSummaryCmd(app *App) *cobra.Command {
	var dayStr string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the daily trade summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("trade store unavailable")
			}
			output := NewOutput(cmd)

			day := time.Now().In(utils.IndiaLocation)
			if dayStr != "" {
				parsed, err := time.ParseInLocation("2006-01-02", dayStr, utils.IndiaLocation)
				if err != nil {
					return fmt.Errorf("invalid --day: %w", err)
				}
				day = parsed
			}

			summary, err := app.Store.DailySummary(cmd.Context(), day)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Summary for %s", day.Format("2006-01-02"))
			output.Printf("  Total:    %d\n", summary.Total)
			output.Printf("  Pending:  %d\n", summary.Pending)
			output.Printf("  Bought:   %d\n", summary.Bought)
			output.Printf("  Sold:     %d\n", summary.Sold)
			output.Printf("  Gross P&L: %s\n", output.FormatPnL(summary.GrossPnL))
			return nil
		},
	}

	cmd.Flags().StringVar(&dayStr, "day", "", "summary day (YYYY-MM-DD, default: today)")
	return cmd
}
