package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"signal-trader/internal/trading"
)

func newIngestCmd(app *App) *cobra.Command {
	var (
		scanName   string
		alertName  string
		forcedType string
		atStr      string
	)

	cmd := &cobra.Command{
		Use:   "ingest [payload-file]",
		Short: "Ingest a webhook alert payload",
		Long: `Ingest a raw webhook payload from a file or stdin. The payload is
normalized into per-stock alerts, each alert is resolved to a contract,
gated, and persisted as a trade record.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Engine == nil {
				return fmt.Errorf("trade store unavailable")
			}
			output := NewOutput(cmd)

			raw, err := readPayload(args)
			if err != nil {
				return err
			}

			meta := trading.AlertMeta{
				ScanName:   scanName,
				AlertName:  alertName,
				ForcedType: forcedType,
			}
			if atStr != "" {
				at, err := time.Parse(time.RFC3339, atStr)
				if err != nil {
					return fmt.Errorf("invalid --at timestamp: %w", err)
				}
				meta.TriggeredAt = at
			}

			records, err := app.Engine.IngestPayload(cmd.Context(), raw, meta)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			table := NewTable(output, "STOCK", "TYPE", "SLOT", "STATUS", "CONTRACT", "REASON")
			for _, rec := range records {
				contract := "-"
				if rec.Contract != nil {
					contract = rec.Contract.TradingSymbol
				}
				table.AddRow(
					rec.Alert.StockName,
					string(rec.Alert.Type),
					rec.Alert.Slot.Format("15:04"),
					string(rec.Status),
					contract,
					string(rec.NoEntryReason),
				)
			}
			table.Render()
			output.Println()
			output.Info("%d record(s) created", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&scanName, "scan", "", "scan name from the alert source")
	cmd.Flags().StringVar(&alertName, "alert", "", "alert name, used for direction inference")
	cmd.Flags().StringVar(&forcedType, "type", "", "force alert direction: bullish or bearish")
	cmd.Flags().StringVar(&atStr, "at", "", "trigger time (RFC3339, default: now)")

	return cmd
}

func readPayload(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading payload file: %w", err)
		}
		return raw, nil
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading payload from stdin: %w", err)
	}
	return raw, nil
}
