package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"signal-trader/internal/models"
	"signal-trader/internal/trading"
)

func newResolveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <symbol> <CE|PE> <spot-price>",
		Short: "Resolve an option contract for a symbol",
		Long: `Resolve a symbol, option type and spot price to a tradable contract:
the most liquid of the five nearest out-of-the-money strikes, in the
target expiry month.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			symbol := strings.ToUpper(args[0])
			optType := models.OptionType(strings.ToUpper(args[1]))
			if optType != models.OptionCE && optType != models.OptionPE {
				return fmt.Errorf("option type must be CE or PE, got %q", args[1])
			}
			spot, err := strconv.ParseFloat(args[2], 64)
			if err != nil || spot <= 0 {
				return fmt.Errorf("invalid spot price %q", args[2])
			}

			resolver := trading.NewContractResolver(app.Gateway, app.Logger)
			contract, err := resolver.Resolve(cmd.Context(), symbol, optType, spot)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(contract)
			}

			output.Bold("%s", contract.TradingSymbol)
			output.Printf("  Underlying:  %s\n", contract.UnderlyingSymbol)
			output.Printf("  Type:        %s\n", contract.Type)
			output.Printf("  Strike:      %.2f\n", contract.Strike)
			output.Printf("  Expiry:      %s\n", contract.Expiry.Format("2006-01-02"))
			output.Printf("  Lot Size:    %d\n", contract.LotSize)
			output.Printf("  Key:         %s\n", contract.InstrumentKey)
			return nil
		},
	}
}
