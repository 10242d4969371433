package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signal-trader/internal/models"
)

// PaperRouter simulates order placement without touching the broker.
// Fills are assumed at the price the caller quoted.
type PaperRouter struct {
	logger zerolog.Logger
}

// NewPaperRouter creates a paper trading order router.
func NewPaperRouter(logger zerolog.Logger) *PaperRouter {
	return &PaperRouter{logger: logger}
}

// PlaceBuy simulates a market buy order.
func (p *PaperRouter) PlaceBuy(ctx context.Context, contract models.OptionContract, qty int) (string, error) {
	return p.place(contract, qty, "BUY")
}

// PlaceSell simulates a market sell order.
func (p *PaperRouter) PlaceSell(ctx context.Context, contract models.OptionContract, qty int) (string, error) {
	return p.place(contract, qty, "SELL")
}

func (p *PaperRouter) place(contract models.OptionContract, qty int, side string) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("invalid quantity: %d", qty)
	}

	orderID := "PAPER-" + uuid.NewString()[:8]
	p.logger.Info().
		Str("event", "paper_order").
		Str("order_id", orderID).
		Str("symbol", contract.TradingSymbol).
		Str("side", side).
		Int("quantity", qty).
		Msg("Paper order filled")

	return orderID, nil
}
