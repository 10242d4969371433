package trading

import (
	"time"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// ExitRules evaluates the exit conditions for a bought record in fixed
// priority order: stop loss, VWAP cross, profit target. The unconditional
// time-based close is handled by the end-of-day sweep.
type ExitRules struct {
	ProfitMultiple float64           // e.g. 1.5 x buy price
	VWAPCrossFrom  utils.MinuteOfDay // VWAP-cross exits start here
}

// ExitInput carries the live market state for one exit decision.
type ExitInput struct {
	Record *models.TradeRecord
	Now    time.Time

	OptionLTP float64 // live option price; <= 0 means unavailable

	UnderlyingLTP  float64
	UnderlyingVWAP float64 // <= 0 means unavailable
}

// Evaluate returns the single winning exit condition for this pass, if
// any. Stop loss is checked before profit target even when both qualify.
func (r ExitRules) Evaluate(in ExitInput) (models.ExitReason, bool) {
	rec := in.Record
	if !rec.Open() {
		return models.ExitNone, false
	}

	if in.OptionLTP > 0 && in.OptionLTP <= rec.StopLoss {
		return models.ExitStopLoss, true
	}

	if utils.MinuteOf(in.Now) >= r.VWAPCrossFrom && r.vwapCrossed(rec, in) {
		return models.ExitVWAPCross, true
	}

	if in.OptionLTP > 0 && in.OptionLTP >= r.ProfitMultiple*rec.BuyPrice {
		return models.ExitProfitTarget, true
	}

	return models.ExitNone, false
}

// vwapCrossed reports whether the underlying moved to the unfavorable side
// of its VWAP for the held option type.
func (r ExitRules) vwapCrossed(rec *models.TradeRecord, in ExitInput) bool {
	if in.UnderlyingLTP <= 0 || in.UnderlyingVWAP <= 0 || rec.Contract == nil {
		return false
	}
	if rec.Contract.Type == models.OptionCE {
		return in.UnderlyingLTP < in.UnderlyingVWAP
	}
	return in.UnderlyingLTP > in.UnderlyingVWAP
}

// SweepPrice picks the close price for the end-of-day sweep in fallback
// order: fresh live quote, last recorded sell price, buy price. The
// returned label names which fallback fired, for logging.
func SweepPrice(rec *models.TradeRecord, liveLTP float64) (float64, string) {
	if liveLTP > 0 {
		return liveLTP, "live_quote"
	}
	if rec.SellPrice > 0 {
		return rec.SellPrice, "last_sell_price"
	}
	return rec.BuyPrice, "buy_price"
}
