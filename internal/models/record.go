package models

import "time"

// TradeRecord is the central entity: an alert, its resolved contract, and
// the mutable decision state driven by the cycle scheduler.
//
// Invariants:
//   - Status moves forward only: pending -> bought -> sold.
//   - Once ExitReason is set, SellPrice/SellTime/PnL are frozen.
//   - Qty > 0 and BuyPrice > 0 are required before Status = bought.
//   - CandleRatio is never recomputed after the record leaves pending.
//   - Slope fields are recomputed per cycle only while pending.
type TradeRecord struct {
	ID       string
	Alert    Alert
	Contract *OptionContract // nil when resolution failed

	Status        TradeStatus
	NoEntryReason NoEntryReason

	SlopeAngle     float64
	SlopeStatus    GateStatus
	SlopeDirection SlopeDirection

	CandleRatio  float64
	CandleStatus GateStatus

	Qty      int
	BuyPrice float64
	BuyTime  time.Time
	StopLoss float64

	SellPrice  float64
	SellTime   time.Time
	ExitReason ExitReason
	PnL        float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the record holds a live position.
func (r *TradeRecord) Open() bool {
	return r.Status == StatusBought
}

// Closed reports whether the record is terminal.
func (r *TradeRecord) Closed() bool {
	return r.Status == StatusSold
}

// MarkBought transitions a pending record to bought.
func (r *TradeRecord) MarkBought(qty int, price float64, at time.Time, stopLoss float64) {
	r.Status = StatusBought
	r.NoEntryReason = NoEntryNone
	r.Qty = qty
	r.BuyPrice = price
	r.BuyTime = at
	r.StopLoss = stopLoss
	r.UpdatedAt = at
}

// MarkSold transitions a bought record to sold and freezes the exit fields.
func (r *TradeRecord) MarkSold(reason ExitReason, price float64, at time.Time) {
	r.Status = StatusSold
	r.ExitReason = reason
	r.SellPrice = price
	r.SellTime = at
	r.PnL = (price - r.BuyPrice) * float64(r.Qty)
	r.UpdatedAt = at
}
