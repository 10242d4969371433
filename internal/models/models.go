// Package models provides domain models for the signal trading engine.
package models

import (
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
)

// AlertType represents the direction of a stock alert.
type AlertType string

const (
	AlertBullish AlertType = "bullish"
	AlertBearish AlertType = "bearish"
)

// OptionType represents the option contract type.
type OptionType string

const (
	OptionCE OptionType = "CE"
	OptionPE OptionType = "PE"
)

// OptionTypeFor returns the option type traded for an alert direction.
func OptionTypeFor(t AlertType) OptionType {
	if t == AlertBearish {
		return OptionPE
	}
	return OptionCE
}

// TradeStatus represents the lifecycle state of a trade record.
// Transitions are forward-only: pending -> bought -> sold.
type TradeStatus string

const (
	StatusPending TradeStatus = "pending"
	StatusBought  TradeStatus = "bought"
	StatusSold    TradeStatus = "sold"
)

// NoEntryReason explains why a pending record has not entered.
type NoEntryReason string

const (
	NoEntryNone          NoEntryReason = ""
	NoEntryEnrichment    NoEntryReason = "enrichment_failed"
	NoEntryTimeCutoff    NoEntryReason = "time_cutoff"
	NoEntryIndexMisalign NoEntryReason = "index_misaligned"
	NoEntryCandleSize    NoEntryReason = "candle_size"
	NoEntryMissingOption NoEntryReason = "missing_option_data"
	NoEntryUnknown       NoEntryReason = "unknown"
)

// ExitReason explains why a bought record was closed.
type ExitReason string

const (
	ExitNone         ExitReason = ""
	ExitStopLoss     ExitReason = "stop_loss"
	ExitVWAPCross    ExitReason = "vwap_cross"
	ExitProfitTarget ExitReason = "profit_target"
	ExitTimeBased    ExitReason = "time_based"
)

// GateStatus represents the outcome of a per-cycle gate computation.
type GateStatus string

const (
	GatePending GateStatus = "pending"
	GatePass    GateStatus = "pass"
	GateFail    GateStatus = "fail"
)

// Trend represents a market index trend.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
	TrendUnknown Trend = "unknown"
)

// SlopeDirection represents the direction of a VWAP slope.
type SlopeDirection string

const (
	SlopeUpward   SlopeDirection = "upward"
	SlopeDownward SlopeDirection = "downward"
	SlopeFlat     SlopeDirection = "flat"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Quote represents a market quote.
type Quote struct {
	Symbol        string
	LTP           float64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	Change        float64
	ChangePercent float64
	Timestamp     time.Time
}

// VWAPSample is a volume-weighted average price observed at a point in time.
type VWAPSample struct {
	Value float64
	At    time.Time
}

// IndexTrend holds the broad-market trend used for entry alignment.
type IndexTrend struct {
	Nifty     Trend
	BankNifty Trend
}

// Instrument represents a tradeable instrument from the broker universe.
type Instrument struct {
	Token     uint32
	Symbol    string // trading symbol, e.g. RELIANCE24AUG3000CE
	Name      string // underlying name, e.g. RELIANCE
	Exchange  Exchange
	Segment   string
	LotSize   int
	TickSize  float64
	Expiry    time.Time
	Strike    float64
	InstrType string // CE, PE, FUT, EQ
}

/// InstrumentKey returns the broker key for an instrument, e.g. "NFO:RELIANCE24AUG3000CE".
func (i Instrument) InstrumentKey() string {
	return string(i.Exchange) + ":" + i.Symbol
}
