package models

import "time"

// OptionContract is a concrete tradable contract resolved for an alert.
// Immutable once attached to a TradeRecord.
type OptionContract struct {
	UnderlyingSymbol string
	Type             OptionType
	Strike           float64
	Expiry           time.Time
	TradingSymbol    string
	InstrumentKey    string
	LotSize          int
}

// OptionChain holds per-strike liquidity data for an underlying.
type OptionChain struct {
	Symbol    string
	SpotPrice float64
	Strikes   []OptionStrike
}

// OptionStrike represents a single strike in the option chain.
type OptionStrike struct {
	Strike float64
	Call   *OptionData
	Put    *OptionData
}

// OptionData represents market data for a single option contract.
type OptionData struct {
	LTP    float64
	OI     int64
	Volume int64
}

// Data returns the side of the strike matching the option type.
func (s OptionStrike) Data(t OptionType) *OptionData {
	if t == OptionPE {
		return s.Put
	}
	return s.Call
}
