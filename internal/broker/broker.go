// Package broker provides market data and order routing integrations.
package broker

import (
	"context"
	"time"

	"signal-trader/internal/models"
)

// Gateway defines the market data operations the engine consumes.
type Gateway interface {
	// GetQuote fetches a live quote for an instrument key, e.g. "NSE:RELIANCE".
	GetQuote(ctx context.Context, instrumentKey string) (*models.Quote, error)

	// GetCandles fetches candles for the given interval covering daysBack
	// calendar days up to now.
	GetCandles(ctx context.Context, instrumentKey, interval string, daysBack int) ([]models.Candle, error)

	// GetOptionChain fetches the nearest-expiry option chain for an underlying.
	GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error)

	// GetIndexTrend returns the current NIFTY and BANKNIFTY trends.
	GetIndexTrend(ctx context.Context) (models.IndexTrend, error)

	// GetVWAP returns the session VWAP of an instrument computed over
	// intraday candles up to the given time.
	GetVWAP(ctx context.Context, instrumentKey string, until time.Time) (models.VWAPSample, error)

	// GetInstruments fetches the tradeable instrument universe for an exchange.
	GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error)
}

// OrderRouter places orders with the broker. Order placement is a thin
// pass-through; fills and order management stay with the broker.
type OrderRouter interface {
	PlaceBuy(ctx context.Context, contract models.OptionContract, qty int) (string, error)
	PlaceSell(ctx context.Context, contract models.OptionContract, qty int) (string, error)
}

// SessionRefresher renews an expired broker session.
type SessionRefresher interface {
	RefreshSession(ctx context.Context) error
}

// Candle intervals accepted by Gateway.GetCandles.
const (
	IntervalDay     = "1day"
	Interval15Min   = "15min"
	Interval5Min    = "5min"
	IntervalMinute  = "1min"
)
