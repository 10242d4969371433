package broker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// ResilientGateway wraps a Gateway with the retry policy:
// rate-limited and transient failures back off exponentially, auth expiry
// gets exactly one refresh-then-retry, and permanent or not-found failures
// abort immediately.
type ResilientGateway struct {
	inner     Gateway
	refresher SessionRefresher
	limiter   *rate.Limiter
	retryCfg  utils.RetryConfig
	logger    zerolog.Logger
}

// NewResilientGateway wraps a gateway with retries and client-side rate limiting.
func NewResilientGateway(inner Gateway, refresher SessionRefresher, logger zerolog.Logger) *ResilientGateway {
	cfg := utils.DefaultRetryConfig()
	cfg.ShouldRetry = IsRetryable

	return &ResilientGateway{
		inner:     inner,
		refresher: refresher,
		limiter:   rate.NewLimiter(rate.Limit(3), 5), // Kite allows ~3 req/s
		retryCfg:  cfg,
		logger:    logger,
	}
}

// call runs one gateway operation under the retry policy.
func call[T any](ctx context.Context, g *ResilientGateway, op string, fn func() (T, error)) (T, error) {
	var zero T
	if err := g.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	start := time.Now()
	result, err := utils.RetryWithResult(ctx, g.retryCfg, fn)

	if err != nil && IsAuthExpired(err) && g.refresher != nil {
		g.logger.Warn().Str("op", op).Msg("Session expired, refreshing once")
		if rerr := g.refresher.RefreshSession(ctx); rerr == nil {
			result, err = fn()
		} else {
			g.logger.Error().Err(rerr).Msg("Session refresh failed")
		}
	}

	if err != nil {
		g.logger.Debug().Str("op", op).Dur("duration", time.Since(start)).Err(err).Msg("Gateway call failed")
		return zero, err
	}
	return result, nil
}

func (g *ResilientGateway) GetQuote(ctx context.Context, instrumentKey string) (*models.Quote, error) {
	return call(ctx, g, "quote", func() (*models.Quote, error) {
		return g.inner.GetQuote(ctx, instrumentKey)
	})
}

func (g *ResilientGateway) GetCandles(ctx context.Context, instrumentKey, interval string, daysBack int) ([]models.Candle, error) {
	return call(ctx, g, "candles", func() ([]models.Candle, error) {
		return g.inner.GetCandles(ctx, instrumentKey, interval, daysBack)
	})
}

func (g *ResilientGateway) GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	return call(ctx, g, "option_chain", func() (*models.OptionChain, error) {
		return g.inner.GetOptionChain(ctx, symbol)
	})
}

func (g *ResilientGateway) GetIndexTrend(ctx context.Context) (models.IndexTrend, error) {
	return call(ctx, g, "index_trend", func() (models.IndexTrend, error) {
		return g.inner.GetIndexTrend(ctx)
	})
}

func (g *ResilientGateway) GetVWAP(ctx context.Context, instrumentKey string, until time.Time) (models.VWAPSample, error) {
	return call(ctx, g, "vwap", func() (models.VWAPSample, error) {
		return g.inner.GetVWAP(ctx, instrumentKey, until)
	})
}

func (g *ResilientGateway) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	return call(ctx, g, "instruments", func() ([]models.Instrument, error) {
		return g.inner.GetInstruments(ctx, exchange)
	})
}
