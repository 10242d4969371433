package trading

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/internal/broker"
	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// otmDepth is how many out-of-the-money strikes are considered (OTM-1..OTM-5).
const otmDepth = 5

// nearExpiryScore is the score floor for instruments whose expiry falls
// within a week of the target month rather than inside it.
const nearExpiryScore = 1000

// expirySlackDays widens the target month by this many days on both sides.
const expirySlackDays = 7

// ContractResolver maps (symbol, option type, spot price) to a concrete
// tradable contract.
type ContractResolver struct {
	gateway broker.Gateway
	logger  zerolog.Logger
	now     func() time.Time
}

// NewContractResolver creates a contract resolver.
func NewContractResolver(gateway broker.Gateway, logger zerolog.Logger) *ContractResolver {
	return &ContractResolver{gateway: gateway, logger: logger, now: time.Now}
}

// Resolve picks the most liquid near-the-money OTM strike from the option
// chain and locates the matching instrument in the broker universe. Any
// failure returns an error; the caller treats that as no-entry, not fatal.
func (r *ContractResolver) Resolve(ctx context.Context, symbol string, optType models.OptionType, spot float64) (*models.OptionContract, error) {
	chain, err := r.gateway.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching option chain for %s: %w", symbol, err)
	}

	strike, err := r.selectStrike(chain, optType, spot)
	if err != nil {
		return nil, err
	}

	expiry := r.targetExpiry()
	contract, err := r.findInstrument(ctx, symbol, optType, strike, expiry)
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// selectStrike keeps the five closest out-of-the-money strikes and picks
// the one with the highest volume x open-interest liquidity score. Ties
// keep the earlier (closest to spot) strike; that tie-break is deliberate.
func (r *ContractResolver) selectStrike(chain *models.OptionChain, optType models.OptionType, spot float64) (float64, error) {
	var otm []models.OptionStrike
	for _, s := range chain.Strikes {
		if optType == models.OptionCE && s.Strike > spot {
			otm = append(otm, s)
		} else if optType == models.OptionPE && s.Strike < spot {
			otm = append(otm, s)
		}
	}
	if len(otm) == 0 {
		return 0, fmt.Errorf("no out-of-the-money strikes for %s %s at spot %.2f", chain.Symbol, optType, spot)
	}

	sort.SliceStable(otm, func(i, j int) bool {
		return math.Abs(otm[i].Strike-spot) < math.Abs(otm[j].Strike-spot)
	})
	if len(otm) > otmDepth {
		otm = otm[:otmDepth]
	}

	best := otm[0]
	bestScore := liquidityScore(best, optType)
	for _, s := range otm[1:] {
		if score := liquidityScore(s, optType); score > bestScore {
			best, bestScore = s, score
		}
	}
	return best.Strike, nil
}

func liquidityScore(s models.OptionStrike, optType models.OptionType) float64 {
	data := s.Data(optType)
	if data == nil {
		return 0
	}
	return float64(data.Volume) * float64(data.OI)
}

// targetExpiry picks the expiry month: past the 17th the current monthly
// contract is too close to expiry, so roll to the next month.
func (r *ContractResolver) targetExpiry() time.Time {
	now := r.now().In(utils.IndiaLocation)
	if now.Day() > 17 {
		now = now.AddDate(0, 1, 0)
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, utils.IndiaLocation)
}

// findInstrument searches the option universe for the target strike and
// expiry month. An exact strike in the exact month returns immediately on
// first hit; otherwise the lowest-scoring instrument within tolerance is
// used, where a near-month expiry scores 1000 plus the strike distance.
func (r *ContractResolver) findInstrument(ctx context.Context, symbol string, optType models.OptionType, targetStrike float64, targetMonth time.Time) (*models.OptionContract, error) {
	instruments, err := r.gateway.GetInstruments(ctx, models.NFO)
	if err != nil {
		return nil, fmt.Errorf("fetching instrument universe: %w", err)
	}

	tolerance := math.Max(targetStrike*0.01, 10)
	monthStart := targetMonth
	monthEnd := targetMonth.AddDate(0, 1, 0).Add(-time.Second)

	var best *models.Instrument
	bestScore := math.Inf(1)

	for i := range instruments {
		inst := &instruments[i]
		if inst.Name != symbol || inst.InstrType != string(optType) {
			continue
		}
		if !strings.Contains(inst.Segment, "OPT") {
			continue
		}

		strikeDiff := math.Abs(inst.Strike - targetStrike)
		if strikeDiff > tolerance {
			continue
		}

		var score float64
		switch {
		case sameMonth(inst.Expiry, targetMonth):
			if strikeDiff == 0 {
				// First exact strike+month hit wins outright; the scan
				// does not continue looking for a globally better row.
				return contractFrom(inst, symbol, optType), nil
			}
			score = strikeDiff
		case withinSlack(inst.Expiry, monthStart, monthEnd):
			score = nearExpiryScore + strikeDiff
		default:
			continue
		}

		if score < bestScore {
			best, bestScore = inst, score
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no instrument within tolerance for %s %s strike %.2f", symbol, optType, targetStrike)
	}

	if bestScore >= nearExpiryScore {
		r.logger.Warn().
			Str("symbol", symbol).
			Float64("target_strike", targetStrike).
			Str("resolved", best.Symbol).
			Msg("Resolved contract via near-expiry fallback")
	}

	return contractFrom(best, symbol, optType), nil
}

func contractFrom(inst *models.Instrument, symbol string, optType models.OptionType) *models.OptionContract {
	return &models.OptionContract{
		UnderlyingSymbol: symbol,
		Type:             optType,
		Strike:           inst.Strike,
		Expiry:           inst.Expiry,
		TradingSymbol:    inst.Symbol,
		InstrumentKey:    inst.InstrumentKey(),
		LotSize:          inst.LotSize,
	}
}

func sameMonth(t, month time.Time) bool {
	t = t.In(utils.IndiaLocation)
	return t.Year() == month.Year() && t.Month() == month.Month()
}

func withinSlack(t, monthStart, monthEnd time.Time) bool {
	return !t.Before(monthStart.AddDate(0, 0, -expirySlackDays)) &&
		!t.After(monthEnd.AddDate(0, 0, expirySlackDays))
}
