package trading

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

func testExitRules() ExitRules {
	return ExitRules{
		ProfitMultiple: 1.5,
		VWAPCrossFrom:  utils.NewMinuteOfDay(11, 15),
	}
}

func boughtRecord(optType models.OptionType) *models.TradeRecord {
	return &models.TradeRecord{
		ID:       "rec-1",
		Alert:    models.Alert{StockName: "RELIANCE", Type: models.AlertBullish},
		Contract: &models.OptionContract{TradingSymbol: "RELIANCE25JUL1510" + string(optType), Type: optType},
		Status:   models.StatusBought,
		Qty:      250,
		BuyPrice: 50,
		StopLoss: 45,
	}
}

func afternoon() time.Time {
	return time.Date(2025, 7, 7, 13, 0, 0, 0, utils.IndiaLocation)
}

func TestExitStopLoss(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)

	reason, fired := rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 45})
	assert.True(t, fired)
	assert.Equal(t, models.ExitStopLoss, reason)

	_, fired = rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 45.05})
	assert.False(t, fired)
}

func TestExitStopLossBeatsProfitTarget(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)
	rec.StopLoss = 80 // both conditions hold at LTP 80

	reason, fired := rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 80})
	assert.True(t, fired)
	assert.Equal(t, models.ExitStopLoss, reason)
}

func TestExitProfitTarget(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)

	reason, fired := rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 75})
	assert.True(t, fired)
	assert.Equal(t, models.ExitProfitTarget, reason)

	_, fired = rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 74.95})
	assert.False(t, fired)
}

func TestExitVWAPCrossTimeGate(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)

	in := ExitInput{
		Record:         rec,
		OptionLTP:      55,
		UnderlyingLTP:  1490,
		UnderlyingVWAP: 1500, // CE unfavorable: price below VWAP
	}

	in.Now = time.Date(2025, 7, 7, 11, 0, 0, 0, utils.IndiaLocation)
	_, fired := rules.Evaluate(in)
	assert.False(t, fired, "VWAP cross must not fire before the gate time")

	in.Now = time.Date(2025, 7, 7, 11, 15, 0, 0, utils.IndiaLocation)
	reason, fired := rules.Evaluate(in)
	assert.True(t, fired)
	assert.Equal(t, models.ExitVWAPCross, reason)
}

func TestExitVWAPCrossDirectionPerOptionType(t *testing.T) {
	rules := testExitRules()

	ce := boughtRecord(models.OptionCE)
	pe := boughtRecord(models.OptionPE)

	// Underlying above VWAP: fine for a call, unfavorable for a put.
	in := ExitInput{Now: afternoon(), OptionLTP: 55, UnderlyingLTP: 1510, UnderlyingVWAP: 1500}

	in.Record = ce
	_, fired := rules.Evaluate(in)
	assert.False(t, fired)

	in.Record = pe
	reason, fired := rules.Evaluate(in)
	assert.True(t, fired)
	assert.Equal(t, models.ExitVWAPCross, reason)
}

func TestExitVWAPCrossBeatsProfitTarget(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)

	reason, fired := rules.Evaluate(ExitInput{
		Record:         rec,
		Now:            afternoon(),
		OptionLTP:      90, // profit target also qualifies
		UnderlyingLTP:  1490,
		UnderlyingVWAP: 1500,
	})
	assert.True(t, fired)
	assert.Equal(t, models.ExitVWAPCross, reason)
}

func TestExitIgnoresNonOpenRecords(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)
	rec.Status = models.StatusSold

	_, fired := rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 1})
	assert.False(t, fired)
}

func TestExitMissingQuoteFailsSafe(t *testing.T) {
	rules := testExitRules()
	rec := boughtRecord(models.OptionCE)

	// No option quote: neither stop loss nor profit target can fire.
	_, fired := rules.Evaluate(ExitInput{Record: rec, Now: afternoon(), OptionLTP: 0})
	assert.False(t, fired)
}

func TestSweepPriceFallbackOrder(t *testing.T) {
	rec := boughtRecord(models.OptionCE)

	price, source := SweepPrice(rec, 62.5)
	assert.Equal(t, 62.5, price)
	assert.Equal(t, "live_quote", source)

	rec.SellPrice = 58 // last tracked price while open
	price, source = SweepPrice(rec, 0)
	assert.Equal(t, 58.0, price)
	assert.Equal(t, "last_sell_price", source)

	rec.SellPrice = 0
	price, source = SweepPrice(rec, 0)
	assert.Equal(t, 50.0, price)
	assert.Equal(t, "buy_price", source)
}

// Whatever the inputs, at most one exit fires per pass and stop loss always
// wins when it qualifies.
func TestExitPriorityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rules := testExitRules()

	properties.Property("stop loss dominates", prop.ForAll(
		func(ltp, underLTP, underVWAP float64, minute int) bool {
			rec := boughtRecord(models.OptionCE)
			now := time.Date(2025, 7, 7, 9, 15, 0, 0, utils.IndiaLocation).Add(time.Duration(minute) * time.Minute)

			reason, fired := rules.Evaluate(ExitInput{
				Record:         rec,
				Now:            now,
				OptionLTP:      ltp,
				UnderlyingLTP:  underLTP,
				UnderlyingVWAP: underVWAP,
			})

			stopQualifies := ltp > 0 && ltp <= rec.StopLoss
			if stopQualifies {
				return fired && reason == models.ExitStopLoss
			}
			// Otherwise any fired reason must not be stop loss.
			return !fired || reason != models.ExitStopLoss
		},
		gen.Float64Range(0, 200),
		gen.Float64Range(0, 3000),
		gen.Float64Range(0, 3000),
		gen.IntRange(0, 375),
	))

	properties.TestingRun(t)
}
