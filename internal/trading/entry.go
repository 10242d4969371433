package trading

import (
	"time"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// ConditionEvaluator combines the entry gates into a single decision.
type ConditionEvaluator struct {
	Cutoff         utils.MinuteOfDay
	MaxCandleRatio float64

	// CutoffWaived reports whether the time cutoff is lifted for the day,
	// e.g. an exchange special session. Nil means never.
	CutoffWaived func(time.Time) bool
}

// EvalInput carries everything one entry decision needs. The caller
// gathers market data so the evaluator itself stays deterministic.
type EvalInput struct {
	Record *models.TradeRecord
	Now    time.Time
	Index  models.IndexTrend

	Slope       SlopeResult
	SlopeExempt bool // day-open slot awaiting its first full cycle

	CandleRatio  float64
	CandleValid  bool
	CandleExempt bool // same day-open exemption as the slope gate

	QuoteLTP float64 // live option quote; <= 0 means unavailable
}

// EvalResult is the entry decision with its blocking reason, if any.
type EvalResult struct {
	Enter  bool
	Reason models.NoEntryReason
}

// Evaluate runs all entry gates. Entry requires every gate to pass; the
// no-entry reason is assigned by fixed priority when any fail.
func (e *ConditionEvaluator) Evaluate(in EvalInput) EvalResult {
	rec := in.Record

	failEnrichment := rec.Contract == nil
	failTime := !e.cutoffWaived(in.Now) && utils.MinuteOf(in.Now) >= e.Cutoff
	failIndex := !IndexAligned(rec.Alert.Type, in.Index)
	failCandle := !in.CandleExempt && in.CandleValid && in.CandleRatio >= e.MaxCandleRatio

	missingOption := !failEnrichment &&
		(in.QuoteLTP <= 0 ||
			rec.Contract.LotSize <= 0 ||
			(!in.CandleExempt && !in.CandleValid))

	failSlope := !in.SlopeExempt && !in.Slope.Pass

	if !failEnrichment && !failTime && !failIndex && !failCandle && !missingOption && !failSlope {
		return EvalResult{Enter: true}
	}

	// Reason priority: enrichment > time > index > candle size > missing
	// option data > unknown. A slope fail keeps the record pending for the
	// next cycle and reports as unknown.
	switch {
	case failEnrichment:
		return EvalResult{Reason: models.NoEntryEnrichment}
	case failTime:
		return EvalResult{Reason: models.NoEntryTimeCutoff}
	case failIndex:
		return EvalResult{Reason: models.NoEntryIndexMisalign}
	case failCandle:
		return EvalResult{Reason: models.NoEntryCandleSize}
	case missingOption:
		return EvalResult{Reason: models.NoEntryMissingOption}
	default:
		return EvalResult{Reason: models.NoEntryUnknown}
	}
}

func (e *ConditionEvaluator) cutoffWaived(t time.Time) bool {
	return e.CutoffWaived != nil && e.CutoffWaived(t)
}

// IndexAligned applies the index-alignment rule: a bullish alert needs
// both indices bullish; a bearish alert needs the indices not opposed,
// i.e. both bullish or both bearish. Neutral or unknown trends block both.
func IndexAligned(t models.AlertType, idx models.IndexTrend) bool {
	bothBullish := idx.Nifty == models.TrendBullish && idx.BankNifty == models.TrendBullish
	bothBearish := idx.Nifty == models.TrendBearish && idx.BankNifty == models.TrendBearish

	if t == models.AlertBullish {
		return bothBullish
	}
	return bothBullish || bothBearish
}
