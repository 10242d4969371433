package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/internal/broker"
	"signal-trader/internal/config"
	"signal-trader/internal/logging"
	"signal-trader/internal/models"
	"signal-trader/internal/store"
	"signal-trader/pkg/utils"
)

// Engine drives the trade lifecycle: it turns normalized alerts into trade
// records, re-evaluates pending records each cycle, and applies the exit
// rules to open positions.
type Engine struct {
	cfg      *config.Config
	gateway  broker.Gateway
	router   broker.OrderRouter
	store    store.TradeStore
	resolver *ContractResolver
	slope    SlopeCalculator
	entry    *ConditionEvaluator
	exits    ExitRules
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine wires the decision engine together.
func NewEngine(cfg *config.Config, gateway broker.Gateway, router broker.OrderRouter, st store.TradeStore, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		gateway:  gateway,
		router:   router,
		store:    st,
		resolver: NewContractResolver(gateway, logger),
		slope:    NewSlopeCalculator(cfg.Entry.SlopeScalePerHour, cfg.Entry.SlopeThresholdDegrees),
		entry: &ConditionEvaluator{
			Cutoff:         utils.NewMinuteOfDay(cfg.Entry.CutoffHour, cfg.Entry.CutoffMinute),
			MaxCandleRatio: cfg.Entry.MaxCandleRatio,
			CutoffWaived:   cfg.IsExtendedSessionDate,
		},
		exits: ExitRules{
			ProfitMultiple: cfg.Exit.ProfitMultiple,
			VWAPCrossFrom:  utils.NewMinuteOfDay(cfg.Exit.VWAPCrossFromHr, cfg.Exit.VWAPCrossFromMin),
		},
		logger: logger,
		now:    time.Now,
	}
}

// IngestPayload normalizes a raw webhook body and processes each alert.
// One alert's failure never aborts the rest of the batch.
func (e *Engine) IngestPayload(ctx context.Context, raw []byte, meta AlertMeta) ([]*models.TradeRecord, error) {
	payload, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	alerts, err := NormalizeAlerts(payload, meta)
	if err != nil {
		return nil, err
	}

	var records []*models.TradeRecord
	for _, alert := range alerts {
		rec, err := e.ProcessAlert(ctx, alert)
		if err != nil {
			e.logger.Error().Err(err).Str("stock", alert.StockName).Msg("Alert processing failed")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ProcessAlert resolves a contract for the alert, runs the entry gates
// once, and persists the resulting trade record.
func (e *Engine) ProcessAlert(ctx context.Context, alert models.Alert) (*models.TradeRecord, error) {
	now := e.now().In(utils.IndiaLocation)

	rec := &models.TradeRecord{
		ID:           alert.ID,
		Alert:        alert,
		Status:       models.StatusPending,
		SlopeStatus:  models.GatePending,
		CandleStatus: models.GatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	optType := models.OptionTypeFor(alert.Type)
	contract, err := e.resolver.Resolve(ctx, alert.StockName, optType, alert.TriggerPrice)
	if err != nil {
		e.logger.Warn().Err(err).Str("stock", alert.StockName).Msg("Contract resolution failed")
	}
	rec.Contract = contract

	// A signal snapped into the day-open slot has no VWAP history yet; its
	// trend gates wait for the first full cycle.
	cycleIdx := cycleIndexForSlot(alert.Slot)
	exempt := isDayOpenSlot(alert.Slot) && now.Before(utils.CycleTimes[0].At(now))

	if err := e.evaluateRecord(ctx, rec, cycleIdx, exempt); err != nil {
		e.logger.Error().Err(err).Str("record_id", rec.ID).Msg("Initial evaluation failed")
	}

	if err := e.createRecord(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// createRecord persists a record, falling back to a minimal degraded
// record rather than dropping the alert when the store misbehaves.
func (e *Engine) createRecord(ctx context.Context, rec *models.TradeRecord) error {
	err := e.store.CreateTradeRecord(ctx, rec)
	if err == nil {
		return nil
	}

	e.logger.Error().Err(err).Str("record_id", rec.ID).Msg("Persisting trade record failed, retrying with minimal record")

	minimal := &models.TradeRecord{
		ID:            rec.ID,
		Alert:         rec.Alert,
		Status:        models.StatusPending,
		NoEntryReason: models.NoEntryUnknown,
		SlopeStatus:   models.GatePending,
		CandleStatus:  models.GatePending,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if err2 := e.store.CreateTradeRecord(ctx, minimal); err2 != nil {
		return fmt.Errorf("persisting degraded record: %w", err2)
	}
	return nil
}

// RunCycle re-evaluates every pending record covered by the cycle's
// reference slot. Each record is processed independently; one record's
// failure never aborts the batch.
func (e *Engine) RunCycle(ctx context.Context, cycleIdx int) error {
	if cycleIdx < 0 || cycleIdx >= len(utils.CycleReferenceSlots) {
		return fmt.Errorf("invalid cycle index %d", cycleIdx)
	}

	now := e.now().In(utils.IndiaLocation)
	refSlot := utils.CycleReferenceSlots[cycleIdx].At(now)
	logger := logging.WithCycle(e.logger, refSlot.Format("15:04"))

	records, err := e.store.QueryPendingRecords(ctx, refSlot)
	if err != nil {
		return fmt.Errorf("querying pending records: %w", err)
	}

	logger.Info().Int("pending", len(records)).Msg("Cycle pass started")

	for _, rec := range records {
		e.runIsolated(rec.ID, func() error {
			if rec.Status != models.StatusPending {
				return nil
			}
			if err := e.evaluateRecord(ctx, rec, cycleIdx, false); err != nil {
				return err
			}
			return e.store.UpdateTradeRecord(ctx, rec)
		})
	}

	return e.CheckExits(ctx)
}

// runIsolated shields the batch from one record's failure, including panics.
func (e *Engine) runIsolated(recordID string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("record_id", recordID).Interface("panic", r).Msg("Record processing panicked")
		}
	}()
	if err := fn(); err != nil {
		e.logger.Error().Err(err).Str("record_id", recordID).Msg("Record processing failed")
	}
}

// evaluateRecord refreshes the gate inputs for a pending record and enters
// the trade when every gate passes. Already-bought and sold records are
// never touched.
func (e *Engine) evaluateRecord(ctx context.Context, rec *models.TradeRecord, cycleIdx int, exempt bool) error {
	if rec.Status != models.StatusPending {
		return nil
	}

	now := e.now().In(utils.IndiaLocation)
	var quoteLTP float64
	var candleValid bool

	if rec.Contract != nil {
		if exempt {
			rec.SlopeStatus = models.GatePending
		} else {
			e.refreshSlope(ctx, rec, cycleIdx, now)
		}

		// The ratio is only (re)computed while pending; it freezes the
		// moment the record leaves pending state.
		if !exempt {
			candleValid = e.refreshCandleRatio(ctx, rec)
		}

		if quote, err := e.gateway.GetQuote(ctx, rec.Contract.InstrumentKey); err == nil {
			quoteLTP = quote.LTP
		} else {
			e.logger.Debug().Err(err).Str("record_id", rec.ID).Msg("Option quote unavailable")
		}
	}

	index, err := e.gateway.GetIndexTrend(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Msg("Index trend unavailable")
	}

	result := e.entry.Evaluate(EvalInput{
		Record:       rec,
		Now:          now,
		Index:        index,
		Slope:        slopeFromRecord(rec),
		SlopeExempt:  exempt,
		CandleRatio:  rec.CandleRatio,
		CandleValid:  candleValid,
		CandleExempt: exempt,
		QuoteLTP:     quoteLTP,
	})

	rec.UpdatedAt = now
	if !result.Enter {
		rec.NoEntryReason = result.Reason
		logging.LogNoEntry(e.logger, rec.ID, rec.Alert.StockName, string(result.Reason))
		return nil
	}

	return e.enterTrade(ctx, rec, quoteLTP)
}

func slopeFromRecord(rec *models.TradeRecord) SlopeResult {
	return SlopeResult{
		Angle:     rec.SlopeAngle,
		Direction: rec.SlopeDirection,
		Pass:      rec.SlopeStatus == models.GatePass,
		Valid:     rec.SlopeStatus != models.GatePending,
	}
}

// refreshSlope recomputes the VWAP slope between the previous cycle's
// reference time and a fresh sample.
func (e *Engine) refreshSlope(ctx context.Context, rec *models.TradeRecord, cycleIdx int, now time.Time) {
	key := rec.Alert.UnderlyingKey()
	prevRef := utils.PreviousReferenceTime(cycleIdx, now)

	v1, err1 := e.gateway.GetVWAP(ctx, key, prevRef)
	v2, err2 := e.gateway.GetVWAP(ctx, key, now)
	if err1 != nil || err2 != nil {
		rec.SlopeStatus = models.GateFail
		e.logger.Debug().Str("record_id", rec.ID).Msg("VWAP samples unavailable, slope gate fails closed")
		return
	}

	result := e.slope.Compute(v1, v2)
	rec.SlopeAngle = result.Angle
	rec.SlopeDirection = result.Direction
	if result.Pass {
		rec.SlopeStatus = models.GatePass
	} else {
		rec.SlopeStatus = models.GateFail
	}
}

// refreshCandleRatio computes the current/prior session range ratio for
// the option. Returns false when the sessions needed are unavailable.
func (e *Engine) refreshCandleRatio(ctx context.Context, rec *models.TradeRecord) bool {
	candles, err := e.gateway.GetCandles(ctx, rec.Contract.InstrumentKey, broker.IntervalDay, 7)
	if err != nil || len(candles) < 2 {
		rec.CandleStatus = models.GateFail
		return false
	}

	cur := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	prevRange := prev.High - prev.Low
	if prevRange <= 0 {
		rec.CandleStatus = models.GateFail
		return false
	}

	rec.CandleRatio = (cur.High - cur.Low) / prevRange
	if rec.CandleRatio < e.entry.MaxCandleRatio {
		rec.CandleStatus = models.GatePass
	} else {
		rec.CandleStatus = models.GateFail
	}
	return true
}

// enterTrade opens the position: one lot at the live quote, stop loss
// computed now, buy time stamped with the wall clock.
func (e *Engine) enterTrade(ctx context.Context, rec *models.TradeRecord, ltp float64) error {
	now := e.now().In(utils.IndiaLocation)
	qty := rec.Contract.LotSize

	if qty <= 0 || ltp <= 0 {
		rec.NoEntryReason = models.NoEntryMissingOption
		return nil
	}

	if _, err := e.router.PlaceBuy(ctx, *rec.Contract, qty); err != nil {
		rec.NoEntryReason = models.NoEntryUnknown
		return fmt.Errorf("placing buy order: %w", err)
	}

	stopLoss := ltp * (1 - e.cfg.Exit.StopLossPercent/100)
	rec.MarkBought(qty, ltp, now, stopLoss)
	logging.LogEntry(e.logger, rec.ID, rec.Contract.TradingSymbol, qty, ltp, stopLoss)
	return nil
}

// CheckExits applies the exit rules to every open record.
func (e *Engine) CheckExits(ctx context.Context) error {
	now := e.now().In(utils.IndiaLocation)
	records, err := e.store.QueryOpenRecords(ctx, now)
	if err != nil {
		return fmt.Errorf("querying open records: %w", err)
	}

	for _, rec := range records {
		rec := rec
		e.runIsolated(rec.ID, func() error {
			return e.checkExit(ctx, rec, now)
		})
	}
	return nil
}

func (e *Engine) checkExit(ctx context.Context, rec *models.TradeRecord, now time.Time) error {
	if !rec.Open() || rec.Contract == nil {
		return nil
	}

	var optionLTP float64
	if quote, err := e.gateway.GetQuote(ctx, rec.Contract.InstrumentKey); err == nil {
		optionLTP = quote.LTP
	}

	var underLTP, underVWAP float64
	if utils.MinuteOf(now) >= e.exits.VWAPCrossFrom {
		key := rec.Alert.UnderlyingKey()
		if quote, err := e.gateway.GetQuote(ctx, key); err == nil {
			underLTP = quote.LTP
		}
		if vwap, err := e.gateway.GetVWAP(ctx, key, now); err == nil {
			underVWAP = vwap.Value
		}
	}

	reason, fired := e.exits.Evaluate(ExitInput{
		Record:         rec,
		Now:            now,
		OptionLTP:      optionLTP,
		UnderlyingLTP:  underLTP,
		UnderlyingVWAP: underVWAP,
	})

	if !fired {
		// Track the last seen price; the sweep falls back to it when the
		// closing quote is unavailable.
		if optionLTP > 0 && optionLTP != rec.SellPrice {
			rec.SellPrice = optionLTP
			rec.UpdatedAt = now
			return e.store.UpdateTradeRecord(ctx, rec)
		}
		return nil
	}

	if _, err := e.router.PlaceSell(ctx, *rec.Contract, rec.Qty); err != nil {
		return fmt.Errorf("placing sell order: %w", err)
	}

	// A VWAP-cross exit can fire without a live option quote; fall back the
	// same way the sweep does.
	price, _ := SweepPrice(rec, optionLTP)
	rec.MarkSold(reason, price, now)
	if err := e.store.UpdateTradeRecord(ctx, rec); err != nil {
		return fmt.Errorf("persisting exit: %w", err)
	}

	logging.LogExit(e.logger, rec.ID, rec.Contract.TradingSymbol, string(reason), rec.SellPrice, rec.PnL)
	return nil
}

// RunSweep force-closes every still-open record at end of day, then logs
// the day's summary. After the sweep no record is left bought without an
// exit reason.
func (e *Engine) RunSweep(ctx context.Context) error {
	now := e.now().In(utils.IndiaLocation)
	records, err := e.store.QueryOpenRecords(ctx, now)
	if err != nil {
		return fmt.Errorf("querying open records for sweep: %w", err)
	}

	e.logger.Info().Int("open", len(records)).Msg("End-of-day sweep started")

	for _, rec := range records {
		rec := rec
		e.runIsolated(rec.ID, func() error {
			return e.sweepRecord(ctx, rec, now)
		})
	}

	if summary, err := e.store.DailySummary(ctx, now); err == nil {
		e.logger.Info().
			Int("total", summary.Total).
			Int("pending", summary.Pending).
			Int("sold", summary.Sold).
			Float64("gross_pnl", summary.GrossPnL).
			Msg("Daily summary")
	}

	return nil
}

func (e *Engine) sweepRecord(ctx context.Context, rec *models.TradeRecord, now time.Time) error {
	var liveLTP float64
	if quote, err := e.gateway.GetQuote(ctx, rec.Contract.InstrumentKey); err == nil {
		liveLTP = quote.LTP
	}

	price, source := SweepPrice(rec, liveLTP)
	e.logger.Info().
		Str("record_id", rec.ID).
		Str("price_source", source).
		Float64("price", price).
		Msg("Sweeping open position")

	if _, err := e.router.PlaceSell(ctx, *rec.Contract, rec.Qty); err != nil {
		// The record still closes; an unfilled broker order at this point
		// needs operator attention either way.
		e.logger.Error().Err(err).Str("record_id", rec.ID).Msg("Sweep sell order failed")
	}

	rec.MarkSold(models.ExitTimeBased, price, now)
	if err := e.store.UpdateTradeRecord(ctx, rec); err != nil {
		return fmt.Errorf("persisting sweep exit: %w", err)
	}

	logging.LogExit(e.logger, rec.ID, rec.Contract.TradingSymbol, string(models.ExitTimeBased), price, rec.PnL)
	return nil
}

// cycleIndexForSlot maps a canonical slot to the cycle that covers it. The
// last slot has no covering cycle; records there are evaluated only at
// ingestion and swept at end of day.
func cycleIndexForSlot(slot time.Time) int {
	m := utils.MinuteOf(slot)
	for i, ref := range utils.CycleReferenceSlots {
		if ref == m {
			return i
		}
	}
	return len(utils.CycleReferenceSlots)
}

func isDayOpenSlot(slot time.Time) bool {
	return utils.MinuteOf(slot) == utils.CanonicalSlots[0]
}
