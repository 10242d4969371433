package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// Index quote keys used for trend evaluation.
const (
	niftyKey     = "NSE:NIFTY 50"
	bankNiftyKey = "NSE:NIFTY BANK"
)

// KiteGateway implements Gateway and OrderRouter over Kite Connect.
type KiteGateway struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	totpSecret    string
	tokenPath     string
	accessToken   string
	authenticated bool

	neutralBandPct float64

	instruments map[string]models.Instrument // "EXCH:SYMBOL" -> instrument
	mu          sync.RWMutex
}

// KiteConfig holds configuration for the Kite gateway.
type KiteConfig struct {
	APIKey         string
	APISecret      string
	UserID         string
	TOTPSecret     string
	TokenPath      string
	NeutralBandPct float64 // index move below this percent of open is neutral
}

// NewKiteGateway creates a new Kite Connect gateway.
// It automatically loads any saved session from disk.
func NewKiteGateway(cfg KiteConfig) *KiteGateway {
	client := kiteconnect.New(cfg.APIKey)

	band := cfg.NeutralBandPct
	if band <= 0 {
		band = 0.05
	}

	kg := &KiteGateway{
		client:         client,
		apiKey:         cfg.APIKey,
		apiSecret:      cfg.APISecret,
		userID:         cfg.UserID,
		totpSecret:     cfg.TOTPSecret,
		tokenPath:      cfg.TokenPath,
		neutralBandPct: band,
		instruments:    make(map[string]models.Instrument),
	}

	_ = kg.loadSession()

	return kg
}

// GetQuote fetches a live quote for an instrument key.
func (k *KiteGateway) GetQuote(ctx context.Context, instrumentKey string) (*models.Quote, error) {
	if !k.IsAuthenticated() {
		return nil, wrapError("quote", fmt.Errorf("not authenticated"))
	}

	quotes, err := k.client.GetQuote(instrumentKey)
	if err != nil {
		return nil, wrapError("quote", err)
	}

	q, ok := quotes[instrumentKey]
	if !ok {
		return nil, &GatewayError{Kind: KindNotFound, Op: "quote",
			Err: fmt.Errorf("quote not found for %s", instrumentKey)}
	}

	return &models.Quote{
		Symbol:        instrumentKey,
		LTP:           q.LastPrice,
		Open:          q.OHLC.Open,
		High:          q.OHLC.High,
		Low:           q.OHLC.Low,
		Close:         q.OHLC.Close,
		Volume:        int64(q.Volume),
		Change:        q.NetChange,
		ChangePercent: percentChange(q.NetChange, q.OHLC.Close),
		Timestamp:     q.LastTradeTime.Time,
	}, nil
}

func percentChange(change, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (change / base) * 100
}

// GetCandles fetches candles covering daysBack calendar days up to now.
func (k *KiteGateway) GetCandles(ctx context.Context, instrumentKey, interval string, daysBack int) ([]models.Candle, error) {
	if !k.IsAuthenticated() {
		return nil, wrapError("candles", fmt.Errorf("not authenticated"))
	}

	token, err := k.lookupToken(ctx, instrumentKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(utils.IndiaLocation)
	from := utils.DayStart(now.AddDate(0, 0, -daysBack))

	data, err := k.client.GetHistoricalData(int(token), mapInterval(interval), from, now, false, false)
	if err != nil {
		return nil, wrapError("candles", err)
	}

	candles := make([]models.Candle, len(data))
	for i, d := range data {
		candles[i] = models.Candle{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		}
	}

	return candles, nil
}

func mapInterval(interval string) string {
	switch interval {
	case IntervalMinute:
		return "minute"
	case Interval5Min:
		return "5minute"
	case Interval15Min:
		return "15minute"
	case IntervalDay:
		return "day"
	default:
		return "day"
	}
}

// GetOptionChain builds the nearest-expiry option chain for an underlying
// from the NFO instrument universe plus a batched quote call.
func (k *KiteGateway) GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	spot, err := k.GetQuote(ctx, "NSE:"+symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching spot price: %w", err)
	}

	if err := k.ensureUniverse(ctx, models.NFO); err != nil {
		return nil, err
	}

	// Collect option instruments for the nearest expiry.
	k.mu.RLock()
	var options []models.Instrument
	for _, inst := range k.instruments {
		if inst.Exchange != models.NFO || inst.Name != symbol {
			continue
		}
		if inst.InstrType != string(models.OptionCE) && inst.InstrType != string(models.OptionPE) {
			continue
		}
		options = append(options, inst)
	}
	k.mu.RUnlock()

	if len(options) == 0 {
		return nil, &GatewayError{Kind: KindNotFound, Op: "option_chain",
			Err: fmt.Errorf("no option instruments for %s", symbol)}
	}

	expiry := nearestExpiry(options)
	var keys []string
	bySymbol := make(map[string]models.Instrument)
	for _, inst := range options {
		if !utils.SameDay(inst.Expiry, expiry) {
			continue
		}
		key := inst.InstrumentKey()
		keys = append(keys, key)
		bySymbol[key] = inst
	}

	quotes, err := k.client.GetQuote(keys...)
	if err != nil {
		return nil, wrapError("option_chain", err)
	}

	strikeMap := make(map[float64]*models.OptionStrike)
	for key, inst := range bySymbol {
		q, ok := quotes[key]
		if !ok {
			continue
		}

		strike, ok := strikeMap[inst.Strike]
		if !ok {
			strike = &models.OptionStrike{Strike: inst.Strike}
			strikeMap[inst.Strike] = strike
		}

		data := &models.OptionData{
			LTP:    q.LastPrice,
			OI:     int64(q.OI),
			Volume: int64(q.Volume),
		}
		if inst.InstrType == string(models.OptionCE) {
			strike.Call = data
		} else {
			strike.Put = data
		}
	}

	strikes := make([]models.OptionStrike, 0, len(strikeMap))
	for _, s := range strikeMap {
		strikes = append(strikes, *s)
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	return &models.OptionChain{
		Symbol:    symbol,
		SpotPrice: spot.LTP,
		Strikes:   strikes,
	}, nil
}

func nearestExpiry(options []models.Instrument) time.Time {
	today := utils.DayStart(time.Now())
	var nearest time.Time
	for _, inst := range options {
		if inst.Expiry.Before(today) {
			continue
		}
		if nearest.IsZero() || inst.Expiry.Before(nearest) {
			nearest = inst.Expiry
		}
	}
	return nearest
}

// GetIndexTrend derives index trends from the day's move against the open.
func (k *KiteGateway) GetIndexTrend(ctx context.Context) (models.IndexTrend, error) {
	trend := models.IndexTrend{Nifty: models.TrendUnknown, BankNifty: models.TrendUnknown}

	if !k.IsAuthenticated() {
		return trend, wrapError("index_trend", fmt.Errorf("not authenticated"))
	}

	quotes, err := k.client.GetQuote(niftyKey, bankNiftyKey)
	if err != nil {
		return trend, wrapError("index_trend", err)
	}

	if q, ok := quotes[niftyKey]; ok {
		trend.Nifty = k.trendOf(q.LastPrice, q.OHLC.Open)
	}
	if q, ok := quotes[bankNiftyKey]; ok {
		trend.BankNifty = k.trendOf(q.LastPrice, q.OHLC.Open)
	}

	return trend, nil
}

func (k *KiteGateway) trendOf(ltp, open float64) models.Trend {
	if ltp <= 0 || open <= 0 {
		return models.TrendUnknown
	}
	band := open * k.neutralBandPct / 100
	switch {
	case ltp > open+band:
		return models.TrendBullish
	case ltp < open-band:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// GetVWAP computes the session VWAP from intraday candles up to the given time.
func (k *KiteGateway) GetVWAP(ctx context.Context, instrumentKey string, until time.Time) (models.VWAPSample, error) {
	candles, err := k.GetCandles(ctx, instrumentKey, Interval15Min, 0)
	if err != nil {
		return models.VWAPSample{}, err
	}

	var pv, vol, closeSum float64
	var count int
	for _, c := range candles {
		if !utils.SameDay(c.Timestamp, until) || c.Timestamp.After(until) {
			continue
		}
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * float64(c.Volume)
		vol += float64(c.Volume)
		closeSum += c.Close
		count++
	}

	if count == 0 {
		return models.VWAPSample{}, &GatewayError{Kind: KindNotFound, Op: "vwap",
			Err: fmt.Errorf("no intraday candles for %s", instrumentKey)}
	}

	// Indices report zero volume; fall back to the candle-close average.
	value := closeSum / float64(count)
	if vol > 0 {
		value = pv / vol
	}

	return models.VWAPSample{Value: value, At: until}, nil
}

// GetInstruments fetches the instrument universe for an exchange.
func (k *KiteGateway) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	if !k.IsAuthenticated() {
		return nil, wrapError("instruments", fmt.Errorf("not authenticated"))
	}

	instruments, err := k.client.GetInstruments()
	if err != nil {
		return nil, wrapError("instruments", err)
	}

	var result []models.Instrument
	for _, inst := range instruments {
		if inst.Exchange != string(exchange) {
			continue
		}
		m := models.Instrument{
			Token:     uint32(inst.InstrumentToken),
			Symbol:    inst.Tradingsymbol,
			Name:      inst.Name,
			Exchange:  models.Exchange(inst.Exchange),
			Segment:   inst.Segment,
			LotSize:   int(inst.LotSize),
			TickSize:  inst.TickSize,
			Expiry:    inst.Expiry.Time,
			Strike:    inst.StrikePrice,
			InstrType: inst.InstrumentType,
		}
		result = append(result, m)

		k.mu.Lock()
		k.instruments[m.InstrumentKey()] = m
		k.mu.Unlock()
	}

	return result, nil
}

// ensureUniverse populates the instrument cache for an exchange once.
func (k *KiteGateway) ensureUniverse(ctx context.Context, exchange models.Exchange) error {
	k.mu.RLock()
	for key := range k.instruments {
		if strings.HasPrefix(key, string(exchange)+":") {
			k.mu.RUnlock()
			return nil
		}
	}
	k.mu.RUnlock()

	_, err := k.GetInstruments(ctx, exchange)
	return err
}

// SeedInstruments primes the instrument cache, e.g. from a CSV dump.
func (k *KiteGateway) SeedInstruments(instruments []models.Instrument) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, inst := range instruments {
		k.instruments[inst.InstrumentKey()] = inst
	}
}

func (k *KiteGateway) lookupToken(ctx context.Context, instrumentKey string) (uint32, error) {
	k.mu.RLock()
	inst, ok := k.instruments[instrumentKey]
	k.mu.RUnlock()
	if ok {
		return inst.Token, nil
	}

	exchange := models.NSE
	if i := strings.Index(instrumentKey, ":"); i > 0 {
		exchange = models.Exchange(instrumentKey[:i])
	}
	if _, err := k.GetInstruments(ctx, exchange); err != nil {
		return 0, err
	}

	k.mu.RLock()
	inst, ok = k.instruments[instrumentKey]
	k.mu.RUnlock()
	if !ok {
		return 0, &GatewayError{Kind: KindNotFound, Op: "instruments",
			Err: fmt.Errorf("instrument not found: %s", instrumentKey)}
	}
	return inst.Token, nil
}

// PlaceBuy places a market buy order for the contract.
func (k *KiteGateway) PlaceBuy(ctx context.Context, contract models.OptionContract, qty int) (string, error) {
	return k.placeOrder(contract, qty, "BUY")
}

// PlaceSell places a market sell order for the contract.
func (k *KiteGateway) PlaceSell(ctx context.Context, contract models.OptionContract, qty int) (string, error) {
	return k.placeOrder(contract, qty, "SELL")
}

func (k *KiteGateway) placeOrder(contract models.OptionContract, qty int, side string) (string, error) {
	if !k.IsAuthenticated() {
		return "", wrapError("order", fmt.Errorf("not authenticated"))
	}

	params := kiteconnect.OrderParams{
		Exchange:        string(models.NFO),
		Tradingsymbol:   contract.TradingSymbol,
		TransactionType: side,
		OrderType:       "MARKET",
		Product:         "NRML",
		Quantity:        qty,
		Validity:        "DAY",
		Tag:             "signal-trader",
	}

	resp, err := k.client.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return "", wrapError("order", err)
	}

	return resp.OrderID, nil
}
