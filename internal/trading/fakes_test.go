package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signal-trader/internal/broker"
	"signal-trader/internal/models"
	"signal-trader/internal/store"
)

// fakeGateway is an in-memory Gateway for engine and resolver tests.
type fakeGateway struct {
	quotes      map[string]*models.Quote
	candles     map[string][]models.Candle
	chain       *models.OptionChain
	chainErr    error
	trend       models.IndexTrend
	trendErr    error
	vwapFn      func(instrumentKey string, until time.Time) (models.VWAPSample, error)
	instruments []models.Instrument
	instErr     error
}

func (f *fakeGateway) GetQuote(ctx context.Context, instrumentKey string) (*models.Quote, error) {
	q, ok := f.quotes[instrumentKey]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", instrumentKey)
	}
	return q, nil
}

func (f *fakeGateway) GetCandles(ctx context.Context, instrumentKey, interval string, daysBack int) ([]models.Candle, error) {
	c, ok := f.candles[instrumentKey]
	if !ok {
		return nil, fmt.Errorf("no candles for %s", instrumentKey)
	}
	return c, nil
}

func (f *fakeGateway) GetOptionChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return f.chain, nil
}

func (f *fakeGateway) GetIndexTrend(ctx context.Context) (models.IndexTrend, error) {
	return f.trend, f.trendErr
}

func (f *fakeGateway) GetVWAP(ctx context.Context, instrumentKey string, until time.Time) (models.VWAPSample, error) {
	if f.vwapFn == nil {
		return models.VWAPSample{}, fmt.Errorf("no vwap for %s", instrumentKey)
	}
	return f.vwapFn(instrumentKey, until)
}

func (f *fakeGateway) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	if f.instErr != nil {
		return nil, f.instErr
	}
	return f.instruments, nil
}

var _ broker.Gateway = (*fakeGateway)(nil)

// fakeRouter records placed orders.
type fakeRouter struct {
	mu      sync.Mutex
	buys    []string
	sells   []string
	buyErr  error
	sellErr error
}

func (f *fakeRouter) PlaceBuy(ctx context.Context, contract models.OptionContract, qty int) (string, error) {
	if f.buyErr != nil {
		return "", f.buyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buys = append(f.buys, contract.TradingSymbol)
	return fmt.Sprintf("BUY-%d", len(f.buys)), nil
}

func (f *fakeRouter) PlaceSell(ctx context.Context, contract models.OptionContract, qty int) (string, error) {
	if f.sellErr != nil {
		return "", f.sellErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sells = append(f.sells, contract.TradingSymbol)
	return fmt.Sprintf("SELL-%d", len(f.sells)), nil
}

var _ broker.OrderRouter = (*fakeRouter)(nil)

// fakeStore is an in-memory TradeStore.
type fakeStore struct {
	mu        sync.Mutex
	records   map[string]*models.TradeRecord
	createErr error
	created   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.TradeRecord)}
}

func (f *fakeStore) CreateTradeRecord(ctx context.Context, rec *models.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil // fail once, then recover
		return err
	}
	cp := *rec
	f.records[rec.ID] = &cp
	f.created++
	return nil
}

func (f *fakeStore) UpdateTradeRecord(ctx context.Context, rec *models.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rec.ID]; !ok {
		return fmt.Errorf("record %s not found", rec.ID)
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeStore) QueryPendingRecords(ctx context.Context, asOfSlot time.Time) ([]*models.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TradeRecord
	for _, rec := range f.records {
		if rec.Status == models.StatusPending && !rec.Alert.Slot.After(asOfSlot) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) QueryOpenRecords(ctx context.Context, day time.Time) ([]*models.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TradeRecord
	for _, rec := range f.records {
		if rec.Status == models.StatusBought {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRecords(ctx context.Context, filter store.RecordFilter) ([]*models.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TradeRecord
	for _, rec := range f.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) DailySummary(ctx context.Context, day time.Time) (*store.DailySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := &store.DailySummary{Day: day}
	for _, rec := range f.records {
		summary.Total++
		switch rec.Status {
		case models.StatusPending:
			summary.Pending++
		case models.StatusBought:
			summary.Bought++
		case models.StatusSold:
			summary.Sold++
			summary.GrossPnL += rec.PnL
		}
	}
	return summary, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) get(id string) *models.TradeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

var _ store.TradeStore = (*fakeStore)(nil)
