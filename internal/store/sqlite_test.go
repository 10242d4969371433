package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testRecord(id string, day time.Time, slotHour int) *models.TradeRecord {
	slot := utils.NewMinuteOfDay(slotHour, 15).At(day)
	return &models.TradeRecord{
		ID: id,
		Alert: models.Alert{
			ID:           id,
			StockName:    "RELIANCE",
			TriggerPrice: 1495,
			Type:         models.AlertBullish,
			Slot:         slot,
			ScanName:     "breakout scan",
			CreatedAt:    day,
		},
		Contract: &models.OptionContract{
			UnderlyingSymbol: "RELIANCE",
			Type:             models.OptionCE,
			Strike:           1510,
			Expiry:           time.Date(2025, 7, 31, 0, 0, 0, 0, utils.IndiaLocation),
			TradingSymbol:    "RELIANCE25JUL1510CE",
			InstrumentKey:    "NFO:RELIANCE25JUL1510CE",
			LotSize:          250,
		},
		Status:       models.StatusPending,
		SlopeStatus:  models.GatePending,
		CandleStatus: models.GatePending,
		CreatedAt:    day,
		UpdatedAt:    day,
	}
}

func TestCreateAndReadBack(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)

	rec := testRecord("rec-1", day, 11)
	require.NoError(t, st.CreateTradeRecord(ctx, rec))

	records, err := st.GetRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, "RELIANCE", got.Alert.StockName)
	assert.Equal(t, models.AlertBullish, got.Alert.Type)
	assert.Equal(t, "breakout scan", got.Alert.ScanName)
	require.NotNil(t, got.Contract)
	assert.Equal(t, "RELIANCE25JUL1510CE", got.Contract.TradingSymbol)
	assert.Equal(t, 250, got.Contract.LotSize)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestCreateWithoutContract(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)

	rec := testRecord("rec-1", day, 11)
	rec.Contract = nil
	rec.NoEntryReason = models.NoEntryEnrichment
	require.NoError(t, st.CreateTradeRecord(ctx, rec))

	records, err := st.GetRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Contract)
	assert.Equal(t, models.NoEntryEnrichment, records[0].NoEntryReason)
}

func TestUpdateTradeLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)

	rec := testRecord("rec-1", day, 11)
	require.NoError(t, st.CreateTradeRecord(ctx, rec))

	buyAt := day.Add(time.Hour)
	rec.MarkBought(250, 55, buyAt, 49.5)
	require.NoError(t, st.UpdateTradeRecord(ctx, rec))

	open, err := st.QueryOpenRecords(ctx, day)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 55.0, open[0].BuyPrice)
	assert.Equal(t, 250, open[0].Qty)

	rec.MarkSold(models.ExitProfitTarget, 82.5, buyAt.Add(time.Hour))
	require.NoError(t, st.UpdateTradeRecord(ctx, rec))

	open, err = st.QueryOpenRecords(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, open)

	records, err := st.GetRecords(ctx, RecordFilter{Status: models.StatusSold})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ExitProfitTarget, records[0].ExitReason)
	assert.InDelta(t, (82.5-55.0)*250, records[0].PnL, 0.001)
}

func TestUpdateUnknownRecord(t *testing.T) {
	st := newTestStore(t)
	rec := testRecord("missing", time.Now(), 11)
	assert.Error(t, st.UpdateTradeRecord(context.Background(), rec))
}

func TestQueryPendingRecordsSlotWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)

	require.NoError(t, st.CreateTradeRecord(ctx, testRecord("rec-1015", day, 10)))
	require.NoError(t, st.CreateTradeRecord(ctx, testRecord("rec-1115", day, 11)))
	require.NoError(t, st.CreateTradeRecord(ctx, testRecord("rec-1315", day, 13)))

	asOf := utils.NewMinuteOfDay(11, 15).At(day)
	records, err := st.QueryPendingRecords(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-1015", records[0].ID)
	assert.Equal(t, "rec-1115", records[1].ID)
}

func TestQueryPendingRecordsExcludesOtherDays(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)
	yesterday := day.AddDate(0, 0, -1)

	require.NoError(t, st.CreateTradeRecord(ctx, testRecord("rec-old", yesterday, 10)))
	require.NoError(t, st.CreateTradeRecord(ctx, testRecord("rec-new", day, 10)))

	records, err := st.QueryPendingRecords(ctx, utils.NewMinuteOfDay(14, 15).At(day))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-new", records[0].ID)
}

func TestGetRecordsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)

	a := testRecord("rec-a", day, 10)
	b := testRecord("rec-b", day.Add(time.Minute), 11)
	b.Alert.StockName = "TCS"
	require.NoError(t, st.CreateTradeRecord(ctx, a))
	require.NoError(t, st.CreateTradeRecord(ctx, b))

	records, err := st.GetRecords(ctx, RecordFilter{StockName: "TCS"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-b", records[0].ID)

	records, err = st.GetRecords(ctx, RecordFilter{Day: day, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDailySummary(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 7, 7, 10, 20, 0, 0, utils.IndiaLocation)

	pending := testRecord("rec-p", day, 10)
	require.NoError(t, st.CreateTradeRecord(ctx, pending))

	sold := testRecord("rec-s", day.Add(time.Minute), 11)
	require.NoError(t, st.CreateTradeRecord(ctx, sold))
	sold.MarkBought(250, 55, day.Add(time.Hour), 49.5)
	sold.MarkSold(models.ExitStopLoss, 49, day.Add(2*time.Hour))
	require.NoError(t, st.UpdateTradeRecord(ctx, sold))

	summary, err := st.DailySummary(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 0, summary.Bought)
	assert.Equal(t, 1, summary.Sold)
	assert.InDelta(t, (49.0-55.0)*250, summary.GrossPnL, 0.001)
}
