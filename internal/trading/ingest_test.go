package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

func TestParsePayloadJoinedStrings(t *testing.T) {
	raw := []byte(`{"stocks": "RELIANCE, TCS ,INFY", "trigger_prices": "2850.5, 3890, 1505.25"}`)

	payload, err := ParsePayload(raw)
	require.NoError(t, err)

	pairs, err := payload.Pairs()
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, StockTrigger{Stock: "RELIANCE", Price: 2850.5}, pairs[0])
	assert.Equal(t, StockTrigger{Stock: "TCS", Price: 3890}, pairs[1])
	assert.Equal(t, StockTrigger{Stock: "INFY", Price: 1505.25}, pairs[2])
}

func TestParsePayloadStockListWithPriceMap(t *testing.T) {
	raw := []byte(`{"stocks": ["RELIANCE", "TCS"], "prices": {"RELIANCE": 2850.5, "TCS": 3890}}`)

	payload, err := ParsePayload(raw)
	require.NoError(t, err)

	pairs, err := payload.Pairs()
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "RELIANCE", pairs[0].Stock)
	assert.Equal(t, 3890.0, pairs[1].Price)
}

func TestParsePayloadBareMap(t *testing.T) {
	raw := []byte(`{"prices": {"HDFCBANK": 1650.0}}`)

	payload, err := ParsePayload(raw)
	require.NoError(t, err)

	pairs, err := payload.Pairs()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "HDFCBANK", pairs[0].Stock)
}

func TestParsePayloadRejectsUnknownShape(t *testing.T) {
	_, err := ParsePayload([]byte(`{"something": "else"}`))
	assert.Error(t, err)

	_, err = ParsePayload([]byte(`not json`))
	assert.Error(t, err)
}

func TestJoinedPayloadLengthMismatch(t *testing.T) {
	payload := JoinedPayload{Stocks: "RELIANCE,TCS", TriggerPrices: "2850.5"}
	_, err := payload.Pairs()
	assert.Error(t, err)
}

func TestListPayloadMissingPrice(t *testing.T) {
	payload := ListPayload{Stocks: []string{"RELIANCE"}, Prices: map[string]float64{"TCS": 1}}
	_, err := payload.Pairs()
	assert.Error(t, err)
}

func TestInferAlertType(t *testing.T) {
	cases := []struct {
		name      string
		forced    string
		alertName string
		scanName  string
		want      models.AlertType
	}{
		{"forced bearish wins over bullish text", "bearish", "bullish breakout", "", models.AlertBearish},
		{"forced bullish", "bullish", "", "", models.AlertBullish},
		{"bearish token in alert name", "", "Bearish engulfing", "", models.AlertBearish},
		{"put token in scan name", "", "", "weekly put scan", models.AlertBearish},
		{"call token", "", "call buildup", "", models.AlertBullish},
		{"no tokens defaults bullish", "", "momentum", "intraday", models.AlertBullish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InferAlertType(tc.forced, tc.alertName, tc.scanName))
		})
	}
}

func TestNormalizeAlertsSnapsToSlot(t *testing.T) {
	payload := JoinedPayload{Stocks: "reliance", TriggerPrices: "2850.5"}

	cases := []struct {
		trigger  string
		wantSlot string
	}{
		{"2025-07-07T09:20:00+05:30", "10:15"}, // before first slot snaps up
		{"2025-07-07T10:07:00+05:30", "10:15"},
		{"2025-07-07T10:15:00+05:30", "10:15"}, // boundary belongs to its slot
		{"2025-07-07T10:16:00+05:30", "11:15"},
		{"2025-07-07T14:20:00+05:30", "15:15"},
		{"2025-07-07T15:20:00+05:30", "15:15"}, // past last slot clamps
	}

	for _, tc := range cases {
		t.Run(tc.trigger, func(t *testing.T) {
			at, err := time.Parse(time.RFC3339, tc.trigger)
			require.NoError(t, err)

			alerts, err := NormalizeAlerts(payload, AlertMeta{TriggeredAt: at})
			require.NoError(t, err)
			require.Len(t, alerts, 1)

			assert.Equal(t, tc.wantSlot, alerts[0].Slot.In(utils.IndiaLocation).Format("15:04"))
			assert.Equal(t, "RELIANCE", alerts[0].StockName)
			assert.NotEmpty(t, alerts[0].ID)
		})
	}
}

func TestNormalizeAlertsFiltersIndices(t *testing.T) {
	payload := JoinedPayload{
		Stocks:        "NIFTY, RELIANCE, BANKNIFTY, INDIA VIX",
		TriggerPrices: "22500, 2850.5, 48000, 14.2",
	}

	alerts, err := NormalizeAlerts(payload, AlertMeta{TriggeredAt: time.Date(2025, 7, 7, 10, 0, 0, 0, utils.IndiaLocation)})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "RELIANCE", alerts[0].StockName)
}

func TestIsIndexName(t *testing.T) {
	assert.True(t, IsIndexName("nifty 50"))
	assert.True(t, IsIndexName(" BANKNIFTY "))
	assert.False(t, IsIndexName("RELIANCE"))
}
