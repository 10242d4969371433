package trading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// StockTrigger is one (stock, trigger price) pair extracted from a payload.
type StockTrigger struct {
	Stock string
	Price float64
}

// Payload is one of the accepted webhook payload shapes. Each variant
// normalizes itself into a canonical pair sequence.
type Payload interface {
	Pairs() ([]StockTrigger, error)
}

// JoinedPayload carries comma-joined parallel stock and price strings.
type JoinedPayload struct {
	Stocks        string
	TriggerPrices string
}

// Pairs splits the parallel strings and pairs them positionally.
func (p JoinedPayload) Pairs() ([]StockTrigger, error) {
	stocks := splitList(p.Stocks)
	prices := splitList(p.TriggerPrices)
	if len(stocks) == 0 {
		return nil, fmt.Errorf("empty stock list")
	}
	if len(stocks) != len(prices) {
		return nil, fmt.Errorf("stock/price length mismatch: %d vs %d", len(stocks), len(prices))
	}

	pairs := make([]StockTrigger, 0, len(stocks))
	for i, s := range stocks {
		price, err := strconv.ParseFloat(prices[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger price %q for %s: %w", prices[i], s, err)
		}
		pairs = append(pairs, StockTrigger{Stock: s, Price: price})
	}
	return pairs, nil
}

// ListPayload carries a stock list paired with a price map.
type ListPayload struct {
	Stocks []string
	Prices map[string]float64
}

// Pairs looks up each listed stock in the price map.
func (p ListPayload) Pairs() ([]StockTrigger, error) {
	if len(p.Stocks) == 0 {
		return nil, fmt.Errorf("empty stock list")
	}

	pairs := make([]StockTrigger, 0, len(p.Stocks))
	for _, s := range p.Stocks {
		s = strings.TrimSpace(s)
		price, ok := p.Prices[s]
		if !ok {
			return nil, fmt.Errorf("no trigger price for %s", s)
		}
		pairs = append(pairs, StockTrigger{Stock: s, Price: price})
	}
	return pairs, nil
}

// MapPayload carries a single name-to-price map.
type MapPayload struct {
	Prices map[string]float64
}

// Pairs flattens the map.
func (p MapPayload) Pairs() ([]StockTrigger, error) {
	if len(p.Prices) == 0 {
		return nil, fmt.Errorf("empty price map")
	}

	pairs := make([]StockTrigger, 0, len(p.Prices))
	for s, price := range p.Prices {
		pairs = append(pairs, StockTrigger{Stock: strings.TrimSpace(s), Price: price})
	}
	return pairs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParsePayload sniffs the JSON shape of a raw webhook body and returns the
// matching payload variant.
func ParsePayload(raw []byte) (Payload, error) {
	var probe struct {
		Stocks        json.RawMessage    `json:"stocks"`
		TriggerPrices string             `json:"trigger_prices"`
		Prices        map[string]float64 `json:"prices"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parsing webhook payload: %w", err)
	}

	if len(probe.Stocks) > 0 {
		switch probe.Stocks[0] {
		case '"':
			var stocks string
			if err := json.Unmarshal(probe.Stocks, &stocks); err != nil {
				return nil, fmt.Errorf("parsing stocks string: %w", err)
			}
			return JoinedPayload{Stocks: stocks, TriggerPrices: probe.TriggerPrices}, nil
		case '[':
			var stocks []string
			if err := json.Unmarshal(probe.Stocks, &stocks); err != nil {
				return nil, fmt.Errorf("parsing stocks list: %w", err)
			}
			return ListPayload{Stocks: stocks, Prices: probe.Prices}, nil
		}
		return nil, fmt.Errorf("unrecognized stocks field shape")
	}

	if len(probe.Prices) > 0 {
		return MapPayload{Prices: probe.Prices}, nil
	}

	return nil, fmt.Errorf("unrecognized payload shape")
}

// AlertMeta carries the payload-level context for normalization.
type AlertMeta struct {
	ScanName    string
	AlertName   string
	ForcedType  string // "bullish" or "bearish" overrides inference
	TriggeredAt time.Time
}

// indexNames are never tradable as stock alerts and are filtered out.
var indexNames = map[string]bool{
	"NIFTY":      true,
	"NIFTY 50":   true,
	"BANKNIFTY":  true,
	"NIFTY BANK": true,
	"FINNIFTY":   true,
	"MIDCPNIFTY": true,
	"SENSEX":     true,
	"BANKEX":     true,
	"INDIA VIX":  true,
}

// IsIndexName reports whether a stock name is a known index.
func IsIndexName(name string) bool {
	return indexNames[strings.ToUpper(strings.TrimSpace(name))]
}

// InferAlertType determines the alert direction. A forced type wins;
// otherwise "bearish"/"put" tokens in the alert or scan text mark bearish
// and "bullish"/"call" mark bullish; the default is bullish.
func InferAlertType(forced, alertName, scanName string) models.AlertType {
	switch strings.ToLower(strings.TrimSpace(forced)) {
	case "bearish":
		return models.AlertBearish
	case "bullish":
		return models.AlertBullish
	}

	text := strings.ToLower(alertName + " " + scanName)
	if strings.Contains(text, "bearish") || strings.Contains(text, "put") {
		return models.AlertBearish
	}
	if strings.Contains(text, "bullish") || strings.Contains(text, "call") {
		return models.AlertBullish
	}
	return models.AlertBullish
}

// NormalizeAlerts converts a payload into canonical per-stock alerts,
// filtering indices and snapping the trigger time to its cycle slot.
func NormalizeAlerts(p Payload, meta AlertMeta) ([]models.Alert, error) {
	pairs, err := p.Pairs()
	if err != nil {
		return nil, err
	}

	triggeredAt := meta.TriggeredAt
	if triggeredAt.IsZero() {
		triggeredAt = time.Now()
	}
	triggeredAt = triggeredAt.In(utils.IndiaLocation)

	alertType := InferAlertType(meta.ForcedType, meta.AlertName, meta.ScanName)
	slot := utils.SnapToSlot(triggeredAt)

	var alerts []models.Alert
	for _, pair := range pairs {
		if IsIndexName(pair.Stock) {
			continue
		}
		alerts = append(alerts, models.Alert{
			ID:           uuid.NewString(),
			StockName:    strings.ToUpper(pair.Stock),
			TriggerPrice: pair.Price,
			Type:         alertType,
			Slot:         slot,
			ScanName:     meta.ScanName,
			CreatedAt:    triggeredAt,
		})
	}
	return alerts, nil
}
