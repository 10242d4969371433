package models

import "time"

// Alert is a normalized per-stock directional signal.
// Immutable after creation.
type Alert struct {
	ID           string
	StockName    string
	TriggerPrice float64
	Type         AlertType
	Slot         time.Time // canonical cycle slot the trigger was snapped to
	ScanName     string
	CreatedAt    time.Time
}

// UnderlyingKey returns the broker quote key for the alert's stock.
func (a Alert) UnderlyingKey() string {
	return "NSE:" + a.StockName
}
