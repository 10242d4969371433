// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"signal-trader/internal/models"
)

// TradeStore defines the persistence interface for trade records.
// All methods are safe to call per-record without global locks; records
// are independent instruments with no shared mutable state.
type TradeStore interface {
	// CreateTradeRecord persists a new record.
	CreateTradeRecord(ctx context.Context, rec *models.TradeRecord) error

	// UpdateTradeRecord persists the mutable decision state of a record.
	// Records with a durably written exit reason are never re-selected.
	UpdateTradeRecord(ctx context.Context, rec *models.TradeRecord) error

	// QueryPendingRecords returns pending records for the day whose
	// canonical slot is at or before asOfSlot.
	QueryPendingRecords(ctx context.Context, asOfSlot time.Time) ([]*models.TradeRecord, error)

	// QueryOpenRecords returns bought records for the day that have no
	// exit reason yet.
	QueryOpenRecords(ctx context.Context, day time.Time) ([]*models.TradeRecord, error)

	// GetRecords returns records matching the filter.
	GetRecords(ctx context.Context, filter RecordFilter) ([]*models.TradeRecord, error)

	// DailySummary aggregates the day's outcomes.
	DailySummary(ctx context.Context, day time.Time) (*DailySummary, error)

	// Lifecycle
	Close() error
}

// RecordFilter represents filters for querying trade records.
type RecordFilter struct {
	Day       time.Time
	Status    models.TradeStatus
	StockName string
	Limit     int
}

// DailySummary aggregates one trading day's outcomes.
type DailySummary struct {
	Day      time.Time
	Total    int
	Pending  int
	Bought   int
	Sold     int
	GrossPnL float64
}
