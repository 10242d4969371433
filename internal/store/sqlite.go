package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// SQLiteStore implements TradeStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based trade store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trade_records (
		id TEXT PRIMARY KEY,
		stock_name TEXT NOT NULL,
		trigger_price REAL NOT NULL,
		alert_type TEXT NOT NULL,
		alert_slot DATETIME NOT NULL,
		scan_name TEXT,

		contract_symbol TEXT,
		contract_type TEXT,
		contract_strike REAL,
		contract_expiry DATETIME,
		contract_trading_symbol TEXT,
		contract_instrument_key TEXT,
		contract_lot_size INTEGER,

		status TEXT NOT NULL DEFAULT 'pending',
		no_entry_reason TEXT,

		slope_angle REAL,
		slope_status TEXT,
		slope_direction TEXT,

		candle_ratio REAL,
		candle_status TEXT,

		quantity INTEGER DEFAULT 0,
		buy_price REAL,
		buy_time DATETIME,
		stop_loss REAL,

		sell_price REAL,
		sell_time DATETIME,
		exit_reason TEXT,
		pnl REAL,

		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_status ON trade_records(status);
	CREATE INDEX IF NOT EXISTS idx_records_slot ON trade_records(alert_slot);
	CREATE INDEX IF NOT EXISTS idx_records_created ON trade_records(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateTradeRecord persists a new record.
func (s *SQLiteStore) CreateTradeRecord(ctx context.Context, rec *models.TradeRecord) error {
	query := `
	INSERT INTO trade_records (
		id, stock_name, trigger_price, alert_type, alert_slot, scan_name,
		contract_symbol, contract_type, contract_strike, contract_expiry,
		contract_trading_symbol, contract_instrument_key, contract_lot_size,
		status, no_entry_reason,
		slope_angle, slope_status, slope_direction,
		candle_ratio, candle_status,
		quantity, buy_price, buy_time, stop_loss,
		sell_price, sell_time, exit_reason, pnl,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := recordArgs(rec)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting trade record: %w", err)
	}
	return nil
}

// UpdateTradeRecord persists the mutable decision state of a record.
func (s *SQLiteStore) UpdateTradeRecord(ctx context.Context, rec *models.TradeRecord) error {
	query := `
	UPDATE trade_records SET
		status = ?, no_entry_reason = ?,
		slope_angle = ?, slope_status = ?, slope_direction = ?,
		candle_ratio = ?, candle_status = ?,
		quantity = ?, buy_price = ?, buy_time = ?, stop_loss = ?,
		sell_price = ?, sell_time = ?, exit_reason = ?, pnl = ?,
		updated_at = ?
	WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(rec.Status), string(rec.NoEntryReason),
		rec.SlopeAngle, string(rec.SlopeStatus), string(rec.SlopeDirection),
		rec.CandleRatio, string(rec.CandleStatus),
		rec.Qty, rec.BuyPrice, nullTime(rec.BuyTime), rec.StopLoss,
		rec.SellPrice, nullTime(rec.SellTime), string(rec.ExitReason), rec.PnL,
		rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating trade record: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("trade record not found: %s", rec.ID)
	}
	return nil
}

// QueryPendingRecords returns the day's pending records at or before asOfSlot.
func (s *SQLiteStore) QueryPendingRecords(ctx context.Context, asOfSlot time.Time) ([]*models.TradeRecord, error) {
	query := selectColumns + `
	WHERE status = 'pending'
	  AND alert_slot <= ?
	  AND created_at >= ? AND created_at < ?
	ORDER BY alert_slot, created_at
	`
	dayStart := utils.DayStart(asOfSlot)
	return s.queryRecords(ctx, query, asOfSlot, dayStart, dayStart.AddDate(0, 0, 1))
}

// QueryOpenRecords returns the day's bought records with no exit reason.
func (s *SQLiteStore) QueryOpenRecords(ctx context.Context, day time.Time) ([]*models.TradeRecord, error) {
	query := selectColumns + `
	WHERE status = 'bought'
	  AND (exit_reason IS NULL OR exit_reason = '')
	  AND created_at >= ? AND created_at < ?
	ORDER BY buy_time
	`
	dayStart := utils.DayStart(day)
	return s.queryRecords(ctx, query, dayStart, dayStart.AddDate(0, 0, 1))
}

// GetRecords returns records matching the filter.
func (s *SQLiteStore) GetRecords(ctx context.Context, filter RecordFilter) ([]*models.TradeRecord, error) {
	var conds []string
	var args []interface{}

	if !filter.Day.IsZero() {
		dayStart := utils.DayStart(filter.Day)
		conds = append(conds, "created_at >= ? AND created_at < ?")
		args = append(args, dayStart, dayStart.AddDate(0, 0, 1))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.StockName != "" {
		conds = append(conds, "stock_name = ?")
		args = append(args, filter.StockName)
	}

	query := selectColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return s.queryRecords(ctx, query, args...)
}

// DailySummary aggregates the day's outcomes.
func (s *SQLiteStore) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	dayStart := utils.DayStart(day)
	query := `
	SELECT
		COUNT(*),
		SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'bought' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'sold' THEN 1 ELSE 0 END),
		COALESCE(SUM(CASE WHEN status = 'sold' THEN pnl ELSE 0 END), 0)
	FROM trade_records
	WHERE created_at >= ? AND created_at < ?
	`

	summary := &DailySummary{Day: dayStart}
	var pending, bought, sold sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, dayStart, dayStart.AddDate(0, 0, 1)).
		Scan(&summary.Total, &pending, &bought, &sold, &summary.GrossPnL)
	if err != nil {
		return nil, fmt.Errorf("querying daily summary: %w", err)
	}
	summary.Pending = int(pending.Int64)
	summary.Bought = int(bought.Int64)
	summary.Sold = int(sold.Int64)

	return summary, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `
	SELECT id, stock_name, trigger_price, alert_type, alert_slot, scan_name,
		contract_symbol, contract_type, contract_strike, contract_expiry,
		contract_trading_symbol, contract_instrument_key, contract_lot_size,
		status, no_entry_reason,
		slope_angle, slope_status, slope_direction,
		candle_ratio, candle_status,
		quantity, buy_price, buy_time, stop_loss,
		sell_price, sell_time, exit_reason, pnl,
		created_at, updated_at
	FROM trade_records
`

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trade records: %w", err)
	}
	defer rows.Close()

	var records []*models.TradeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (*models.TradeRecord, error) {
	var rec models.TradeRecord
	var scanName, noEntry, slopeStatus, slopeDir, candleStatus, exitReason sql.NullString
	var slopeAngle, candleRatio, buyPrice, stopLoss, sellPrice, pnl sql.NullFloat64
	var qty sql.NullInt64
	var buyTime, sellTime sql.NullTime

	var cSymbol, cType, cTradingSymbol, cInstrumentKey sql.NullString
	var cStrike sql.NullFloat64
	var cExpiry sql.NullTime
	var cLotSize sql.NullInt64

	err := rows.Scan(
		&rec.ID, &rec.Alert.StockName, &rec.Alert.TriggerPrice, &rec.Alert.Type, &rec.Alert.Slot, &scanName,
		&cSymbol, &cType, &cStrike, &cExpiry,
		&cTradingSymbol, &cInstrumentKey, &cLotSize,
		&rec.Status, &noEntry,
		&slopeAngle, &slopeStatus, &slopeDir,
		&candleRatio, &candleStatus,
		&qty, &buyPrice, &buyTime, &stopLoss,
		&sellPrice, &sellTime, &exitReason, &pnl,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning trade record: %w", err)
	}

	rec.Alert.ID = rec.ID
	rec.Alert.ScanName = scanName.String
	rec.Alert.CreatedAt = rec.CreatedAt
	rec.NoEntryReason = models.NoEntryReason(noEntry.String)
	rec.SlopeAngle = slopeAngle.Float64
	rec.SlopeStatus = models.GateStatus(slopeStatus.String)
	rec.SlopeDirection = models.SlopeDirection(slopeDir.String)
	rec.CandleRatio = candleRatio.Float64
	rec.CandleStatus = models.GateStatus(candleStatus.String)
	rec.Qty = int(qty.Int64)
	rec.BuyPrice = buyPrice.Float64
	rec.BuyTime = buyTime.Time
	rec.StopLoss = stopLoss.Float64
	rec.SellPrice = sellPrice.Float64
	rec.SellTime = sellTime.Time
	rec.ExitReason = models.ExitReason(exitReason.String)
	rec.PnL = pnl.Float64

	if cTradingSymbol.Valid && cTradingSymbol.String != "" {
		rec.Contract = &models.OptionContract{
			UnderlyingSymbol: cSymbol.String,
			Type:             models.OptionType(cType.String),
			Strike:           cStrike.Float64,
			Expiry:           cExpiry.Time,
			TradingSymbol:    cTradingSymbol.String,
			InstrumentKey:    cInstrumentKey.String,
			LotSize:          int(cLotSize.Int64),
		}
	}

	return &rec, nil
}

func recordArgs(rec *models.TradeRecord) []interface{} {
	var cSymbol, cType, cTradingSymbol, cInstrumentKey interface{}
	var cStrike, cLotSize interface{}
	var cExpiry interface{}
	if rec.Contract != nil {
		cSymbol = rec.Contract.UnderlyingSymbol
		cType = string(rec.Contract.Type)
		cStrike = rec.Contract.Strike
		cExpiry = rec.Contract.Expiry
		cTradingSymbol = rec.Contract.TradingSymbol
		cInstrumentKey = rec.Contract.InstrumentKey
		cLotSize = rec.Contract.LotSize
	}

	return []interface{}{
		rec.ID, rec.Alert.StockName, rec.Alert.TriggerPrice, string(rec.Alert.Type), rec.Alert.Slot, rec.Alert.ScanName,
		cSymbol, cType, cStrike, cExpiry,
		cTradingSymbol, cInstrumentKey, cLotSize,
		string(rec.Status), string(rec.NoEntryReason),
		rec.SlopeAngle, string(rec.SlopeStatus), string(rec.SlopeDirection),
		rec.CandleRatio, string(rec.CandleStatus),
		rec.Qty, rec.BuyPrice, nullTime(rec.BuyTime), rec.StopLoss,
		rec.SellPrice, nullTime(rec.SellTime), string(rec.ExitReason), rec.PnL,
		rec.CreatedAt, rec.UpdatedAt,
	}
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
