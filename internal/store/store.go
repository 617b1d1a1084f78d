package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/emspark/internal/metrics"
)

// API is the read surface the answering pipeline depends on. Block and slot
// bounds of 0 mean "whole day".
type API interface {
	FetchHourly(ctx context.Context, market string, start, end time.Time, blockStart, blockEnd int) ([]metrics.Row, error)
	FetchQuarter(ctx context.Context, market string, start, end time.Time, slotStart, slotEnd int) ([]metrics.Row, error)
}

// Store persists exchange price data in SQLite. Rows come back as generic
// maps because upstream feeds vary in which columns they populate; the
// metrics package owns alias resolution and numeric coercion.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS hourly_prices (
	market               TEXT NOT NULL,
	delivery_date        TEXT NOT NULL,
	block_index          INTEGER NOT NULL,
	price_avg_rs_per_mwh REAL,
	scheduled_mw_sum     REAL,
	purchase_bid_avg     REAL,
	sell_bid_avg         REAL,
	mcv_sum              REAL,
	duration_min         INTEGER NOT NULL DEFAULT 60,
	PRIMARY KEY (market, delivery_date, block_index)
);

CREATE TABLE IF NOT EXISTS quarter_prices (
	market           TEXT NOT NULL,
	delivery_date    TEXT NOT NULL,
	slot_index       INTEGER NOT NULL,
	price_rs_per_mwh REAL,
	scheduled_mw     REAL,
	purchase_bid     REAL,
	sell_bid         REAL,
	mcv              REAL,
	duration_min     INTEGER NOT NULL DEFAULT 15,
	PRIMARY KEY (market, delivery_date, slot_index)
);
`

func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (s *Store) FetchHourly(ctx context.Context, market string, start, end time.Time, blockStart, blockEnd int) ([]metrics.Row, error) {
	q := `SELECT market, delivery_date, block_index, price_avg_rs_per_mwh,
		scheduled_mw_sum, purchase_bid_avg, sell_bid_avg, mcv_sum, duration_min
		FROM hourly_prices
		WHERE market = ? AND delivery_date BETWEEN ? AND ?`
	args := []any{market, dateKey(start), dateKey(end)}
	if blockStart > 0 && blockEnd > 0 {
		q += ` AND block_index BETWEEN ? AND ?`
		args = append(args, blockStart, blockEnd)
	}
	q += ` ORDER BY delivery_date, block_index`
	return s.queryRows(ctx, q, args)
}

func (s *Store) FetchQuarter(ctx context.Context, market string, start, end time.Time, slotStart, slotEnd int) ([]metrics.Row, error) {
	q := `SELECT market, delivery_date, slot_index, price_rs_per_mwh,
		scheduled_mw, purchase_bid, sell_bid, mcv, duration_min
		FROM quarter_prices
		WHERE market = ? AND delivery_date BETWEEN ? AND ?`
	args := []any{market, dateKey(start), dateKey(end)}
	if slotStart > 0 && slotEnd > 0 {
		q += ` AND slot_index BETWEEN ? AND ?`
		args = append(args, slotStart, slotEnd)
	}
	q += ` ORDER BY delivery_date, slot_index`
	return s.queryRows(ctx, q, args)
}

func (s *Store) queryRows(ctx context.Context, query string, args []any) ([]metrics.Row, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []metrics.Row
	for rows.Next() {
		r := metrics.Row{}
		if err := rows.MapScan(r); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HourlyPrice is one hour block of cleared market data for ingestion.
type HourlyPrice struct {
	Market        string
	DeliveryDate  time.Time
	BlockIndex    int
	PriceRsPerMWh float64
	ScheduledMW   float64
	PurchaseBidMW float64
	SellBidMW     float64
	MCVMW         float64
	DurationMin   int
}

// QuarterPrice is one 15-minute slot of cleared market data for ingestion.
type QuarterPrice struct {
	Market        string
	DeliveryDate  time.Time
	SlotIndex     int
	PriceRsPerMWh float64
	ScheduledMW   float64
	PurchaseBidMW float64
	SellBidMW     float64
	MCVMW         float64
	DurationMin   int
}

func (s *Store) UpsertHourly(ctx context.Context, p HourlyPrice) error {
	if p.DurationMin <= 0 {
		p.DurationMin = 60
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO hourly_prices
		(market, delivery_date, block_index, price_avg_rs_per_mwh, scheduled_mw_sum,
		 purchase_bid_avg, sell_bid_avg, mcv_sum, duration_min)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Market, dateKey(p.DeliveryDate), p.BlockIndex, p.PriceRsPerMWh, p.ScheduledMW,
		p.PurchaseBidMW, p.SellBidMW, p.MCVMW, p.DurationMin)
	if err != nil {
		return fmt.Errorf("upsert hourly price: %w", err)
	}
	return nil
}

func (s *Store) UpsertQuarter(ctx context.Context, p QuarterPrice) error {
	if p.DurationMin <= 0 {
		p.DurationMin = 15
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO quarter_prices
		(market, delivery_date, slot_index, price_rs_per_mwh, scheduled_mw,
		 purchase_bid, sell_bid, mcv, duration_min)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Market, dateKey(p.DeliveryDate), p.SlotIndex, p.PriceRsPerMWh, p.ScheduledMW,
		p.PurchaseBidMW, p.SellBidMW, p.MCVMW, p.DurationMin)
	if err != nil {
		return fmt.Errorf("upsert quarter price: %w", err)
	}
	return nil
}

// Ensure Store satisfies the API interface at compile time.
var _ API = (*Store)(nil)
