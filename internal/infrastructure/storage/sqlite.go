package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/momentum_pulse/internal/domain"
)

const defaultListLimit = 100

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			symbol TEXT NOT NULL,
			trading_symbol TEXT NOT NULL DEFAULT '',
			event TEXT NOT NULL,
			side TEXT NOT NULL,
			qty INTEGER NOT NULL,
			price REAL NOT NULL DEFAULT 0,
			sl_level REAL NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			dry_run BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, r *domain.TradeRecord) error {
	query := `INSERT INTO trades (id, symbol, trading_symbol, event, side, qty, price, sl_level, reason, order_id, dry_run, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Symbol, r.TradingSymbol, string(r.Event), string(r.Side), r.Quantity,
		r.Price, r.StopLevel, r.Reason, r.OrderID, r.DryRun, r.CreatedAt.UTC())
	return err
}

// ListTrades returns the newest records first. A non-positive limit uses
// the default page size.
func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, symbol, trading_symbol, event, side, qty, price, sl_level, reason, order_id, dry_run, created_at
			  FROM trades ORDER BY seq DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []*domain.TradeRecord{}
	for rows.Next() {
		var r domain.TradeRecord
		var event, side string
		if err := rows.Scan(&r.ID, &r.Symbol, &r.TradingSymbol, &event, &side, &r.Quantity,
			&r.Price, &r.StopLevel, &r.Reason, &r.OrderID, &r.DryRun, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Event = domain.TradeEvent(event)
		r.Side = domain.Side(side)
		trades = append(trades, &r)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
