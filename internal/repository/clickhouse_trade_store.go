package repository

import (
	"context"
	"database/sql"
	"fmt"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
)

// execer is the part of *sql.DB the store uses.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
}

// ClickHouseTradeStore mirrors accepted paper trades into ClickHouse for
// analysis. The CSV ledger stays the record of truth.
type ClickHouseTradeStore struct {
	db    execer
	table string
}

// NewClickHouseTradeStore creates the mirror on an open connection pool.
func NewClickHouseTradeStore(db *sql.DB, table string) *ClickHouseTradeStore {
	return &ClickHouseTradeStore{db: db, table: table}
}

func (s *ClickHouseTradeStore) Store(ctx context.Context, t models.TradeRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, action, price, volume, tp, sl, reason, score) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		t.Timestamp,
		t.Symbol,
		string(t.Action),
		t.Price,
		t.Volume,
		t.TakeProfit,
		t.StopLoss,
		t.Reason,
		uint8(t.Score),
	)
	if err != nil {
		return fmt.Errorf("clickhouse insert trade: %w", err)
	}
	return nil
}

func (s *ClickHouseTradeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTradeStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}

var _ drepo.TradeStore = (*ClickHouseTradeStore)(nil)
