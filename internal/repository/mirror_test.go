package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"Aegis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	query string
	args  []any
	err   error
}

func (f *fakeExec) ExecContext(_ context.Context, q string, args ...any) (sql.Result, error) {
	f.query, f.args = q, args
	return nil, f.err
}

func (f *fakeExec) PingContext(context.Context) error { return f.err }

func TestClickHouseTradeStoreInsert(t *testing.T) {
	db := &fakeExec{}
	s := &ClickHouseTradeStore{db: db, table: "aegis.paper_trades"}
	ts := time.Date(2025, 3, 1, 9, 31, 0, 0, time.UTC)

	err := s.Store(context.Background(), models.TradeRecord{
		Timestamp: ts, Symbol: "BTC/USDT", Action: models.DirectionLong,
		Price: 65000, Volume: 0.0008, TakeProfit: 66000, StopLoss: 64250, Reason: "ok", Score: 9,
	})
	require.NoError(t, err)
	assert.Contains(t, db.query, "INSERT INTO aegis.paper_trades")
	assert.Equal(t, []any{ts, "BTC/USDT", "LONG", 65000.0, 0.0008, 66000.0, 64250.0, "ok", uint8(9)}, db.args)
	assert.NoError(t, s.Health(context.Background()))
}

func TestClickHouseTradeStoreWrapsError(t *testing.T) {
	boom := errors.New("code: 60, table does not exist")
	s := &ClickHouseTradeStore{db: &fakeExec{err: boom}, table: "t"}
	assert.ErrorIs(t, s.Store(context.Background(), models.TradeRecord{}), boom)
}

type fakeProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestKafkaDecisionPublisherKeysBySymbol(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaDecisionPublisher(fp, "aegis.decisions")
	ev := models.DecisionEvent{ID: "c-1", Symbol: "BTC/USDT", Outcome: models.OutcomeNoTrade}

	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Equal(t, "aegis.decisions", fp.topic)
	assert.Equal(t, []byte("BTC/USDT"), fp.key)
	assert.Equal(t, ev, fp.value)
	assert.NoError(t, p.Close())
}
