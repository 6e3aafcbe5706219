package repository

import (
	"context"

	"Aegis/internal/domain/models"
)

// CandleSource is the external market data provider. Candles come back
// ascending by open time.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
}

// Ledger appends accepted paper trades.
type Ledger interface {
	Record(ctx context.Context, req models.TradeRequest) (models.TradeRecord, error)
	Recent(ctx context.Context, limit int) ([]models.TradeRecord, error)
}

// TradeStore mirrors accepted trades into an analytical store.
type TradeStore interface {
	Store(ctx context.Context, t models.TradeRecord) error
	Health(ctx context.Context) error
	Close() error
}

// DecisionPublisher fans cycle outcomes out to downstream consumers.
type DecisionPublisher interface {
	Publish(ctx context.Context, ev models.DecisionEvent) error
	Close() error
}

type Metrics interface {
	RecordCycle(outcome string)
	RecordStage(stage string, seconds float64)
	RecordWinProbability(symbol string, pct float64)
	RecordVerdict(decision string, score int)
	RecordJudgeAttempt(result string)
	RecordCacheLookup(kind string, hit bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordPublish(topic string, ok bool, bytes int, seconds float64)
}
