// Package repository holds the persistence adapters: the CSV paper trade
// ledger, the ClickHouse trade mirror and the Kafka decision publisher.
package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	"Aegis/pkg/logger"

	"github.com/shopspring/decimal"
)

// ErrLedgerWrite marks an I/O failure while appending to the ledger.
var ErrLedgerWrite = errors.New("ledger write failed")

const timestampLayout = "2006-01-02 15:04:05"

// LedgerHeader is the fixed column order of every ledger row.
var LedgerHeader = []string{"Timestamp", "Symbol", "Action", "Price", "Volume", "TP", "SL", "Reason", "Score"}

// CSVLedger appends accepted paper trades to a CSV file. Position size is a
// fixed fraction of a notional balance converted to units at entry price.
type CSVLedger struct {
	mu       sync.Mutex
	path     string
	balance  decimal.Decimal
	fraction decimal.Decimal
	now      func() time.Time
	log      *logger.Logger
}

type LedgerOption func(*CSVLedger)

func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *CSVLedger) { l.now = now }
}

func WithLedgerLogger(lg *logger.Logger) LedgerOption {
	return func(l *CSVLedger) { l.log = lg }
}

func NewCSVLedger(path string, balance, fraction float64, opts ...LedgerOption) *CSVLedger {
	l := &CSVLedger{
		path:     path,
		balance:  decimal.NewFromFloat(balance),
		fraction: decimal.NewFromFloat(fraction),
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Component("ledger")
	return l
}

// PositionSize is balance*fraction/price rounded to four decimals.
func (l *CSVLedger) PositionSize(price float64) float64 {
	if price <= 0 {
		return 0
	}
	v := l.balance.Mul(l.fraction).Div(decimal.NewFromFloat(price)).Round(4)
	return v.InexactFloat64()
}

// Record appends one row, writing the header first if the file does not
// exist yet. Failures wrap ErrLedgerWrite.
func (l *CSVLedger) Record(ctx context.Context, req models.TradeRequest) (models.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.TradeRecord{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	rec := models.TradeRecord{
		Timestamp:  l.now(),
		Symbol:     req.Symbol,
		Action:     req.Direction,
		Price:      req.Price,
		Volume:     l.PositionSize(req.Price),
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		Reason:     req.Reason,
		Score:      req.Score,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(rec); err != nil {
		l.log.Error("ledger append failed", logger.String("path", l.path), logger.Error(err))
		return models.TradeRecord{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	l.log.Info("paper trade recorded",
		logger.String("symbol", rec.Symbol),
		logger.String("action", string(rec.Action)),
		logger.Float("price", rec.Price),
		logger.Float("volume", rec.Volume),
		logger.Int("score", rec.Score),
	)
	return rec, nil
}

func (l *CSVLedger) append(rec models.TradeRecord) error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	// A missing or empty file (touch, logrotate copytruncate) needs the header.
	info, statErr := os.Stat(l.path)
	fresh := errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(LedgerHeader); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Write(encodeRecord(rec)); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Recent returns up to limit records, newest first. A missing ledger reads
// as empty.
func (l *CSVLedger) Recent(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.TradeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(LedgerHeader)
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 && rows[0][0] == LedgerHeader[0] {
		rows = rows[1:]
	}
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}

	out := make([]models.TradeRecord, 0, limit)
	for i := len(rows) - 1; i >= len(rows)-limit; i-- {
		rec, err := decodeRecord(rows[i])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeRecord(r models.TradeRecord) []string {
	return []string{
		r.Timestamp.Format(timestampLayout),
		r.Symbol,
		string(r.Action),
		formatFloat(r.Price),
		strconv.FormatFloat(r.Volume, 'f', 4, 64),
		formatFloat(r.TakeProfit),
		formatFloat(r.StopLoss),
		r.Reason,
		strconv.Itoa(r.Score),
	}
}

func decodeRecord(row []string) (models.TradeRecord, error) {
	ts, err := time.ParseInLocation(timestampLayout, row[0], time.Local)
	if err != nil {
		return models.TradeRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	nums := make([]float64, 4)
	for i, col := range []int{3, 4, 5, 6} {
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return models.TradeRecord{}, fmt.Errorf("%s: %w", LedgerHeader[col], err)
		}
		nums[i] = v
	}
	score, err := strconv.Atoi(row[8])
	if err != nil {
		return models.TradeRecord{}, fmt.Errorf("score: %w", err)
	}
	return models.TradeRecord{
		Timestamp:  ts,
		Symbol:     row[1],
		Action:     models.Direction(row[2]),
		Price:      nums[0],
		Volume:     nums[1],
		TakeProfit: nums[2],
		StopLoss:   nums[3],
		Reason:     row[7],
		Score:      score,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var _ drepo.Ledger = (*CSVLedger)(nil)
