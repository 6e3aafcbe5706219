package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Aegis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func longTrade(score int) models.TradeRequest {
	return models.TradeRequest{
		Symbol:     "BTC/USDT",
		Direction:  models.DirectionLong,
		Price:      65000,
		TakeProfit: 66000,
		StopLoss:   64250,
		Reason:     "Math and trend agree, low event risk",
		Score:      score,
	}
}

func TestRecordWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "paper_trades.csv")
	l := NewCSVLedger(path, 1000, 0.05, WithLedgerClock(fixedClock()))

	rec, err := l.Record(context.Background(), longTrade(9))
	require.NoError(t, err)
	assert.Equal(t, 0.0008, rec.Volume)
	_, err = l.Record(context.Background(), longTrade(12))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp,Symbol,Action,Price,Volume,TP,SL,Reason,Score", lines[0])
	assert.Equal(t, `2025-03-01 09:31:00,BTC/USDT,LONG,65000,0.0008,66000,64250,"Math and trend agree, low event risk",9`, lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",12"))
}

func TestRecordWritesHeaderIntoEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewCSVLedger(path, 1000, 0.05, WithLedgerClock(fixedClock())).Record(context.Background(), longTrade(9))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(LedgerHeader, ","), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",9"))
}

func TestRecordAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	_, err := NewCSVLedger(path, 1000, 0.05).Record(context.Background(), longTrade(9))
	require.NoError(t, err)

	// a second ledger on the same file must not repeat the header
	_, err = NewCSVLedger(path, 1000, 0.05).Record(context.Background(), longTrade(10))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "Timestamp,Symbol"))
}

func TestRecordReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	l := NewCSVLedger(filepath.Join(blocker, "trades.csv"), 1000, 0.05)
	_, err := l.Record(context.Background(), longTrade(9))
	assert.ErrorIs(t, err, ErrLedgerWrite)
}

func TestPositionSize(t *testing.T) {
	l := NewCSVLedger("unused.csv", 1000, 0.05)
	assert.Equal(t, 0.0008, l.PositionSize(65000))
	assert.Equal(t, 0.5, l.PositionSize(100))
	assert.Equal(t, 0.0, l.PositionSize(0))
}

func TestRecentNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	l := NewCSVLedger(path, 1000, 0.05, WithLedgerClock(fixedClock()))

	empty, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for score := 8; score <= 12; score++ {
		_, err := l.Record(context.Background(), longTrade(score))
		require.NoError(t, err)
	}

	recent, err := l.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int{12, 11, 10}, []int{recent[0].Score, recent[1].Score, recent[2].Score})
	assert.Equal(t, models.DirectionLong, recent[0].Action)
	assert.Equal(t, 66000.0, recent[0].TakeProfit)
	assert.Equal(t, "Math and trend agree, low event risk", recent[0].Reason)

	all, err := l.Recent(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
