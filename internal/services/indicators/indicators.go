// Package indicators derives snapshots and technical indicators from OHLCV candles.
package indicators

import (
	"errors"
	"fmt"
	"math"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	ATRPeriod          = 14
	VolumeAvgPeriod    = 20
	VolumeSurgePercent = 120
	baseWinrate        = 50
	trendAgreeBonus    = 15
	volumeSurgeBonus   = 10
	maxWinrate         = 99
)

// ErrInsufficientCandles is returned when a series is shorter than the window
// an indicator needs.
var ErrInsufficientCandles = errors.New("insufficient candles")

// MAPeriods returns the fast and slow moving-average windows for tf. Scalping
// timeframes use shorter windows.
func MAPeriods(tf drepo.Timeframe) (fast, slow int) {
	if tf.IsShort() {
		return 7, 25
	}
	return 14, 50
}

// TrueRange computes the per-bar true range. The first bar has no previous
// close and uses high-low alone.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := math.Abs(c.High - c.Low)
		if i > 0 {
			prev := candles[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR is the simple mean of the last period true ranges.
func ATR(candles []models.Candle, period int) (float64, error) {
	if period <= 0 || len(candles) < period {
		return 0, fmt.Errorf("%w: atr(%d) needs %d bars, have %d", ErrInsufficientCandles, period, period, len(candles))
	}
	tr := TrueRange(candles)
	return stat.Mean(tr[len(tr)-period:], nil), nil
}

// SMA is the mean of the last n values.
func SMA(values []float64, n int) (float64, error) {
	if n <= 0 || len(values) < n {
		return 0, fmt.Errorf("%w: sma(%d) over %d values", ErrInsufficientCandles, n, len(values))
	}
	return stat.Mean(values[len(values)-n:], nil), nil
}

// Bias is the mean simple close-to-close return over the last window bars.
// It is the per-step drift handed to the simulator.
func Bias(candles []models.Candle, window int) (float64, error) {
	if window <= 0 || len(candles) < window+1 {
		return 0, fmt.Errorf("%w: bias(%d) needs %d bars, have %d", ErrInsufficientCandles, window, window+1, len(candles))
	}
	tail := candles[len(candles)-window-1:]
	rets := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		prev := tail[i-1].Close
		if prev <= 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, tail[i].Close/prev-1)
	}
	return stat.Mean(rets, nil), nil
}

// VolumePower is the last bar's volume as a percentage of the trailing
// average volume. Zero average volume yields zero.
func VolumePower(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	vols := Volumes(candles[len(candles)-period:])
	avg := stat.Mean(vols, nil)
	if avg <= 0 {
		return 0
	}
	return vols[len(vols)-1] / avg * 100
}

// HeuristicWinrate scores a setup from the last candle's colour and volume.
func HeuristicWinrate(last models.Candle, trend models.Trend, volumePower float64) float64 {
	win := float64(baseWinrate)
	green := last.Close > last.Open
	if (trend == models.TrendUp && green) || (trend == models.TrendDown && !green) {
		win += trendAgreeBonus
	}
	if volumePower > VolumeSurgePercent {
		win += volumeSurgeBonus
	}
	return math.Min(win, maxWinrate)
}

func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Volumes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// BuildSnapshot derives a MarketSnapshot from candles ascending by open time.
func BuildSnapshot(symbol string, tf drepo.Timeframe, candles []models.Candle, now time.Time) (models.MarketSnapshot, error) {
	if len(candles) == 0 {
		return models.MarketSnapshot{}, fmt.Errorf("%w: no candles for %s", ErrInsufficientCandles, symbol)
	}
	price := candles[len(candles)-1].Close
	if price <= 0 {
		return models.MarketSnapshot{}, fmt.Errorf("non-positive last price %v for %s", price, symbol)
	}
	atr, err := ATR(candles, ATRPeriod)
	if err != nil {
		return models.MarketSnapshot{}, err
	}
	fast, _ := MAPeriods(tf)
	bias, err := Bias(candles, fast)
	if err != nil {
		return models.MarketSnapshot{}, err
	}

	return models.MarketSnapshot{
		Symbol:     symbol,
		Timeframe:  string(tf),
		Price:      price,
		ATR:        atr,
		Volatility: atr / price,
		Bias:       bias,
		Trend:      models.TrendFromBias(bias),
		CapturedAt: now,
	}, nil
}

// BuildIndicators computes the moving averages, volume power and heuristic
// win rate for the same candles a snapshot was built from.
func BuildIndicators(snap models.MarketSnapshot, candles []models.Candle, now time.Time) (models.IndicatorBundle, error) {
	fast, slow := MAPeriods(drepo.Timeframe(snap.Timeframe))
	closes := Closes(candles)
	maFast, err := SMA(closes, fast)
	if err != nil {
		return models.IndicatorBundle{}, err
	}
	maSlow, err := SMA(closes, slow)
	if err != nil {
		return models.IndicatorBundle{}, err
	}
	power := VolumePower(candles, VolumeAvgPeriod)

	return models.IndicatorBundle{
		Symbol:       snap.Symbol,
		Timeframe:    snap.Timeframe,
		MAFast:       maFast,
		MASlow:       maSlow,
		FastPeriod:   fast,
		SlowPeriod:   slow,
		VolumePower:  round(power, 1),
		HeuristicWin: HeuristicWinrate(candles[len(candles)-1], snap.Trend, power),
		CapturedAt:   now,
	}, nil
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// maxIndex returns the first index holding the maximum of xs.
func maxIndex(xs []float64) int {
	return floats.MaxIdx(xs)
}
