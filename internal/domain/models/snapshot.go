package models

import (
	"errors"
	"time"
)

// ErrDataFetch marks a market-data provider failure. Cycles that hit it are
// retried after the short recovery delay.
var ErrDataFetch = errors.New("market data fetch failed")

// Trend is the categorical direction label derived from the sign of bias.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
)

// TrendFromBias maps a signed drift onto a trend label. Zero bias counts as DOWN.
func TrendFromBias(bias float64) Trend {
	if bias > 0 {
		return TrendUp
	}
	return TrendDown
}

// Candle is one OHLCV bar as returned by the market data provider.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// MarketSnapshot is an immutable view of one instrument at capture time.
// A fresher snapshot supersedes it; nothing edits it in place.
type MarketSnapshot struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Price      float64   `json:"price"`
	ATR        float64   `json:"atr_value"`
	Volatility float64   `json:"volatility"` // ATR / price
	Bias       float64   `json:"bias"`       // mean per-bar return
	Trend      Trend     `json:"trend"`
	CapturedAt time.Time `json:"captured_at"`
}

// IndicatorBundle holds the technical indicators computed alongside a snapshot.
type IndicatorBundle struct {
	Symbol       string    `json:"symbol"`
	Timeframe    string    `json:"timeframe"`
	MAFast       float64   `json:"ma_fast"`
	MASlow       float64   `json:"ma_slow"`
	FastPeriod   int       `json:"fast_period"`
	SlowPeriod   int       `json:"slow_period"`
	VolumePower  float64   `json:"volume_power"`
	HeuristicWin float64   `json:"winrate"`
	CapturedAt   time.Time `json:"captured_at"`
}

// HourlyVolatility is the mean intraday range of candles opening in one local hour.
type HourlyVolatility struct {
	Hour       int     `json:"hour"`
	Volatility float64 `json:"volatility"`
}

// VolatilityProfile summarises long-horizon intraday volatility by hour of day.
type VolatilityProfile struct {
	Symbol       string             `json:"symbol"`
	Days         int                `json:"days"`
	Chart        []HourlyVolatility `json:"chart"`
	AvgIntraday  float64            `json:"avg_intraday"`
	PeakIntraday float64            `json:"peak_intraday"`
	BestHour     string             `json:"best_hour"`
	BestHourVol  float64            `json:"best_hour_vol"`
	CapturedAt   time.Time          `json:"captured_at"`
}
