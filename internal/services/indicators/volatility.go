package indicators

import (
	"fmt"
	"sort"
	"time"

	"Aegis/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultLocation is the trading desk's local time used to bucket hours.
var DefaultLocation = time.FixedZone("UTC+7", 7*60*60)

// IntradayRange is a candle's high-low range as a percentage of its open.
func IntradayRange(c models.Candle) float64 {
	if c.Open <= 0 {
		return 0
	}
	return (c.High - c.Low) / c.Open * 100
}

// Profile groups hourly candles by local hour of day and summarises their
// intraday ranges. Only hours present in the data appear in the chart.
func Profile(symbol string, days int, candles []models.Candle, loc *time.Location, now time.Time) (models.VolatilityProfile, error) {
	if len(candles) == 0 {
		return models.VolatilityProfile{}, fmt.Errorf("%w: no hourly candles for %s", ErrInsufficientCandles, symbol)
	}
	if loc == nil {
		loc = DefaultLocation
	}

	all := make([]float64, len(candles))
	byHour := make(map[int][]float64, 24)
	for i, c := range candles {
		r := IntradayRange(c)
		all[i] = r
		h := c.OpenTime.In(loc).Hour()
		byHour[h] = append(byHour[h], r)
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	means := make([]float64, len(hours))
	chart := make([]models.HourlyVolatility, len(hours))
	for i, h := range hours {
		means[i] = stat.Mean(byHour[h], nil)
		chart[i] = models.HourlyVolatility{Hour: h, Volatility: round(means[i], 2)}
	}
	best := maxIndex(means)

	return models.VolatilityProfile{
		Symbol:       symbol,
		Days:         days,
		Chart:        chart,
		AvgIntraday:  round(stat.Mean(all, nil), 2),
		PeakIntraday: round(floats.Max(all), 2),
		BestHour:     fmt.Sprintf("%d:00", hours[best]),
		BestHourVol:  round(means[best], 2),
		CapturedAt:   now,
	}, nil
}
