package usecase

import "Aegis/internal/domain/models"

// PlanTrade derives the trade setup from a snapshot: long when the trend is
// UP, short otherwise, with barriers placed ATR multiples away from price.
func PlanTrade(snap models.MarketSnapshot, tpMultiple, slMultiple float64) models.TradePlan {
	tp := tpMultiple * snap.ATR
	sl := slMultiple * snap.ATR
	if snap.Trend == models.TrendUp {
		return models.TradePlan{
			Direction:  models.DirectionLong,
			Entry:      snap.Price,
			TakeProfit: snap.Price + tp,
			StopLoss:   snap.Price - sl,
		}
	}
	return models.TradePlan{
		Direction:  models.DirectionShort,
		Entry:      snap.Price,
		TakeProfit: snap.Price - tp,
		StopLoss:   snap.Price + sl,
	}
}
