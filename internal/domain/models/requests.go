package models

// Requests for the read-only HTTP API.

type MarketRequest struct {
	Paths int `query:"paths" json:"paths" default:"500" validate:"gte=1,lte=5000"`
}

type SimulationPathsRequest struct {
	Paths int `query:"paths" json:"paths" default:"20" validate:"gte=1,lte=200"`
	Steps int `query:"steps" json:"steps" default:"60" validate:"gte=1,lte=500"`
}

type VolatilityRequest struct {
	Days int `query:"days" json:"days" default:"30" validate:"gte=1,lte=41"`
}

type TradesRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=500"`
}

// MarketView is the combined payload behind GET /api/market.
type MarketView struct {
	Price   float64 `json:"price"`
	ATR     float64 `json:"atr"`
	Trend   Trend   `json:"trend"`
	Bias    float64 `json:"bias"`
	Winrate float64 `json:"winrate"`
	TP      float64 `json:"tp"`
	SL      float64 `json:"sl"`
}
