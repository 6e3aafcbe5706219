package models

import "time"

// Direction of a proposed trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// TradePlan is the deterministic setup derived from a snapshot.
type TradePlan struct {
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry"`
	TakeProfit float64   `json:"tp"`
	StopLoss   float64   `json:"sl"`
}

// TradeRequest is what the orchestrator hands to the ledger on acceptance.
type TradeRequest struct {
	Symbol     string
	Direction  Direction
	Price      float64
	TakeProfit float64
	StopLoss   float64
	Reason     string
	Score      int
}

// TradeRecord is one accepted paper trade. Records are append-only.
type TradeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Action     Direction `json:"action"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	TakeProfit float64   `json:"tp"`
	StopLoss   float64   `json:"sl"`
	Reason     string    `json:"reason"`
	Score      int       `json:"score"`
}
