package models

import "time"

// SimulationRequest describes one barrier simulation. TP and SL must straddle
// Entry on the sides implied by the trade direction.
type SimulationRequest struct {
	Entry      float64 `json:"entry"`
	Volatility float64 `json:"volatility"`
	Drift      float64 `json:"drift"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	Paths      int     `json:"paths"`
	Steps      int     `json:"steps"`
}

// IsLong reports whether the barriers describe a long trade (TP above entry).
func (r SimulationRequest) IsLong() bool {
	return r.TakeProfit > r.Entry
}

// SimulationMetadata echoes the request's shape.
type SimulationMetadata struct {
	Simulations  int `json:"simulations"`
	HorizonSteps int `json:"horizon_steps"`
}

// SimulationResult is the outcome of one engine run. WinProbability plus
// RuinProbability never exceeds 100; the remainder is the time-exit share.
type SimulationResult struct {
	WinProbability  float64            `json:"win_probability"`
	RuinProbability float64            `json:"ruin_probability"`
	RiskScore       int                `json:"risk_score"`
	ExecutionTime   time.Duration      `json:"execution_time"`
	Metadata        SimulationMetadata `json:"metadata"`
}

// TimeExitProbability is the share of paths that touched neither barrier.
func (r SimulationResult) TimeExitProbability() float64 {
	return 100 - r.WinProbability - r.RuinProbability
}

// PathFan is a small set of simulated price paths for charting.
type PathFan struct {
	Paths    [][]float64 `json:"paths"` // [step][path]
	MeanPath []float64   `json:"mean_path"`
}
