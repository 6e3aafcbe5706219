package models

import "time"

// Stage names the orchestrator states. An event carries the last stage it
// reached, so a skipped cycle reports the gate that closed.
type Stage string

const (
	StageFetch     Stage = "FETCH"
	StageSimulate  Stage = "SIMULATE"
	StageGateMath  Stage = "GATE_MATH"
	StageJudge     Stage = "JUDGE"
	StageGateScore Stage = "GATE_SCORE"
	StageExecute   Stage = "EXECUTE"
)

// Outcome is the terminal result of one cycle.
type Outcome string

const (
	OutcomeTraded      Outcome = "TRADED"
	OutcomeNoTrade     Outcome = "NO_TRADE"
	OutcomeFetchFailed Outcome = "FETCH_FAILED"
	OutcomeFailed      Outcome = "FAILED"
)

// DecisionEvent summarises one orchestrator cycle for audit and streaming.
type DecisionEvent struct {
	ID         string            `json:"id"`
	Symbol     string            `json:"symbol"`
	Stage      Stage             `json:"stage"`
	Outcome    Outcome           `json:"outcome"`
	Plan       *TradePlan        `json:"plan,omitempty"`
	Simulation *SimulationResult `json:"simulation,omitempty"`
	Verdict    *Verdict          `json:"verdict,omitempty"`
	Trade      *TradeRecord      `json:"trade,omitempty"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
}
