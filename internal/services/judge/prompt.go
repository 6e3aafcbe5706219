package judge

import (
	"encoding/json"
	"fmt"

	"Aegis/internal/domain/models"
)

// promptTemplate takes the market data JSON, the simulation JSON and the
// free-text context, in that order.
const promptTemplate = `ROLE: You are the Chief Risk Officer of a systematic crypto fund.
TASK: Review quantitative inputs and market context and make the final funding decision for one trade.

INPUTS:
1. Market data: %s (price, ATR, trend)
2. Monte Carlo simulation: %s (barrier touch probabilities over %d simulated paths)
3. Context: %s

DECISION RULES (STRICT):
1. MATH FIRST: if win_probability is below 60, REJECT regardless of any context.
2. CONTEXT CHECK: if the math passes, look for severe fear, uncertainty or doubt in the context (exchange failures, war, surprise rate hikes). Severe negative context means REJECT.
3. SCORE from 1 to 15:
   - 1-7: risk too high, REJECT.
   - 8-13: acceptable risk, APPROVE with small size.
   - 14-15: exceptional setup, STRONG_BUY.

OUTPUT FORMAT (MANDATORY):
Return exactly one JSON object and nothing else. No markdown, no commentary.
{
  "decision": "REJECT" | "APPROVE" | "STRONG_BUY",
  "score": <integer 1-15>,
  "reason": "<short reason, under 20 words>",
  "risk_flags": ["<risk 1>", "<risk 2>"]
}
`

type marketData struct {
	Symbol     string       `json:"symbol"`
	Timeframe  string       `json:"timeframe"`
	Price      float64      `json:"price"`
	ATR        float64      `json:"atr"`
	Volatility float64      `json:"volatility"`
	Bias       float64      `json:"bias"`
	Trend      models.Trend `json:"trend"`
}

type mathResults struct {
	WinProbability  float64 `json:"win_probability"`
	RuinProbability float64 `json:"ruin_probability"`
	RiskScore       int     `json:"risk_score"`
	Simulations     int     `json:"simulations"`
	HorizonSteps    int     `json:"horizon_steps"`
}

// BuildPrompt renders the single request sent to the judgment service.
func BuildPrompt(snap models.MarketSnapshot, sim models.SimulationResult, contextText string) (string, error) {
	md, err := json.Marshal(marketData{
		Symbol:     snap.Symbol,
		Timeframe:  snap.Timeframe,
		Price:      snap.Price,
		ATR:        snap.ATR,
		Volatility: snap.Volatility,
		Bias:       snap.Bias,
		Trend:      snap.Trend,
	})
	if err != nil {
		return "", fmt.Errorf("marshal market data: %w", err)
	}
	mr, err := json.Marshal(mathResults{
		WinProbability:  sim.WinProbability,
		RuinProbability: sim.RuinProbability,
		RiskScore:       sim.RiskScore,
		Simulations:     sim.Metadata.Simulations,
		HorizonSteps:    sim.Metadata.HorizonSteps,
	})
	if err != nil {
		return "", fmt.Errorf("marshal simulation: %w", err)
	}
	if contextText == "" {
		contextText = "No notable news."
	}
	return fmt.Sprintf(promptTemplate, md, mr, sim.Metadata.Simulations, contextText), nil
}

// ContextSummary is the short text the orchestrator passes alongside the
// quantitative inputs.
func ContextSummary(snap models.MarketSnapshot, sim models.SimulationResult) string {
	return fmt.Sprintf("Trend %s. ATR %.2f. Math Winrate %.2f%%.", snap.Trend, snap.ATR, sim.WinProbability)
}
