package models

// Decision is the judgment tag attached to a verdict.
type Decision string

const (
	DecisionReject    Decision = "REJECT"
	DecisionApprove   Decision = "APPROVE"
	DecisionStrongBuy Decision = "STRONG_BUY"
	DecisionError     Decision = "ERROR"
)

// Verdict is the structured output of one judgment call.
type Verdict struct {
	Decision  Decision `json:"decision"`
	Score     int      `json:"score"`
	Reason    string   `json:"reason"`
	RiskFlags []string `json:"risk_flags"`
}
