package service

import (
	"context"

	"Aegis/internal/domain/models"
)

// Simulator estimates barrier-hit probabilities for a proposed trade.
type Simulator interface {
	Run(req models.SimulationRequest) (models.SimulationResult, error)
}

// Judge produces a verdict for a snapshot and its simulation. Implementations
// resolve every failure into a well-formed Verdict.
type Judge interface {
	Evaluate(ctx context.Context, snap models.MarketSnapshot, sim models.SimulationResult, contextText string) models.Verdict
}

// SnapshotProvider serves cached market state.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (models.MarketSnapshot, error)
	Indicators(ctx context.Context) (models.IndicatorBundle, error)
	Volatility(ctx context.Context, days int) (models.VolatilityProfile, error)
}

// PathSimulator additionally renders sample paths for dashboards.
type PathSimulator interface {
	Simulator
	Paths(entry, volatility, drift float64, paths, steps int) (models.PathFan, error)
}
