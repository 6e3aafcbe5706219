package usecase

import (
	"context"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	domsvc "Aegis/internal/domain/service"
)

// Dashboard serves the read-only views behind the HTTP API. It shares the
// snapshot cache with the orchestrator and never writes to the ledger.
type Dashboard struct {
	snapshots domsvc.SnapshotProvider
	sim       domsvc.PathSimulator
	ledger    drepo.Ledger
	cfg       PipelineConfig
}

func NewDashboard(snapshots domsvc.SnapshotProvider, sim domsvc.PathSimulator, ledger drepo.Ledger, cfg PipelineConfig) *Dashboard {
	return &Dashboard{snapshots: snapshots, sim: sim, ledger: ledger, cfg: cfg}
}

// Market returns the live snapshot with the planned barriers and the
// simulated win rate over the given number of paths.
func (d *Dashboard) Market(ctx context.Context, paths int) (models.MarketView, error) {
	snap, err := d.snapshots.Snapshot(ctx)
	if err != nil {
		return models.MarketView{}, err
	}
	plan := PlanTrade(snap, d.cfg.TPMultiple, d.cfg.SLMultiple)
	sim, err := d.sim.Run(models.SimulationRequest{
		Entry:      plan.Entry,
		Volatility: snap.Volatility,
		Drift:      snap.Bias,
		TakeProfit: plan.TakeProfit,
		StopLoss:   plan.StopLoss,
		Paths:      paths,
		Steps:      d.cfg.Steps,
	})
	if err != nil {
		return models.MarketView{}, err
	}
	return models.MarketView{
		Price:   snap.Price,
		ATR:     snap.ATR,
		Trend:   snap.Trend,
		Bias:    snap.Bias,
		Winrate: sim.WinProbability,
		TP:      plan.TakeProfit,
		SL:      plan.StopLoss,
	}, nil
}

func (d *Dashboard) Indicators(ctx context.Context) (models.IndicatorBundle, error) {
	return d.snapshots.Indicators(ctx)
}

// SimulationPaths renders a fan of sample paths from the live snapshot.
func (d *Dashboard) SimulationPaths(ctx context.Context, paths, steps int) (models.PathFan, error) {
	snap, err := d.snapshots.Snapshot(ctx)
	if err != nil {
		return models.PathFan{}, err
	}
	return d.sim.Paths(snap.Price, snap.Volatility, snap.Bias, paths, steps)
}

func (d *Dashboard) Volatility(ctx context.Context, days int) (models.VolatilityProfile, error) {
	return d.snapshots.Volatility(ctx, days)
}

// Trades returns up to limit ledger records, newest first.
func (d *Dashboard) Trades(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	return d.ledger.Recent(ctx, limit)
}
