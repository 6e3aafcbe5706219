package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	domsvc "Aegis/internal/domain/service"
	"Aegis/internal/services/judge"
	"Aegis/pkg/logger"
	"Aegis/pkg/metrics"

	"github.com/google/uuid"
)

// PipelineConfig holds the gates, barrier multiples and loop delays.
type PipelineConfig struct {
	Symbol        string
	CycleDelay    time.Duration
	RecoveryDelay time.Duration
	MinWinRate    float64
	MinScore      int
	TPMultiple    float64
	SLMultiple    float64
	Paths         int
	Steps         int
}

// DefaultPipelineConfig returns the production gates: 60% math win rate,
// judgment score 8, TP at 2 ATR and SL at 1.5 ATR.
func DefaultPipelineConfig(symbol string) PipelineConfig {
	return PipelineConfig{
		Symbol:        symbol,
		CycleDelay:    60 * time.Second,
		RecoveryDelay: 10 * time.Second,
		MinWinRate:    60,
		MinScore:      8,
		TPMultiple:    2.0,
		SLMultiple:    1.5,
	}
}

// DecisionSink receives every finished cycle, e.g. a websocket hub.
type DecisionSink interface {
	Broadcast(ev models.DecisionEvent)
}

// CycleReport is the result of one pass through the state machine.
type CycleReport struct {
	Event     models.DecisionEvent
	NextDelay time.Duration
}

// Orchestrator drives FETCH → SIMULATE → GATE_MATH → JUDGE → GATE_SCORE →
// EXECUTE|SKIP, one cycle at a time.
type Orchestrator struct {
	cfg       PipelineConfig
	snapshots domsvc.SnapshotProvider
	sim       domsvc.Simulator
	judge     domsvc.Judge
	ledger    drepo.Ledger
	store     drepo.TradeStore
	publisher drepo.DecisionPublisher
	sink      DecisionSink
	metrics   drepo.Metrics
	log       *logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	newID     func() string
}

// OrchestratorOption configures Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTradeStore mirrors executed trades. Mirror failures are logged only.
func WithTradeStore(s drepo.TradeStore) OrchestratorOption {
	return func(o *Orchestrator) { o.store = s }
}

func WithPublisher(p drepo.DecisionPublisher) OrchestratorOption {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithDecisionSink(s DecisionSink) OrchestratorOption {
	return func(o *Orchestrator) { o.sink = s }
}

func WithOrchestratorMetrics(m drepo.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithOrchestratorLogger(l *logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}

// WithCycleSleeper replaces the inter-cycle wait.
func WithCycleSleeper(fn func(ctx context.Context, d time.Duration) error) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = fn }
}

func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(cfg PipelineConfig, snapshots domsvc.SnapshotProvider, sim domsvc.Simulator, j domsvc.Judge, ledger drepo.Ledger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		snapshots: snapshots,
		sim:       sim,
		judge:     j,
		ledger:    ledger,
		metrics:   metrics.Nop{},
		log:       logger.Nop(),
		sleep:     sleepCtx,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run loops until ctx is cancelled. A failed or panicking cycle never stops
// the loop; it only shortens the next wait to the recovery delay.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("orchestrator started",
		logger.String("symbol", o.cfg.Symbol),
		logger.Duration("cycle_delay", o.cfg.CycleDelay),
		logger.Float("min_win_rate", o.cfg.MinWinRate),
		logger.Int("min_score", o.cfg.MinScore))
	for {
		if ctx.Err() != nil {
			o.log.Info("orchestrator stopped")
			return nil
		}
		report := o.RunCycle(ctx)
		if err := o.sleep(ctx, report.NextDelay); err != nil {
			o.log.Info("orchestrator stopped")
			return nil
		}
	}
}

// RunCycle executes one full cycle and reports how long to wait before the
// next one.
func (o *Orchestrator) RunCycle(ctx context.Context) (report CycleReport) {
	ev := models.DecisionEvent{
		ID:        o.newID(),
		Symbol:    o.cfg.Symbol,
		StartedAt: o.now(),
	}
	report.NextDelay = o.cfg.CycleDelay

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("cycle panicked",
				logger.String("cycle_id", ev.ID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
			ev.Outcome = models.OutcomeFailed
			ev.Error = fmt.Sprintf("panic: %v", r)
			report.NextDelay = o.cfg.RecoveryDelay
			o.metrics.RecordError("panic")
		}
		ev.Duration = o.now().Sub(ev.StartedAt)
		report.Event = ev
		o.finish(ctx, ev)
	}()

	delay := o.cycle(ctx, &ev)
	if delay > 0 {
		report.NextDelay = delay
	}
	return report
}

// cycle fills ev in place and returns a delay override, or zero for the
// regular cycle delay.
func (o *Orchestrator) cycle(ctx context.Context, ev *models.DecisionEvent) time.Duration {
	log := o.log.With(logger.String("cycle_id", ev.ID), logger.String("symbol", o.cfg.Symbol))

	ev.Stage = models.StageFetch
	var snap models.MarketSnapshot
	err := o.stage(models.StageFetch, func() error {
		var err error
		snap, err = o.snapshots.Snapshot(ctx)
		return err
	})
	if err != nil {
		log.Warn("snapshot fetch failed", logger.Error(err))
		o.metrics.RecordError("fetch")
		ev.Outcome = models.OutcomeFetchFailed
		ev.Error = err.Error()
		return o.cfg.RecoveryDelay
	}
	o.metrics.RecordLastPrice(o.cfg.Symbol, snap.Price)

	plan := PlanTrade(snap, o.cfg.TPMultiple, o.cfg.SLMultiple)
	ev.Plan = &plan
	log.Debug("trade planned",
		logger.String("direction", string(plan.Direction)),
		logger.Float("entry", plan.Entry),
		logger.Float("tp", plan.TakeProfit),
		logger.Float("sl", plan.StopLoss))

	ev.Stage = models.StageSimulate
	var sim models.SimulationResult
	err = o.stage(models.StageSimulate, func() error {
		var err error
		sim, err = o.sim.Run(models.SimulationRequest{
			Entry:      plan.Entry,
			Volatility: snap.Volatility,
			Drift:      snap.Bias,
			TakeProfit: plan.TakeProfit,
			StopLoss:   plan.StopLoss,
			Paths:      o.cfg.Paths,
			Steps:      o.cfg.Steps,
		})
		return err
	})
	if err != nil {
		log.Error("simulation failed", logger.Error(err))
		o.metrics.RecordError("simulate")
		ev.Outcome = models.OutcomeFailed
		ev.Error = err.Error()
		return o.cfg.RecoveryDelay
	}
	ev.Simulation = &sim
	o.metrics.RecordWinProbability(o.cfg.Symbol, sim.WinProbability)
	log.Debug("simulation done",
		logger.Float("win_probability", sim.WinProbability),
		logger.Float("ruin_probability", sim.RuinProbability),
		logger.Int("risk_score", sim.RiskScore))

	ev.Stage = models.StageGateMath
	if sim.WinProbability < o.cfg.MinWinRate {
		log.Info("math gate closed",
			logger.Float("win_probability", sim.WinProbability),
			logger.Float("threshold", o.cfg.MinWinRate))
		ev.Outcome = models.OutcomeNoTrade
		return 0
	}

	ev.Stage = models.StageJudge
	var verdict models.Verdict
	_ = o.stage(models.StageJudge, func() error {
		verdict = o.judge.Evaluate(ctx, snap, sim, judge.ContextSummary(snap, sim))
		return nil
	})
	ev.Verdict = &verdict
	o.metrics.RecordVerdict(string(verdict.Decision), verdict.Score)
	log.Debug("verdict received",
		logger.String("decision", string(verdict.Decision)),
		logger.Int("score", verdict.Score),
		logger.Strings("risk_flags", verdict.RiskFlags))

	ev.Stage = models.StageGateScore
	if verdict.Score < o.cfg.MinScore {
		log.Info("score gate closed",
			logger.String("decision", string(verdict.Decision)),
			logger.Int("score", verdict.Score),
			logger.String("reason", verdict.Reason))
		ev.Outcome = models.OutcomeNoTrade
		return 0
	}

	ev.Stage = models.StageExecute
	var rec models.TradeRecord
	err = o.stage(models.StageExecute, func() error {
		var err error
		rec, err = o.ledger.Record(ctx, models.TradeRequest{
			Symbol:     o.cfg.Symbol,
			Direction:  plan.Direction,
			Price:      plan.Entry,
			TakeProfit: plan.TakeProfit,
			StopLoss:   plan.StopLoss,
			Reason:     verdict.Reason,
			Score:      verdict.Score,
		})
		return err
	})
	if err != nil {
		log.Error("ledger append failed", logger.Error(err))
		o.metrics.RecordError("ledger")
		ev.Outcome = models.OutcomeFailed
		ev.Error = err.Error()
		return o.cfg.RecoveryDelay
	}
	ev.Trade = &rec
	ev.Outcome = models.OutcomeTraded
	log.Info("paper trade recorded",
		logger.String("action", string(rec.Action)),
		logger.Float("price", rec.Price),
		logger.Float("volume", rec.Volume),
		logger.Int("score", rec.Score))

	if o.store != nil {
		if err := o.store.Store(ctx, rec); err != nil {
			log.Warn("trade mirror failed", logger.Error(err))
			o.metrics.RecordError("trade_store")
		}
	}
	return 0
}

func (o *Orchestrator) stage(s models.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.RecordStage(string(s), time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) finish(ctx context.Context, ev models.DecisionEvent) {
	o.metrics.RecordCycle(string(ev.Outcome))
	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			o.log.Warn("decision publish failed", logger.String("cycle_id", ev.ID), logger.Error(err))
			o.metrics.RecordError("publish")
		}
	}
	if o.sink != nil {
		o.sink.Broadcast(ev)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
