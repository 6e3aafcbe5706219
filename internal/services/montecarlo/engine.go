// Package montecarlo estimates take-profit/stop-loss barrier probabilities by
// simulating multiplicative random walks.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"Aegis/internal/domain/models"
	domsvc "Aegis/internal/domain/service"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultPaths = 1000
	DefaultSteps = 60
)

// ErrInvalidSimulationRequest is returned before any random draw when the
// request cannot describe a trade.
var ErrInvalidSimulationRequest = errors.New("invalid simulation request")

// never is the touch index of a barrier that is not reached within the horizon.
const never = math.MaxInt

// Engine runs barrier simulations. It holds no state between calls; each run
// draws from a fresh source.
type Engine struct {
	paths  int
	steps  int
	source func() rand.Source
}

type Option func(*Engine)

// WithPaths sets the default number of paths used when a request leaves it zero.
func WithPaths(n int) Option {
	return func(e *Engine) { e.paths = n }
}

// WithSteps sets the default horizon used when a request leaves it zero.
func WithSteps(n int) Option {
	return func(e *Engine) { e.steps = n }
}

// WithSeed makes every run reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.source = func() rand.Source { return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15) }
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		paths: DefaultPaths,
		steps: DefaultSteps,
		source: func() rand.Source {
			return rand.NewPCG(rand.Uint64(), rand.Uint64())
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run simulates req.Paths independent paths over req.Steps steps and reports
// which barrier each path touched first.
func (e *Engine) Run(req models.SimulationRequest) (models.SimulationResult, error) {
	if req.Paths == 0 {
		req.Paths = e.paths
	}
	if req.Steps == 0 {
		req.Steps = e.steps
	}
	if err := Validate(req); err != nil {
		return models.SimulationResult{}, err
	}

	start := time.Now()
	prices := simulate(req.Entry, req.Volatility, req.Drift, req.Paths, req.Steps, e.source())
	tpIdx, slIdx := firstTouches(prices, req.TakeProfit, req.StopLoss, req.IsLong())
	wins, ruins := classify(tpIdx, slIdx)

	n := float64(req.Paths)
	winRate := float64(wins) / n * 100
	ruinRate := float64(ruins) / n * 100
	winPct, ruinPct := percentages(wins, ruins, req.Paths)

	return models.SimulationResult{
		WinProbability:  winPct,
		RuinProbability: ruinPct,
		RiskScore:       riskScore(winRate, ruinRate),
		ExecutionTime:   time.Since(start),
		Metadata: models.SimulationMetadata{
			Simulations:  req.Paths,
			HorizonSteps: req.Steps,
		},
	}, nil
}

// Paths returns a small fan of simulated price paths and their per-step mean.
func (e *Engine) Paths(entry, volatility, drift float64, paths, steps int) (models.PathFan, error) {
	if entry <= 0 || math.IsNaN(entry) || math.IsInf(entry, 0) {
		return models.PathFan{}, fmt.Errorf("%w: entry price must be positive, got %v", ErrInvalidSimulationRequest, entry)
	}
	if volatility < 0 || math.IsNaN(volatility) {
		return models.PathFan{}, fmt.Errorf("%w: volatility must be non-negative, got %v", ErrInvalidSimulationRequest, volatility)
	}
	if paths <= 0 || steps <= 0 {
		return models.PathFan{}, fmt.Errorf("%w: paths and steps must be positive", ErrInvalidSimulationRequest)
	}

	prices := simulate(entry, volatility, drift, paths, steps, e.source())
	fan := models.PathFan{
		Paths:    make([][]float64, steps),
		MeanPath: make([]float64, steps),
	}
	for t := 0; t < steps; t++ {
		row := prices.RawRowView(t)
		fan.Paths[t] = append([]float64(nil), row...)
		fan.MeanPath[t] = floats.Sum(row) / float64(paths)
	}
	return fan, nil
}

// Validate checks the barrier ordering and numeric sanity of req.
func Validate(req models.SimulationRequest) error {
	switch {
	case req.Entry <= 0 || math.IsNaN(req.Entry) || math.IsInf(req.Entry, 0):
		return fmt.Errorf("%w: entry price must be positive, got %v", ErrInvalidSimulationRequest, req.Entry)
	case req.Volatility < 0 || math.IsNaN(req.Volatility) || math.IsInf(req.Volatility, 0):
		return fmt.Errorf("%w: volatility must be non-negative, got %v", ErrInvalidSimulationRequest, req.Volatility)
	case math.IsNaN(req.Drift) || math.IsInf(req.Drift, 0):
		return fmt.Errorf("%w: drift must be finite", ErrInvalidSimulationRequest)
	case req.Paths <= 0:
		return fmt.Errorf("%w: paths must be positive, got %d", ErrInvalidSimulationRequest, req.Paths)
	case req.Steps <= 0:
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidSimulationRequest, req.Steps)
	case req.TakeProfit == req.Entry || math.IsNaN(req.TakeProfit):
		return fmt.Errorf("%w: take-profit %v must differ from entry", ErrInvalidSimulationRequest, req.TakeProfit)
	case req.IsLong() && !(req.StopLoss < req.Entry):
		return fmt.Errorf("%w: long stop-loss %v must be below entry %v", ErrInvalidSimulationRequest, req.StopLoss, req.Entry)
	case !req.IsLong() && !(req.StopLoss > req.Entry):
		return fmt.Errorf("%w: short stop-loss %v must be above entry %v", ErrInvalidSimulationRequest, req.StopLoss, req.Entry)
	}
	return nil
}

// simulate draws a steps x paths matrix of returns and compounds it down
// the time axis. Row t holds every path's price after step t+1.
func simulate(entry, volatility, drift float64, paths, steps int, src rand.Source) *mat.Dense {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	raw := make([]float64, steps*paths)
	for i := range raw {
		raw[i] = norm.Rand()
	}
	// 1 + r where r ~ N(drift, volatility)
	floats.Scale(volatility, raw)
	floats.AddConst(1+drift, raw)

	prices := mat.NewDense(steps, paths, raw)
	floats.Scale(entry, prices.RawRowView(0))
	for t := 1; t < steps; t++ {
		floats.Mul(prices.RawRowView(t), prices.RawRowView(t-1))
	}
	return prices
}

// firstTouches returns, per path, the first step at which each barrier was
// reached, or never.
func firstTouches(prices *mat.Dense, tp, sl float64, long bool) (tpIdx, slIdx []int) {
	steps, paths := prices.Dims()
	tpIdx = make([]int, paths)
	slIdx = make([]int, paths)
	for j := range tpIdx {
		tpIdx[j] = never
		slIdx[j] = never
	}

	for t := 0; t < steps; t++ {
		for j, p := range prices.RawRowView(t) {
			hitTP, hitSL := p >= tp, p <= sl
			if !long {
				hitTP, hitSL = p <= tp, p >= sl
			}
			if hitTP && tpIdx[j] == never {
				tpIdx[j] = t
			}
			if hitSL && slIdx[j] == never {
				slIdx[j] = t
			}
		}
	}
	return tpIdx, slIdx
}

// classify counts strict first touches. A path whose barriers were touched
// on the same step, or not at all, is a time exit.
func classify(tpIdx, slIdx []int) (wins, ruins int) {
	for j := range tpIdx {
		switch {
		case tpIdx[j] < slIdx[j]:
			wins++
		case slIdx[j] < tpIdx[j]:
			ruins++
		}
	}
	return wins, ruins
}

// riskScore is a coarse 0-10 signal: ruin is penalised in three bands and
// a sub-50% win rate zeroes the score.
func riskScore(winRate, ruinRate float64) int {
	score := 10
	if ruinRate > 10 {
		score -= 2
	}
	if ruinRate > 30 {
		score -= 3
	}
	if ruinRate > 50 {
		score -= 5
	}
	if winRate < 50 {
		score = 0
	}
	return score
}

// percentages converts path counts to two-decimal rates whose sum never
// exceeds 100. Halves round to even, and win absorbs any residual float
// error left after rounding.
func percentages(wins, ruins, paths int) (win, ruin float64) {
	n := float64(paths)
	win = round2(float64(wins) / n * 100)
	ruin = round2(float64(ruins) / n * 100)
	if win+ruin > 100 {
		win = round2(100 - ruin)
	}
	return win, ruin
}

func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

var _ domsvc.Simulator = (*Engine)(nil)
