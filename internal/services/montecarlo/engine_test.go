package montecarlo

import (
	"testing"

	"Aegis/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func longRequest() models.SimulationRequest {
	return models.SimulationRequest{
		Entry:      65000,
		Volatility: 500.0 / 65000,
		Drift:      0.0001,
		TakeProfit: 66000,
		StopLoss:   64250,
		Paths:      1000,
		Steps:      60,
	}
}

func TestRunProbabilitiesAreBounded(t *testing.T) {
	e := New(WithSeed(42))

	tests := map[string]models.SimulationRequest{
		"long":        longRequest(),
		"short":       {Entry: 65000, Volatility: 0.008, Drift: -0.0002, TakeProfit: 64000, StopLoss: 65750, Paths: 800, Steps: 60},
		"wide":        {Entry: 100, Volatility: 0.05, Drift: 0, TakeProfit: 200, StopLoss: 50, Paths: 500, Steps: 60},
		"tight":       {Entry: 100, Volatility: 0.02, Drift: 0, TakeProfit: 100.1, StopLoss: 99.9, Paths: 500, Steps: 10},
		"engine size": {Entry: 100, Volatility: 0.01, Drift: 0.001, TakeProfit: 102, StopLoss: 98},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := e.Run(req)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.WinProbability, 0.0)
			assert.LessOrEqual(t, res.WinProbability, 100.0)
			assert.GreaterOrEqual(t, res.RuinProbability, 0.0)
			assert.LessOrEqual(t, res.RuinProbability, 100.0)
			assert.LessOrEqual(t, res.WinProbability+res.RuinProbability, 100.0+1e-9)
			assert.GreaterOrEqual(t, res.RiskScore, 0)
			assert.LessOrEqual(t, res.RiskScore, 10)
		})
	}
}

func TestRunUsesEngineDefaults(t *testing.T) {
	e := New(WithSeed(1), WithPaths(250), WithSteps(30))
	req := longRequest()
	req.Paths, req.Steps = 0, 0

	res, err := e.Run(req)
	require.NoError(t, err)
	assert.Equal(t, 250, res.Metadata.Simulations)
	assert.Equal(t, 30, res.Metadata.HorizonSteps)
}

func TestRunIsDeterministicWithSeed(t *testing.T) {
	req := longRequest()

	a, err := New(WithSeed(7)).Run(req)
	require.NoError(t, err)
	b, err := New(WithSeed(7)).Run(req)
	require.NoError(t, err)
	c, err := New(WithSeed(7)).Run(req)
	require.NoError(t, err)

	for _, r := range []models.SimulationResult{b, c} {
		assert.Equal(t, a.WinProbability, r.WinProbability)
		assert.Equal(t, a.RuinProbability, r.RuinProbability)
		assert.Equal(t, a.RiskScore, r.RiskScore)
		assert.Equal(t, a.Metadata, r.Metadata)
	}
}

func TestRunDegenerateZeroVolatility(t *testing.T) {
	e := New(WithSeed(3))

	tests := map[string]struct {
		req      models.SimulationRequest
		wantWin  float64
		wantRuin float64
	}{
		"long drifting to tp": {
			req:     models.SimulationRequest{Entry: 100, Volatility: 0, Drift: 0.01, TakeProfit: 105, StopLoss: 95, Paths: 200, Steps: 60},
			wantWin: 100,
		},
		"long drifting to sl": {
			req:      models.SimulationRequest{Entry: 100, Volatility: 0, Drift: -0.01, TakeProfit: 105, StopLoss: 95, Paths: 200, Steps: 60},
			wantRuin: 100,
		},
		"short drifting to tp": {
			req:     models.SimulationRequest{Entry: 100, Volatility: 0, Drift: -0.01, TakeProfit: 95, StopLoss: 105, Paths: 200, Steps: 60},
			wantWin: 100,
		},
		"short drifting to sl": {
			req:      models.SimulationRequest{Entry: 100, Volatility: 0, Drift: 0.01, TakeProfit: 95, StopLoss: 105, Paths: 200, Steps: 60},
			wantRuin: 100,
		},
		"flat never touches": {
			req: models.SimulationRequest{Entry: 100, Volatility: 0, Drift: 0, TakeProfit: 105, StopLoss: 95, Paths: 200, Steps: 60},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := e.Run(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWin, res.WinProbability)
			assert.Equal(t, tt.wantRuin, res.RuinProbability)
		})
	}
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	e := New(WithSeed(1))

	tests := map[string]models.SimulationRequest{
		"negative volatility": {Entry: 100, Volatility: -0.01, TakeProfit: 105, StopLoss: 95, Paths: 10, Steps: 10},
		"zero entry":          {Entry: 0, Volatility: 0.01, TakeProfit: 105, StopLoss: 95, Paths: 10, Steps: 10},
		"long sl above":       {Entry: 100, Volatility: 0.01, TakeProfit: 105, StopLoss: 101, Paths: 10, Steps: 10},
		"short sl below":      {Entry: 100, Volatility: 0.01, TakeProfit: 95, StopLoss: 99, Paths: 10, Steps: 10},
		"tp at entry":         {Entry: 100, Volatility: 0.01, TakeProfit: 100, StopLoss: 95, Paths: 10, Steps: 10},
		"negative paths":      {Entry: 100, Volatility: 0.01, TakeProfit: 105, StopLoss: 95, Paths: -1, Steps: 10},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := e.Run(req)
			assert.ErrorIs(t, err, ErrInvalidSimulationRequest)
		})
	}
}

func TestPercentagesNeverExceedHundred(t *testing.T) {
	tests := map[string]struct {
		wins, ruins, paths int
	}{
		"complementary halves":    {97, 703, 800},
		"seeded short run counts": {401, 399, 800},
		"all resolved":            {1, 7, 8},
		"odd path count":          {333, 334, 667},
		"nothing resolved":        {0, 0, 500},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			win, ruin := percentages(tc.wins, tc.ruins, tc.paths)
			assert.LessOrEqual(t, win+ruin, 100.0+1e-9)
			assert.InDelta(t, float64(tc.wins)/float64(tc.paths)*100, win, 0.01)
			assert.InDelta(t, float64(tc.ruins)/float64(tc.paths)*100, ruin, 0.01)
		})
	}
}

func TestRound2HalvesToEven(t *testing.T) {
	assert.Equal(t, 0.12, round2(0.125))
	assert.Equal(t, 0.38, round2(0.375))
	assert.Equal(t, 72.5, round2(72.5))
}

func TestClassifySameStepTouchIsTimeExit(t *testing.T) {
	tp := []int{3, 2, never, 5, never}
	sl := []int{3, 4, 1, never, never}

	wins, ruins := classify(tp, sl)
	assert.Equal(t, 2, wins)
	assert.Equal(t, 1, ruins)
}

func TestFirstTouches(t *testing.T) {
	// three steps, three paths; columns are paths
	prices := mat.NewDense(3, 3, []float64{
		101, 99, 100,
		106, 94, 100,
		90, 110, 100,
	})

	tp, sl := firstTouches(prices, 105, 95, true)
	assert.Equal(t, []int{1, 2, never}, tp)
	assert.Equal(t, []int{2, 1, never}, sl)

	tp, sl = firstTouches(prices, 95, 105, false)
	assert.Equal(t, []int{2, 1, never}, tp)
	assert.Equal(t, []int{1, 2, never}, sl)
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		win, ruin float64
		want      int
	}{
		{win: 90, ruin: 5, want: 10},
		{win: 80, ruin: 15, want: 8},
		{win: 60, ruin: 35, want: 5},
		{win: 45, ruin: 55, want: 0},
		{win: 49.9, ruin: 0, want: 0},
		{win: 50, ruin: 10, want: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskScore(tt.win, tt.ruin), "win=%v ruin=%v", tt.win, tt.ruin)
	}
}

func TestPathsFan(t *testing.T) {
	e := New(WithSeed(9))
	fan, err := e.Paths(100, 0, 0.01, 4, 5)
	require.NoError(t, err)

	require.Len(t, fan.Paths, 5)
	require.Len(t, fan.MeanPath, 5)
	for _, row := range fan.Paths {
		assert.Len(t, row, 4)
	}
	assert.InDelta(t, 101.0, fan.MeanPath[0], 1e-9)
	assert.InDelta(t, 100*1.01*1.01*1.01*1.01*1.01, fan.MeanPath[4], 1e-9)

	_, err = e.Paths(-1, 0.01, 0, 4, 5)
	assert.ErrorIs(t, err, ErrInvalidSimulationRequest)
}

func BenchmarkRun(b *testing.B) {
	e := New()
	req := longRequest()
	for i := 0; i < b.N; i++ {
		_, _ = e.Run(req)
	}
}
