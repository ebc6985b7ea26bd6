package pareto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urbanopt/internal/constraint"
	"github.com/sells-group/urbanopt/internal/evaluator"
	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
)

func scored(fp uint64, objective float64, result metrics.Result) *evaluator.ScoredScenario {
	return &evaluator.ScoredScenario{
		Fingerprint: scenario.Fingerprint(fp),
		Result:      result,
		Objective:   objective,
		Outcome:     constraint.Outcome{Feasible: true},
	}
}

func TestDominates(t *testing.T) {
	dirs := metrics.DefaultDirections()

	better := metrics.Result{metrics.GreenSpace: 0.5, metrics.Energy: 800}
	worse := metrics.Result{metrics.GreenSpace: 0.3, metrics.Energy: 1000}
	tradeoff := metrics.Result{metrics.GreenSpace: 0.6, metrics.Energy: 1200}

	assert.True(t, Dominates(better, worse, dirs))
	assert.False(t, Dominates(worse, better, dirs))

	// Trading green space against energy dominates in neither direction.
	assert.False(t, Dominates(better, tradeoff, dirs))
	assert.False(t, Dominates(tradeoff, better, dirs))

	// Identical vectors never dominate.
	assert.False(t, Dominates(better, better, dirs))
}

func TestDominatesMinimizeFlips(t *testing.T) {
	dirs := map[string]metrics.Direction{metrics.Energy: metrics.Minimize}
	lo := metrics.Result{metrics.Energy: 100}
	hi := metrics.Result{metrics.Energy: 200}
	assert.True(t, Dominates(lo, hi, dirs))
	assert.False(t, Dominates(hi, lo, dirs))
}

func TestFrontierDropsDominated(t *testing.T) {
	pool := []*evaluator.ScoredScenario{
		scored(1, 10, metrics.Result{metrics.GreenSpace: 0.5, metrics.Energy: 800}),
		scored(2, 5, metrics.Result{metrics.GreenSpace: 0.3, metrics.Energy: 1000}),
		scored(3, 8, metrics.Result{metrics.GreenSpace: 0.6, metrics.Energy: 1200}),
	}

	front := Frontier(pool, nil)
	require.Len(t, front, 2)
	assert.Equal(t, scenario.Fingerprint(1), front[0].Fingerprint)
	assert.Equal(t, scenario.Fingerprint(3), front[1].Fingerprint)
}

func TestFrontierKeepsTies(t *testing.T) {
	// Two scenarios with identical metric vectors both survive.
	tie := metrics.Result{metrics.GreenSpace: 0.5, metrics.Energy: 800}
	pool := []*evaluator.ScoredScenario{
		scored(2, 10, tie),
		scored(1, 10, tie),
	}

	front := Frontier(pool, nil)
	require.Len(t, front, 2)
	// Equal objectives order by fingerprint.
	assert.Equal(t, scenario.Fingerprint(1), front[0].Fingerprint)
	assert.Equal(t, scenario.Fingerprint(2), front[1].Fingerprint)
}

func TestFrontierOrderIndependentOfInput(t *testing.T) {
	a := scored(1, 10, metrics.Result{metrics.GreenSpace: 0.5, metrics.Energy: 800})
	b := scored(2, 8, metrics.Result{metrics.GreenSpace: 0.6, metrics.Energy: 1200})
	c := scored(3, 5, metrics.Result{metrics.GreenSpace: 0.3, metrics.Energy: 1000})

	forward := Frontier([]*evaluator.ScoredScenario{a, b, c}, nil)
	reverse := Frontier([]*evaluator.ScoredScenario{c, b, a}, nil)
	assert.Equal(t, forward, reverse)
}

func TestFrontierSkipsInfeasible(t *testing.T) {
	dominant := scored(1, 10, metrics.Result{metrics.GreenSpace: 0.9, metrics.Energy: 100})
	dominant.Outcome = constraint.Outcome{Feasible: false, Reason: constraint.ReasonCostAboveBudget}
	dominant.Result = nil

	pool := []*evaluator.ScoredScenario{
		dominant,
		scored(2, 5, metrics.Result{metrics.GreenSpace: 0.3, metrics.Energy: 1000}),
	}

	front := Frontier(pool, nil)
	require.Len(t, front, 1)
	assert.Equal(t, scenario.Fingerprint(2), front[0].Fingerprint)
}

func TestFrontierEmptyPool(t *testing.T) {
	assert.Nil(t, Frontier(nil, nil))
}
