// Package evaluator scores scenarios: it memoizes metric computation behind
// the fingerprint cache and folds the per-metric scores into one weighted
// objective. Evaluation is deterministic, so a cache hit and a fresh compute
// are interchangeable.
package evaluator

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/urbanopt/internal/cache"
	"github.com/sells-group/urbanopt/internal/constraint"
	"github.com/sells-group/urbanopt/internal/geometry"
	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
	"github.com/sells-group/urbanopt/internal/spatial"
)

// ScoredScenario is the full evaluation record for one scenario. Infeasible
// scenarios carry the pruning outcome and no metrics.
type ScoredScenario struct {
	Scenario    *scenario.Scenario   `json:"scenario"`
	Fingerprint scenario.Fingerprint `json:"fingerprint"`
	Result      metrics.Result       `json:"result,omitempty"`
	Objective   float64              `json:"objective"`
	Outcome     constraint.Outcome   `json:"outcome"`
}

// DefaultWeights gives every metric unit weight.
func DefaultWeights() map[string]float64 {
	w := make(map[string]float64, len(metrics.Names))
	for _, name := range metrics.Names {
		w[name] = 1
	}
	return w
}

// Evaluator binds one run's frozen inputs: geometry, spatial index, metric
// constants, constraint limits, weights, and the memoization cache.
type Evaluator struct {
	geo        *geometry.Snapshot
	ix         *spatial.Index
	params     metrics.Params
	quant      scenario.Quantization
	checker    *constraint.Checker
	cache      *cache.Cache
	weights    map[string]float64
	directions map[string]metrics.Direction
}

// New constructs an Evaluator. Nil weights or directions fall back to the
// defaults; a nil cache gets a default-capacity one.
func New(
	geo *geometry.Snapshot,
	ix *spatial.Index,
	params metrics.Params,
	quant scenario.Quantization,
	checker *constraint.Checker,
	c *cache.Cache,
	weights map[string]float64,
	directions map[string]metrics.Direction,
) *Evaluator {
	if c == nil {
		c = cache.New(cache.DefaultCapacity)
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	if directions == nil {
		directions = metrics.DefaultDirections()
	}
	return &Evaluator{
		geo:        geo,
		ix:         ix,
		params:     params,
		quant:      quant,
		checker:    checker,
		cache:      c,
		weights:    weights,
		directions: directions,
	}
}

// Cache exposes the memoization cache for statistics and snapshotting.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// Directions exposes the per-metric objective directions in effect.
func (e *Evaluator) Directions() map[string]metrics.Direction {
	return e.directions
}

// Evaluate checks feasibility and, for feasible scenarios, computes (or
// recalls) the metrics and the weighted objective. Infeasible scenarios
// return with Outcome set and nil Result; that is not an error.
func (e *Evaluator) Evaluate(s *scenario.Scenario) (*ScoredScenario, error) {
	fp := s.Fingerprint(e.quant)
	scored := &ScoredScenario{Scenario: s, Fingerprint: fp}

	scored.Outcome = e.checker.Check(s)
	if !scored.Outcome.Feasible {
		return scored, nil
	}

	result, ok := e.cache.Get(fp)
	if !ok {
		var err error
		result, err = metrics.Compute(s, e.geo, e.ix, e.params)
		if err != nil {
			return nil, eris.Wrapf(err, "evaluator: compute scenario %s", fp)
		}
		e.cache.Put(fp, result)
	}

	scored.Result = result
	scored.Outcome.Penalty = e.checker.SoftPenalty(result)
	scored.Objective = e.objective(result) - scored.Outcome.Penalty
	return scored, nil
}

// objective folds the metric vector into one scalar: maximized metrics add
// their weighted value, minimized metrics subtract it.
func (e *Evaluator) objective(result metrics.Result) float64 {
	var obj float64
	for name, value := range result {
		w, ok := e.weights[name]
		if !ok {
			w = 1
		}
		if e.directions[name] == metrics.Minimize {
			obj -= w * value
		} else {
			obj += w * value
		}
	}
	return obj
}
