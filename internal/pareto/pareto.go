// Package pareto extracts the non-dominated frontier from a pool of scored
// scenarios under per-metric objective directions.
package pareto

import (
	"sort"

	"github.com/sells-group/urbanopt/internal/evaluator"
	"github.com/sells-group/urbanopt/internal/metrics"
)

// Dominates reports whether a dominates b: a is at least as good on every
// metric and strictly better on at least one, with "better" read from the
// direction map. Metrics missing from either result are skipped; scenarios
// with identical metric vectors do not dominate each other.
func Dominates(a, b metrics.Result, directions map[string]metrics.Direction) bool {
	strict := false
	for name, av := range a {
		bv, ok := b[name]
		if !ok {
			continue
		}
		if directions[name] == metrics.Minimize {
			av, bv = -av, -bv
		}
		if av < bv {
			return false
		}
		if av > bv {
			strict = true
		}
	}
	return strict
}

// Frontier returns the non-dominated subset of the scored pool. Infeasible
// scenarios never enter the frontier. The result is ordered by weighted
// objective descending, with fingerprint as the deterministic tie-break, and
// is independent of the input order. O(n²) pairwise comparison; candidate
// pools here are run outputs, not the full parameter space.
func Frontier(pool []*evaluator.ScoredScenario, directions map[string]metrics.Direction) []*evaluator.ScoredScenario {
	if directions == nil {
		directions = metrics.DefaultDirections()
	}

	candidates := make([]*evaluator.ScoredScenario, 0, len(pool))
	for _, s := range pool {
		if s != nil && s.Outcome.Feasible && s.Result != nil {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	nd := make([]bool, len(candidates))
	for i := range nd {
		nd[i] = true
	}
	for i := range candidates {
		if !nd[i] {
			continue
		}
		for j := range candidates {
			if i == j {
				continue
			}
			if Dominates(candidates[j].Result, candidates[i].Result, directions) {
				nd[i] = false
				break
			}
		}
	}

	out := make([]*evaluator.ScoredScenario, 0, len(candidates))
	for i, keep := range nd {
		if keep {
			out = append(out, candidates[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Objective != out[j].Objective {
			return out[i].Objective > out[j].Objective
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}
