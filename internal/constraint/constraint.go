// Package constraint decides scenario feasibility before the evaluator
// spends time on metrics. Hard constraints prune; soft constraints only add
// a penalty to the weighted objective during scoring.
package constraint

import (
	"math"

	"github.com/sells-group/urbanopt/internal/geometry"
	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
)

// Pruning reason codes, recorded in run statistics.
const (
	ReasonGreenBelowMin   = "green_below_min"
	ReasonDensityAboveMax = "density_above_max"
	ReasonCostAboveBudget = "cost_above_budget"
)

// Limits configures the hard thresholds and soft targets. A zero or negative
// value disables that check.
type Limits struct {
	// Hard: prune when violated.
	MinGreenRatio     float64 `json:"min_green_ratio"`
	MaxFloorAreaRatio float64 `json:"max_floor_area_ratio"`
	MaxBudget         float64 `json:"max_budget"`

	// Soft: penalize, never prune.
	SoftEnergyTarget float64 `json:"soft_energy_target"`
	SoftEnergyWeight float64 `json:"soft_energy_weight"`
}

// DefaultLimits returns a permissive baseline: no hard limits, no penalty.
func DefaultLimits() Limits {
	return Limits{}
}

// Outcome is the feasibility verdict for one scenario. Penalty is filled in
// during scoring, after the metrics are known.
type Outcome struct {
	Feasible bool    `json:"feasible"`
	Reason   string  `json:"reason,omitempty"`
	Penalty  float64 `json:"penalty"`
}

// Checker evaluates feasibility predicates against a frozen snapshot.
type Checker struct {
	limits Limits
	geo    *geometry.Snapshot
	params metrics.Params
}

// NewChecker creates a Checker bound to one run's geometry and constants.
func NewChecker(limits Limits, geo *geometry.Snapshot, params metrics.Params) *Checker {
	return &Checker{limits: limits, geo: geo, params: params}
}

// Check runs the hard constraints, cheapest first: the green-ratio check is
// arithmetic over the decision vector and zone areas, density needs derived
// floor areas, and the budget check prices the whole scenario. The first
// violated constraint prunes with its reason code.
func (c *Checker) Check(s *scenario.Scenario) Outcome {
	if c.limits.MinGreenRatio > 0 {
		ratio, err := metrics.GreenSpaceRatio(s, c.geo)
		if err == nil && ratio < c.limits.MinGreenRatio {
			return Outcome{Feasible: false, Reason: ReasonGreenBelowMin}
		}
	}

	if c.limits.MaxFloorAreaRatio > 0 {
		if metrics.FloorAreaRatio(s, c.geo, c.params) > c.limits.MaxFloorAreaRatio {
			return Outcome{Feasible: false, Reason: ReasonDensityAboveMax}
		}
	}

	if c.limits.MaxBudget > 0 {
		cost, err := metrics.InfrastructureCost(s, c.geo, c.params)
		if err == nil && cost > c.limits.MaxBudget {
			return Outcome{Feasible: false, Reason: ReasonCostAboveBudget}
		}
	}

	return Outcome{Feasible: true}
}

// SoftPenalty returns the non-negative penalty the scored objective pays for
// soft-constraint violations, given the computed metrics.
func (c *Checker) SoftPenalty(result metrics.Result) float64 {
	var penalty float64
	if c.limits.SoftEnergyTarget > 0 && c.limits.SoftEnergyWeight > 0 {
		if over := result[metrics.Energy] - c.limits.SoftEnergyTarget; over > 0 {
			penalty += over * c.limits.SoftEnergyWeight
		}
	}
	return math.Max(0, penalty)
}
