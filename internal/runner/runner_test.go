package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urbanopt/internal/cache"
	"github.com/sells-group/urbanopt/internal/constraint"
	"github.com/sells-group/urbanopt/internal/evaluator"
	"github.com/sells-group/urbanopt/internal/geometry"
	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
	"github.com/sells-group/urbanopt/internal/spatial"
)

func testSnapshot(t *testing.T) *geometry.Snapshot {
	t.Helper()
	geo, err := geometry.NewSnapshot(
		[]geometry.Building{
			{ID: "b1", ParcelID: "p1", Centroid: geometry.Point{X: -100, Y: 0}, FootprintArea: 400},
			{ID: "b2", ParcelID: "p2", Centroid: geometry.Point{X: 100, Y: 0}, FootprintArea: 400},
		},
		[]geometry.Amenity{
			{ID: "a1", Position: geometry.Point{X: 0, Y: 0}, Category: "grocery", Weight: 2},
		},
		[]geometry.Parcel{
			{ID: "p1", ZoneID: "z1", Area: 1000},
			{ID: "p2", ZoneID: "z1", Area: 1000},
		},
		[]geometry.Zone{{ID: "z1", TotalArea: 2000}},
		nil,
	)
	require.NoError(t, err)
	return geo
}

func testEval(t *testing.T, geo *geometry.Snapshot, limits constraint.Limits, quant scenario.Quantization) *evaluator.Evaluator {
	t.Helper()
	ix, err := spatial.Build(geo.AmenityPoints())
	require.NoError(t, err)
	params := metrics.DefaultParams()
	checker := constraint.NewChecker(limits, geo, params)
	return evaluator.New(geo, ix, params, quant, checker, cache.New(1024), nil, nil)
}

func testSpace() *scenario.Space {
	return &scenario.Space{
		Heights: []scenario.RangeDim{
			{Name: "b1_height", Min: 6, Max: 30, Samples: 3},
			{Name: "b2_height", Min: 6, Max: 30, Samples: 3},
		},
		Greens: []scenario.RangeDim{
			{Name: "z1_green", Min: 0, Max: 0.4, Samples: 3},
		},
		LandUses: []scenario.CategoryDim{
			{Name: "p1_use", Categories: []scenario.LandUse{scenario.UseResidential, scenario.UseCommercial}},
			{Name: "p2_use", Categories: []scenario.LandUse{scenario.UseMixed, scenario.UseGreen}},
		},
	}
}

func frontierFingerprints(r *Result) []scenario.Fingerprint {
	out := make([]scenario.Fingerprint, len(r.Frontier))
	for i, s := range r.Frontier {
		out[i] = s.Fingerprint
	}
	return out
}

func TestRunCoversWholeSpace(t *testing.T) {
	geo := testSnapshot(t)
	eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())

	res, err := Run(context.Background(), testSpace(), eval, Options{Workers: 2})
	require.NoError(t, err)

	// 3*3*3*2*2 scenarios, all feasible without limits.
	assert.Equal(t, int64(108), res.Stats.Enumerated)
	assert.Equal(t, int64(108), res.Stats.Feasible)
	assert.Zero(t, res.Stats.Pruned)
	assert.Zero(t, res.Stats.Skipped)
	assert.NotEmpty(t, res.Frontier)
	assert.Equal(t, len(res.Frontier), res.Stats.FrontierSize)
	assert.NotEmpty(t, res.Stats.RunID)
}

func TestRunDeterministicAcrossWorkerCounts(t *testing.T) {
	geo := testSnapshot(t)
	space := testSpace()

	var baseline []scenario.Fingerprint
	for _, workers := range []int{1, 2, 8} {
		eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())
		res, err := Run(context.Background(), space, eval, Options{Workers: workers, ChunkSize: 4})
		require.NoError(t, err)

		fps := frontierFingerprints(res)
		if baseline == nil {
			baseline = fps
			continue
		}
		assert.Equal(t, baseline, fps, "workers=%d", workers)
	}
}

func TestRunPrunesInfeasible(t *testing.T) {
	geo := testSnapshot(t)
	limits := constraint.Limits{MinGreenRatio: 0.15}
	eval := testEval(t, geo, limits, scenario.DefaultQuantization())

	res, err := Run(context.Background(), testSpace(), eval, Options{Workers: 4, KeepScored: true})
	require.NoError(t, err)

	// The green dimension samples 0, 0.2, 0.4; only the 0 allocation falls
	// below the 0.15 minimum, so exactly one third of the space is pruned.
	assert.Equal(t, int64(36), res.Stats.Pruned)
	assert.Equal(t, int64(72), res.Stats.Feasible)
	assert.Equal(t, int64(36), res.Stats.PruneReasons[constraint.ReasonGreenBelowMin])

	for _, s := range res.Scored {
		assert.True(t, s.Outcome.Feasible)
	}
	for _, s := range res.Frontier {
		assert.True(t, s.Outcome.Feasible)
	}
}

func TestRunPruningMatchesUnconstrainedSubset(t *testing.T) {
	geo := testSnapshot(t)
	space := testSpace()

	free := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())
	freeRes, err := Run(context.Background(), space, free, Options{Workers: 2, KeepScored: true})
	require.NoError(t, err)

	limited := testEval(t, geo, constraint.Limits{MinGreenRatio: 0.15}, scenario.DefaultQuantization())
	limRes, err := Run(context.Background(), space, limited, Options{Workers: 2, KeepScored: true})
	require.NoError(t, err)

	// Every scenario surviving the constrained run scores identically to
	// its unconstrained counterpart.
	byFP := make(map[scenario.Fingerprint]*evaluator.ScoredScenario)
	for _, s := range freeRes.Scored {
		byFP[s.Fingerprint] = s
	}
	for _, s := range limRes.Scored {
		full, ok := byFP[s.Fingerprint]
		require.True(t, ok)
		assert.Equal(t, full.Result, s.Result)
	}
}

func TestRunMemoizesCollapsedFingerprints(t *testing.T) {
	geo := testSnapshot(t)

	// Height samples 10, 10.02, 10.04 all round to the same 0.1 m step, so
	// the nine height combinations collapse to one fingerprint.
	space := &scenario.Space{
		Heights: []scenario.RangeDim{
			{Name: "b1_height", Min: 10, Max: 10.04, Samples: 3},
			{Name: "b2_height", Min: 10, Max: 10.04, Samples: 3},
		},
		Greens: []scenario.RangeDim{
			{Name: "z1_green", Min: 0.2, Max: 0.2, Samples: 1},
		},
		LandUses: []scenario.CategoryDim{
			{Name: "p1_use", Categories: []scenario.LandUse{scenario.UseResidential}},
			{Name: "p2_use", Categories: []scenario.LandUse{scenario.UseCommercial}},
		},
	}

	eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())
	res, err := Run(context.Background(), space, eval, Options{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(9), res.Stats.Enumerated)
	assert.Equal(t, int64(8), res.Stats.Cache.Hits)
	assert.Equal(t, int64(1), res.Stats.Cache.Misses)

	// All nine scenarios share one metric vector; identical vectors never
	// dominate each other, so all of them survive the reduction.
	assert.Len(t, res.Frontier, 9)
}

func TestRunInvalidSpaceFailsFast(t *testing.T) {
	geo := testSnapshot(t)
	eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())

	bad := testSpace()
	bad.Heights[0].Min = 50 // inverted range

	_, err := Run(context.Background(), bad, eval, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, scenario.ErrInvalidParameterRange)
}

func TestRunSkipsDegenerateGeometry(t *testing.T) {
	// Zones exist (constraints pass) but no buildings, so every metric
	// computation fails; without AbortOnFailure each failure is a skip.
	geo, err := geometry.NewSnapshot(nil, nil, nil,
		[]geometry.Zone{{ID: "z1", TotalArea: 1000}}, nil)
	require.NoError(t, err)
	eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())

	space := &scenario.Space{
		Greens: []scenario.RangeDim{{Name: "z1_green", Min: 0, Max: 0.4, Samples: 3}},
	}

	res, err := Run(context.Background(), space, eval, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Stats.Skipped)
	assert.Empty(t, res.Frontier)

	_, err = Run(context.Background(), space, eval, Options{Workers: 2, AbortOnFailure: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, metrics.ErrDegenerateGeometry)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	geo := testSnapshot(t)
	eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation is a stop signal, not a failure: the run still returns
	// a result, here over zero scored scenarios.
	res, err := Run(ctx, testSpace(), eval, Options{Workers: 2, ChunkSize: 1})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Stats.Cancelled)
	assert.Zero(t, res.Stats.Enumerated)
	assert.Empty(t, res.Frontier)
}

func TestRunCancelledMidRunKeepsPartialResults(t *testing.T) {
	geo := testSnapshot(t)
	eval := testEval(t, geo, constraint.DefaultLimits(), scenario.DefaultQuantization())

	space := &scenario.Space{
		Heights: []scenario.RangeDim{
			{Name: "b1_height", Min: 6, Max: 30, Samples: 8},
			{Name: "b2_height", Min: 6, Max: 30, Samples: 8},
		},
		Greens: []scenario.RangeDim{
			{Name: "z1_green", Min: 0, Max: 0.4, Samples: 8},
		},
		LandUses: []scenario.CategoryDim{
			{Name: "p1_use", Categories: scenario.KnownUses},
			{Name: "p2_use", Categories: scenario.KnownUses},
		},
	}
	total, err := space.Count()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(time.Millisecond, cancel)
	defer timer.Stop()

	res, err := Run(ctx, space, eval, Options{Workers: 2, ChunkSize: 8, KeepScored: true})
	require.NoError(t, err)
	require.NotNil(t, res)

	// Whatever was scored before the cancel landed is kept, and every kept
	// scenario is fully scored.
	assert.LessOrEqual(t, res.Stats.Enumerated, total)
	assert.Equal(t, res.Stats.Feasible, int64(len(res.Scored)))
	for _, s := range res.Scored {
		require.True(t, s.Outcome.Feasible)
		for _, name := range metrics.Names {
			assert.Contains(t, s.Result, name)
		}
	}
	assert.LessOrEqual(t, len(res.Frontier), len(res.Scored))
}
