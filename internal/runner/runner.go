// Package runner drives a full optimization run: it fans the enumerated
// parameter space out over a bounded worker pool, evaluates every scenario,
// and reduces the survivors to a Pareto frontier plus run statistics.
package runner

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/urbanopt/internal/cache"
	"github.com/sells-group/urbanopt/internal/evaluator"
	"github.com/sells-group/urbanopt/internal/pareto"
	"github.com/sells-group/urbanopt/internal/scenario"
)

// DefaultChunkSize is the number of consecutive enumeration indices a worker
// claims at a time. Chunks keep workers on contiguous index ranges, so the
// work assignment needs one atomic counter and no coordination.
const DefaultChunkSize = 256

// Options tunes a run.
type Options struct {
	// Workers bounds evaluation concurrency; non-positive means NumCPU.
	Workers int
	// ChunkSize is the contiguous index range claimed per dispatch.
	ChunkSize int64
	// AbortOnFailure stops the whole run on the first scenario whose
	// evaluation errors. When false, failed scenarios are recorded as
	// skips and the run continues.
	AbortOnFailure bool
	// KeepScored retains every feasible scored scenario in the result, not
	// just the frontier. Large spaces should leave this off.
	KeepScored bool
}

// Stats summarizes one run.
type Stats struct {
	RunID        string           `json:"run_id"`
	Workers      int              `json:"workers"`
	Cancelled    bool             `json:"cancelled,omitempty"`
	Enumerated   int64            `json:"enumerated"`
	Feasible     int64            `json:"feasible"`
	Pruned       int64            `json:"pruned"`
	Skipped      int64            `json:"skipped"`
	PruneReasons map[string]int64 `json:"prune_reasons,omitempty"`
	FrontierSize int              `json:"frontier_size"`
	Cache        cache.Stats      `json:"cache"`
	Elapsed      time.Duration    `json:"elapsed"`
}

// Result is the output of one optimization run.
type Result struct {
	Frontier []*evaluator.ScoredScenario `json:"frontier"`
	Scored   []*evaluator.ScoredScenario `json:"scored,omitempty"`
	Stats    Stats                       `json:"stats"`
}

// Run enumerates the space, evaluates every scenario through the evaluator,
// and returns the Pareto frontier with statistics. The run is deterministic:
// the same space, geometry, and configuration produce the same frontier
// regardless of worker count, because scenario identity comes from the
// enumeration index and fan-in re-sorts before reduction.
//
// Cancelling the context stops the run cooperatively: workers finish the
// scenario in hand and stop claiming more, and Run returns the frontier over
// whatever was scored so far with Stats.Cancelled set. No scenario is ever
// left half-scored.
func Run(ctx context.Context, space *scenario.Space, eval *evaluator.Evaluator, opts Options) (*Result, error) {
	if err := space.Validate(); err != nil {
		return nil, eris.Wrap(err, "runner: validate space")
	}
	total, err := space.Count()
	if err != nil {
		return nil, eris.Wrap(err, "runner: count space")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("starting optimization run",
		zap.Int64("scenarios", total),
		zap.Int("workers", workers),
		zap.Int64("chunk_size", chunkSize),
	)
	start := time.Now()

	var (
		mu           sync.Mutex
		feasible     []*evaluator.ScoredScenario
		pruneReasons = make(map[string]int64)

		enumerated atomic.Int64
		pruned     atomic.Int64
		skipped    atomic.Int64

		nextChunk atomic.Int64
		progress  = rate.Sometimes{Interval: 2 * time.Second}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				startIdx := nextChunk.Add(chunkSize) - chunkSize
				if startIdx >= total {
					return nil
				}
				endIdx := min(startIdx+chunkSize, total)

				for idx := startIdx; idx < endIdx; idx++ {
					// Cancellation stops the run between scenarios;
					// anything already scored is kept.
					if gctx.Err() != nil {
						return nil
					}

					s := space.At(idx)
					scored, err := evaluateSafe(eval, &s)
					if err != nil {
						if opts.AbortOnFailure {
							return eris.Wrapf(err, "runner: scenario %d", idx)
						}
						skipped.Add(1)
						log.Warn("skipping scenario",
							zap.Int64("index", idx),
							zap.Error(err),
						)
						enumerated.Add(1)
						continue
					}

					enumerated.Add(1)
					if !scored.Outcome.Feasible {
						pruned.Add(1)
						mu.Lock()
						pruneReasons[scored.Outcome.Reason]++
						mu.Unlock()
						continue
					}

					mu.Lock()
					feasible = append(feasible, scored)
					mu.Unlock()

					progress.Do(func() {
						log.Info("run progress",
							zap.Int64("enumerated", enumerated.Load()),
							zap.Int64("total", total),
							zap.Int64("pruned", pruned.Load()),
						)
					})
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "runner: run aborted")
	}
	cancelled := ctx.Err() != nil

	// Fan-in order depends on goroutine scheduling; restore enumeration
	// order before the reduction so the output is reproducible.
	sort.Slice(feasible, func(i, j int) bool {
		return feasible[i].Scenario.Index < feasible[j].Scenario.Index
	})

	frontier := pareto.Frontier(feasible, eval.Directions())

	stats := Stats{
		RunID:        runID,
		Workers:      workers,
		Cancelled:    cancelled,
		Enumerated:   enumerated.Load(),
		Feasible:     int64(len(feasible)),
		Pruned:       pruned.Load(),
		Skipped:      skipped.Load(),
		PruneReasons: pruneReasons,
		FrontierSize: len(frontier),
		Cache:        eval.Cache().Stats(),
		Elapsed:      time.Since(start),
	}

	log.Info("run complete",
		zap.Bool("cancelled", stats.Cancelled),
		zap.Int64("enumerated", stats.Enumerated),
		zap.Int64("feasible", stats.Feasible),
		zap.Int64("pruned", stats.Pruned),
		zap.Int64("skipped", stats.Skipped),
		zap.Int("frontier", stats.FrontierSize),
		zap.Float64("cache_hit_rate", stats.Cache.HitRate),
		zap.Duration("elapsed", stats.Elapsed),
	)

	result := &Result{Frontier: frontier, Stats: stats}
	if opts.KeepScored {
		result.Scored = feasible
	}
	return result, nil
}

// evaluateSafe isolates one scenario's evaluation so a panic in a metric
// takes down that scenario, not the worker pool.
func evaluateSafe(eval *evaluator.Evaluator, s *scenario.Scenario) (scored *evaluator.ScoredScenario, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("runner: evaluation panic: %v", r)
		}
	}()
	return eval.Evaluate(s)
}
