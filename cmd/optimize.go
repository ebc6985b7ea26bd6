package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urbanopt/internal/cache"
	"github.com/sells-group/urbanopt/internal/constraint"
	"github.com/sells-group/urbanopt/internal/evaluator"
	"github.com/sells-group/urbanopt/internal/geometry"
	"github.com/sells-group/urbanopt/internal/runner"
	"github.com/sells-group/urbanopt/internal/scenario"
	"github.com/sells-group/urbanopt/internal/spatial"
)

var (
	optimizeSpacePath string
	optimizeWorkers   int
	optimizeJSON      bool
	optimizeKeepAll   bool
	optimizeDemo      bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run a full scenario search over a parameter space",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		space, err := scenario.LoadSpace(optimizeSpacePath)
		if err != nil {
			return eris.Wrap(err, "load space")
		}

		geo, err := loadGeometry()
		if err != nil {
			return err
		}

		ix, err := spatial.Build(geo.AmenityPoints())
		if err != nil {
			return eris.Wrap(err, "build spatial index")
		}

		memo := cache.New(cfg.Cache.Capacity)
		if cfg.Cache.SnapshotPath != "" {
			store, err := cache.OpenSnapshotStore(ctx, cfg.Cache.SnapshotPath)
			if err != nil {
				return eris.Wrap(err, "open cache snapshot")
			}
			defer store.Close()

			seeded, err := store.Load(ctx, memo)
			if err != nil {
				return eris.Wrap(err, "seed cache from snapshot")
			}
			zap.L().Info("cache seeded from snapshot",
				zap.String("path", cfg.Cache.SnapshotPath),
				zap.Int("entries", seeded),
			)
			defer func() {
				if err := store.Save(ctx, memo); err != nil {
					zap.L().Warn("saving cache snapshot failed", zap.Error(err))
				}
			}()
		}

		params := cfg.Metrics.Params()
		checker := constraint.NewChecker(cfg.Constraints.Limits(), geo, params)
		eval := evaluator.New(geo, ix, params, cfg.Quantization.Steps(), checker,
			memo, cfg.Metrics.Weights, nil)

		workers := cfg.Run.Workers
		if optimizeWorkers > 0 {
			workers = optimizeWorkers
		}

		result, err := runner.Run(ctx, space, eval, runner.Options{
			Workers:        workers,
			ChunkSize:      cfg.Run.ChunkSize,
			AbortOnFailure: cfg.Run.AbortOnFailure,
			KeepScored:     optimizeKeepAll,
		})
		if err != nil {
			return eris.Wrap(err, "optimization run")
		}

		if optimizeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		renderFrontier(os.Stdout, result.Frontier)
		renderStats(os.Stdout, result.Stats)
		return nil
	},
}

// loadGeometry builds the reference snapshot from the configured shapefile
// layers, or a small synthetic district when --demo is set.
func loadGeometry() (*geometry.Snapshot, error) {
	if optimizeDemo {
		return demoSnapshot()
	}
	g := cfg.Geometry
	if g.BuildingsPath == "" || g.ParcelsPath == "" {
		return nil, eris.New("geometry paths not configured; set geometry.buildings_path and geometry.parcels_path or pass --demo")
	}
	geo, err := geometry.LoadSnapshot(g.BuildingsPath, g.AmenitiesPath, g.ParcelsPath)
	if err != nil {
		return nil, eris.Wrap(err, "load geometry")
	}
	return geo, nil
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeSpacePath, "space", "", "parameter space YAML file (required)")
	optimizeCmd.Flags().IntVar(&optimizeWorkers, "workers", 0, "evaluation concurrency (default from config, 0 = NumCPU)")
	optimizeCmd.Flags().BoolVar(&optimizeJSON, "json", false, "emit the full result as JSON")
	optimizeCmd.Flags().BoolVar(&optimizeKeepAll, "keep-scored", false, "retain every feasible scenario in the JSON output")
	optimizeCmd.Flags().BoolVar(&optimizeDemo, "demo", false, "use a built-in synthetic district instead of configured geometry")
	_ = optimizeCmd.MarkFlagRequired("space")
	rootCmd.AddCommand(optimizeCmd)
}
