package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/urbanopt/internal/constraint"
	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
)

// Config holds the full application configuration.
type Config struct {
	Geometry     GeometryConfig     `yaml:"geometry" mapstructure:"geometry"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Constraints  ConstraintsConfig  `yaml:"constraints" mapstructure:"constraints"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Run          RunConfig          `yaml:"run" mapstructure:"run"`
	Quantization QuantizationConfig `yaml:"quantization" mapstructure:"quantization"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// GeometryConfig points at the reference geometry layers.
type GeometryConfig struct {
	BuildingsPath string `yaml:"buildings_path" mapstructure:"buildings_path"`
	AmenitiesPath string `yaml:"amenities_path" mapstructure:"amenities_path"`
	ParcelsPath   string `yaml:"parcels_path" mapstructure:"parcels_path"`
}

// MetricsConfig holds metric constants and the objective weights.
type MetricsConfig struct {
	WalkRadius  float64            `yaml:"walk_radius" mapstructure:"walk_radius"`
	WalkScale   float64            `yaml:"walk_scale" mapstructure:"walk_scale"`
	FloorHeight float64            `yaml:"floor_height" mapstructure:"floor_height"`
	CostPerSqm  float64            `yaml:"cost_per_sqm" mapstructure:"cost_per_sqm"`
	Weights     map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// Params converts the configured constants to metric parameters.
func (m MetricsConfig) Params() metrics.Params {
	p := metrics.DefaultParams()
	if m.WalkRadius > 0 {
		p.WalkRadius = m.WalkRadius
	}
	if m.WalkScale > 0 {
		p.WalkScale = m.WalkScale
	}
	if m.FloorHeight > 0 {
		p.FloorHeight = m.FloorHeight
	}
	if m.CostPerSqm > 0 {
		p.CostPerSqm = m.CostPerSqm
	}
	return p
}

// ConstraintsConfig holds the feasibility thresholds.
type ConstraintsConfig struct {
	MinGreenRatio     float64 `yaml:"min_green_ratio" mapstructure:"min_green_ratio"`
	MaxFloorAreaRatio float64 `yaml:"max_floor_area_ratio" mapstructure:"max_floor_area_ratio"`
	MaxBudget         float64 `yaml:"max_budget" mapstructure:"max_budget"`
	SoftEnergyTarget  float64 `yaml:"soft_energy_target" mapstructure:"soft_energy_target"`
	SoftEnergyWeight  float64 `yaml:"soft_energy_weight" mapstructure:"soft_energy_weight"`
}

// Limits converts the configured thresholds to constraint limits.
func (c ConstraintsConfig) Limits() constraint.Limits {
	return constraint.Limits{
		MinGreenRatio:     c.MinGreenRatio,
		MaxFloorAreaRatio: c.MaxFloorAreaRatio,
		MaxBudget:         c.MaxBudget,
		SoftEnergyTarget:  c.SoftEnergyTarget,
		SoftEnergyWeight:  c.SoftEnergyWeight,
	}
}

// CacheConfig configures the memoization cache and its optional snapshot.
type CacheConfig struct {
	Capacity     int    `yaml:"capacity" mapstructure:"capacity"`
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
}

// RunConfig configures the parallel runner.
type RunConfig struct {
	Workers        int   `yaml:"workers" mapstructure:"workers"`
	ChunkSize      int64 `yaml:"chunk_size" mapstructure:"chunk_size"`
	AbortOnFailure bool  `yaml:"abort_on_failure" mapstructure:"abort_on_failure"`
}

// QuantizationConfig configures fingerprint rounding.
type QuantizationConfig struct {
	HeightStep   float64 `yaml:"height_step" mapstructure:"height_step"`
	FractionStep float64 `yaml:"fraction_step" mapstructure:"fraction_step"`
}

// Steps converts the configured rounding to quantization steps.
func (q QuantizationConfig) Steps() scenario.Quantization {
	s := scenario.DefaultQuantization()
	if q.HeightStep > 0 {
		s.HeightStep = q.HeightStep
	}
	if q.FractionStep > 0 {
		s.FractionStep = q.FractionStep
	}
	return s
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	for name, w := range c.Metrics.Weights {
		known := false
		for _, m := range metrics.Names {
			if m == name {
				known = true
				break
			}
		}
		if !known {
			errs = append(errs, fmt.Sprintf("metrics.weights: unknown metric %q", name))
		}
		if w < 0 {
			errs = append(errs, fmt.Sprintf("metrics.weights.%s must be >= 0", name))
		}
	}

	if c.Metrics.WalkRadius < 0 {
		errs = append(errs, "metrics.walk_radius must be >= 0")
	}
	if c.Constraints.MinGreenRatio < 0 || c.Constraints.MinGreenRatio > 1 {
		errs = append(errs, "constraints.min_green_ratio must be in [0, 1]")
	}
	if c.Constraints.SoftEnergyWeight < 0 {
		errs = append(errs, "constraints.soft_energy_weight must be >= 0")
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, "cache.capacity must be >= 0")
	}
	if c.Run.Workers < 0 {
		errs = append(errs, "run.workers must be >= 0")
	}
	if c.Quantization.HeightStep < 0 || c.Quantization.FractionStep < 0 {
		errs = append(errs, "quantization steps must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("URBANOPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.walk_radius", 800)
	v.SetDefault("metrics.walk_scale", 10)
	v.SetDefault("metrics.floor_height", 3)
	v.SetDefault("metrics.cost_per_sqm", 120)
	v.SetDefault("metrics.weights", map[string]float64{
		metrics.GreenSpace:  1,
		metrics.Walkability: 1,
		metrics.MixedUse:    1,
		metrics.Energy:      1,
		metrics.InfraCost:   1,
	})
	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("run.workers", 0)
	v.SetDefault("run.chunk_size", 256)
	v.SetDefault("quantization.height_step", 0.1)
	v.SetDefault("quantization.fraction_step", 0.01)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
