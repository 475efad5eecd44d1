package heatslab

import (
	"fmt"
	"time"

	"github.com/heatslab/heatslab/internal/plan"
	"github.com/heatslab/heatslab/types"
)

// Config is the configuration of one simulation run.
//
// A Config is built once (DefaultConfig, LoadConfig or a literal followed by
// SetDefaults) and then treated as immutable: the solver copies it on construction.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h".
type Config struct {
	// GridSize is the global grid dimension N (the grid is N×N).
	GridSize int `yaml:"gridSize"`

	// Timesteps is the number of explicit Euler steps to run.
	// Zero is valid: the initial field is collected unchanged.
	Timesteps int `yaml:"timesteps"`

	// Alpha is the diffusion coefficient.
	Alpha float64 `yaml:"alpha"`

	// DT is the timestep.
	DT float64 `yaml:"dt"`

	// DX is the spatial step.
	DX float64 `yaml:"dx"`

	// HotSquareSide is the side length of the centered hot square of the default
	// initial condition.
	HotSquareSide int `yaml:"hotSquareSide"`

	// HotValue is the initial temperature inside the hot square.
	HotValue float64 `yaml:"hotValue"`

	// ColdValue is the initial temperature everywhere else.
	// Zero is both the default and a valid value.
	ColdValue float64 `yaml:"coldValue"`

	// KernelWorkers is the number of goroutines each worker splits its owned rows
	// across when applying the stencil. 1 runs the kernel on the worker's goroutine.
	KernelWorkers int `yaml:"kernelWorkers"`

	// ExchangeTimeout bounds every wait of one timestep's halo exchange.
	// A transfer that does not complete in time fails the whole run.
	ExchangeTimeout time.Duration `yaml:"exchangeTimeout"`

	// GatherTimeout bounds the final collection.
	GatherTimeout time.Duration `yaml:"gatherTimeout"`

	// ProgressEvery is how often, in timesteps, OnTimestep fires and progress is logged.
	ProgressEvery int `yaml:"progressEvery"`

	// ProgressInterval is how often the progress publisher refreshes its KV key.
	ProgressInterval time.Duration `yaml:"progressInterval"`

	// SubjectPrefix is the NATS subject prefix of the run (also the progress key prefix).
	SubjectPrefix string `yaml:"subjectPrefix"`

	// ProgressBucket is the JetStream KV bucket progress reports are written to.
	ProgressBucket string `yaml:"progressBucket"`

	// OutputPath is where the collecting worker writes the heatmap.
	OutputPath string `yaml:"outputPath"`
}

// DefaultConfig returns a Config reproducing the reference run: a 100×100 grid with
// a 48×48 hot square at 100 degrees, 100000 steps, ALPHA=0.01, DT=0.1, DX=1.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		GridSize:         100,
		Timesteps:        100000,
		Alpha:            0.01,
		DT:               0.1,
		DX:               1.0,
		HotSquareSide:    48,
		HotValue:         100.0,
		ColdValue:        0.0,
		KernelWorkers:    1,
		ExchangeTimeout:  30 * time.Second,
		GatherTimeout:    60 * time.Second,
		ProgressEvery:    1000,
		ProgressInterval: 2 * time.Second,
		SubjectPrefix:    "heatslab",
		ProgressBucket:   "heatslab-progress",
		OutputPath:       "heatmap.txt",
	}
}

// SetDefaults fills in missing configuration values with the reference defaults.
//
// Timesteps, ColdValue and HotSquareSide keep an explicit zero: each is a
// meaningful setting.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.GridSize == 0 {
		cfg.GridSize = defaults.GridSize
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = defaults.Alpha
	}
	if cfg.DT == 0 {
		cfg.DT = defaults.DT
	}
	if cfg.DX == 0 {
		cfg.DX = defaults.DX
	}
	if cfg.HotValue == 0 {
		cfg.HotValue = defaults.HotValue
	}
	if cfg.KernelWorkers == 0 {
		cfg.KernelWorkers = defaults.KernelWorkers
	}
	if cfg.ExchangeTimeout == 0 {
		cfg.ExchangeTimeout = defaults.ExchangeTimeout
	}
	if cfg.GatherTimeout == 0 {
		cfg.GatherTimeout = defaults.GatherTimeout
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = defaults.ProgressEvery
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = defaults.ProgressInterval
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.ProgressBucket == "" {
		cfg.ProgressBucket = defaults.ProgressBucket
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = defaults.OutputPath
	}
}

// Validate checks configuration constraints.
//
// Hard Validation Rules:
//   - GridSize > 0
//   - Timesteps >= 0
//   - Alpha, DT, DX > 0
//   - 0 <= HotSquareSide <= GridSize
//   - KernelWorkers >= 1, ProgressEvery >= 1
//   - ExchangeTimeout, GatherTimeout, ProgressInterval > 0
//
// Returns:
//   - error: Error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.GridSize <= 0 {
		return fmt.Errorf("%w: GridSize must be > 0, got %d", types.ErrInvalidConfig, cfg.GridSize)
	}
	if cfg.Timesteps < 0 {
		return fmt.Errorf("%w: Timesteps must be >= 0, got %d", types.ErrInvalidConfig, cfg.Timesteps)
	}
	if cfg.Alpha <= 0 || cfg.DT <= 0 || cfg.DX <= 0 {
		return fmt.Errorf("%w: Alpha (%v), DT (%v) and DX (%v) must be > 0",
			types.ErrInvalidConfig, cfg.Alpha, cfg.DT, cfg.DX)
	}
	if cfg.HotSquareSide < 0 || cfg.HotSquareSide > cfg.GridSize {
		return fmt.Errorf("%w: HotSquareSide (%d) must be within [0, GridSize=%d]",
			types.ErrInvalidConfig, cfg.HotSquareSide, cfg.GridSize)
	}
	if cfg.KernelWorkers < 1 {
		return fmt.Errorf("%w: KernelWorkers must be >= 1, got %d", types.ErrInvalidConfig, cfg.KernelWorkers)
	}
	if cfg.ProgressEvery < 1 {
		return fmt.Errorf("%w: ProgressEvery must be >= 1, got %d", types.ErrInvalidConfig, cfg.ProgressEvery)
	}
	if cfg.ExchangeTimeout <= 0 || cfg.GatherTimeout <= 0 || cfg.ProgressInterval <= 0 {
		return fmt.Errorf("%w: ExchangeTimeout (%v), GatherTimeout (%v) and ProgressInterval (%v) must be > 0",
			types.ErrInvalidConfig, cfg.ExchangeTimeout, cfg.GatherTimeout, cfg.ProgressInterval)
	}

	return nil
}

// ValidateWithWarnings logs warnings for settings that are valid but likely
// unintended for a run with the given worker count.
//
// Parameters:
//   - logger: Logger instance for warning output
//   - workers: Worker count W of the run
func (cfg *Config) ValidateWithWarnings(logger Logger, workers int) {
	// Stability limit of the explicit scheme in two dimensions.
	if k := cfg.Params().Coefficient(); k > 0.25 {
		logger.Warn(
			"ALPHA*DT/DX^2 exceeds 0.25, the explicit scheme is unstable",
			"coefficient", k,
		)
	}

	if workers > 0 && plan.Check(cfg.GridSize, workers) == nil {
		if imb := plan.Imbalance(cfg.GridSize, workers); imb > 1.5 {
			logger.Warn(
				"last worker owns many more rows than the others",
				"gridSize", cfg.GridSize,
				"workers", workers,
				"imbalance", imb,
			)
		}
	}

	if cfg.Timesteps > 0 && cfg.ProgressEvery > cfg.Timesteps {
		logger.Warn(
			"ProgressEvery exceeds Timesteps, no progress will be reported",
			"progressEvery", cfg.ProgressEvery,
			"timesteps", cfg.Timesteps,
		)
	}
}

// Params returns the physical model and geometry of cfg.
func (cfg *Config) Params() types.Params {
	return types.Params{
		GridSize:      cfg.GridSize,
		Alpha:         cfg.Alpha,
		DT:            cfg.DT,
		DX:            cfg.DX,
		HotSquareSide: cfg.HotSquareSide,
		HotValue:      cfg.HotValue,
		ColdValue:     cfg.ColdValue,
	}
}

// TestConfig returns a configuration sized for fast test execution.
//
// The grid is 16×16 with a 6×6 hot square and 50 steps; timeouts are short so a
// stuck exchange fails a test quickly instead of hanging it.
//
// Returns:
//   - Config: Configuration with small geometry and fast timings
//
// Example:
//
//	cfg := heatslab.TestConfig()
//	cfg.Timesteps = 5
//	res, err := heatslab.RunLocal(ctx, &cfg, 4)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.GridSize = 16
	cfg.HotSquareSide = 6
	cfg.Timesteps = 50
	cfg.ProgressEvery = 10
	cfg.ExchangeTimeout = 5 * time.Second
	cfg.GatherTimeout = 5 * time.Second
	cfg.ProgressInterval = 100 * time.Millisecond

	return cfg
}
