package heatslab

import "github.com/nats-io/nats.go/jetstream"

// Option configures a Solver with optional dependencies.
type Option func(*solverOptions)

// solverOptions holds optional Solver configuration.
type solverOptions struct {
	hooks      *Hooks
	metrics    MetricsCollector
	logger     Logger
	initial    InitialCondition
	progressKV jetstream.KeyValue
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions (nil callbacks are skipped)
//
// Returns:
//   - Option: Functional option for NewSolver
//
// Example:
//
//	hooks := &heatslab.Hooks{
//	    OnCollected: func(ctx context.Context, g *heatslab.Grid) error {
//	        return store(g)
//	    },
//	}
//	solver, err := heatslab.NewSolver(&cfg, ep, heatslab.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *solverOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewSolver
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *solverOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation
//
// Returns:
//   - Option: Functional option for NewSolver
//
// Example:
//
//	solver, err := heatslab.NewSolver(&cfg, ep, heatslab.WithLogger(logging.NewSlogDefault()))
func WithLogger(logger Logger) Option {
	return func(o *solverOptions) {
		o.logger = logger
	}
}

// WithInitialCondition replaces the default centered hot square.
//
// The function is evaluated once per owned cell at global coordinates, on every
// worker, so it must be a pure function of (row, col).
//
// Parameters:
//   - initial: Initial temperature of each global cell
//
// Returns:
//   - Option: Functional option for NewSolver
//
// Example:
//
//	spot := func(row, col int) float64 {
//	    if row == 1 && col == 1 {
//	        return 100
//	    }
//	    return 0
//	}
//	solver, err := heatslab.NewSolver(&cfg, ep, heatslab.WithInitialCondition(spot))
func WithInitialCondition(initial InitialCondition) Option {
	return func(o *solverOptions) {
		o.initial = initial
	}
}

// WithProgress publishes the worker's timestep to kv every Config.ProgressInterval.
//
// The key is "<SubjectPrefix>.rank-<rank>" and is deleted when Run returns.
//
// Parameters:
//   - kv: JetStream KV bucket, usually opened with kvutil.ProgressConfig
//
// Returns:
//   - Option: Functional option for NewSolver
func WithProgress(kv jetstream.KeyValue) Option {
	return func(o *solverOptions) {
		o.progressKV = kv
	}
}
