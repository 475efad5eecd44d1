package heatslab

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/heatslab/heatslab/internal/collect"
	"github.com/heatslab/heatslab/internal/exchange"
	"github.com/heatslab/heatslab/internal/grid"
	"github.com/heatslab/heatslab/internal/hooks"
	"github.com/heatslab/heatslab/internal/kernel"
	"github.com/heatslab/heatslab/internal/logging"
	"github.com/heatslab/heatslab/internal/metrics"
	"github.com/heatslab/heatslab/internal/plan"
	"github.com/heatslab/heatslab/internal/progress"
)

// Run results recorded through MetricsCollector.RecordRunResult.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Result is the outcome of one worker's run.
type Result struct {
	// Grid is the reassembled N×N field after the final timestep.
	// It is set on the collecting worker (rank 0) only.
	Grid *Grid

	// Range is the block of rows this worker owned.
	Range RowRange

	// Steps is the number of completed timesteps.
	Steps int

	// Elapsed is the wall-clock duration of Run.
	Elapsed time.Duration
}

// Solver runs one worker of a distributed heat diffusion simulation.
//
// Every worker of a run constructs a Solver with the same Config and its own
// Endpoint, then calls Run. Workers advance in lockstep: each timestep starts with a
// halo exchange with both neighbors, followed by a stencil update of the owned rows.
// After the final step every worker's rows are gathered on rank 0.
//
// Any failure is fatal to the whole run. The failing worker aborts the endpoint so
// that every other worker's pending exchange returns ErrRunAborted.
type Solver struct {
	cfg     Config
	params  Params
	ep      Endpoint
	part    *grid.Partition
	initial InitialCondition

	hooks      Hooks
	metrics    MetricsCollector
	logger     Logger
	progressKV jetstream.KeyValue

	started atomic.Bool
	step    atomic.Int64
}

// NewSolver creates a worker for the rank of ep.
//
// The configuration is copied after defaults are applied and validated. The row
// range is planned from ep.Size() and ep.Rank(), and both buffers of the partition
// are allocated here, so configuration errors surface before any communication.
//
// Parameters:
//   - cfg: Run configuration (missing values are defaulted in place)
//   - ep: This worker's transport endpoint
//   - opts: Optional dependencies (logger, metrics, hooks, initial condition, progress)
//
// Returns:
//   - *Solver: Solver ready to Run
//   - error: ErrInvalidConfig, ErrEndpointRequired, ErrTooManyWorkers or ErrInvalidRank (wrapped)
//
// Example:
//
//	tr, _ := transport.NewLocal(1)
//	ep, _ := tr.Endpoint(0)
//	solver, err := heatslab.NewSolver(&cfg, ep)
//	if err != nil {
//	    return err
//	}
//	res, err := solver.Run(ctx)
func NewSolver(cfg *Config, ep Endpoint, opts ...Option) (*Solver, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if ep == nil {
		return nil, ErrEndpointRequired
	}

	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rng, err := plan.Rows(cfg.GridSize, ep.Size(), ep.Rank())
	if err != nil {
		return nil, err
	}

	part, err := grid.New(rng, cfg.GridSize)
	if err != nil {
		return nil, err
	}

	options := &solverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	cfg.ValidateWithWarnings(loggerInstance, ep.Size())

	hooksInstance := hooks.NewNop()
	if options.hooks != nil {
		hooksInstance = hooks.Fill(*options.hooks)
	}

	params := cfg.Params()
	initial := options.initial
	if initial == nil {
		initial = params.HotSquare()
	}

	return &Solver{
		cfg:        *cfg,
		params:     params,
		ep:         ep,
		part:       part,
		initial:    initial,
		hooks:      hooksInstance,
		metrics:    metricsCollector,
		logger:     loggerInstance,
		progressKV: options.progressKV,
	}, nil
}

// Range returns the rows this worker owns.
func (s *Solver) Range() RowRange {
	return s.part.Range()
}

// Step returns the number of completed timesteps. Safe for concurrent use.
func (s *Solver) Step() int {
	return int(s.step.Load())
}

// Run initializes the owned rows, advances Config.Timesteps steps and collects the
// final field on rank 0.
//
// Run may be called once. It blocks until the run completes, fails, or ctx ends.
//
// Parameters:
//   - ctx: Context for cancellation of the whole run
//
// Returns:
//   - *Result: Outcome of the run (Grid set on rank 0 only)
//   - error: ErrAlreadyStarted, or a fatal exchange/gather error; the run is aborted
//     for every worker before the error is returned
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	start := time.Now()
	rank := s.ep.Rank()
	rng := s.part.Range()

	s.logger.Info("worker starting",
		"rank", rank,
		"workers", s.ep.Size(),
		"rows", rng.String(),
		"gridSize", s.cfg.GridSize,
		"timesteps", s.cfg.Timesteps,
	)

	if pub := s.startProgress(ctx); pub != nil {
		defer func() {
			if err := pub.Stop(); err != nil {
				s.logger.Warn("failed to stop progress publisher", "rank", rank, "error", err)
			}
		}()
	}

	s.part.Fill(s.initial)

	if err := s.advance(ctx); err != nil {
		return nil, s.fail(ctx, err)
	}

	g, err := s.collect(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	res := &Result{
		Grid:    g,
		Range:   rng,
		Steps:   s.Step(),
		Elapsed: time.Since(start),
	}

	if g != nil {
		if err := s.hooks.OnCollected(ctx, g); err != nil {
			s.logger.Warn("OnCollected hook failed", "rank", rank, "error", err)
		}
	}

	s.metrics.RecordRunResult(rank, resultSuccess)
	s.logger.Info("worker finished", "rank", rank, "steps", res.Steps, "elapsed", res.Elapsed)

	return res, nil
}

// advance runs the exchange, kernel, swap cycle for every timestep.
func (s *Solver) advance(ctx context.Context) error {
	rank := s.ep.Rank()
	every := s.cfg.ProgressEvery

	for step := range s.cfg.Timesteps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}

		if err := s.exchange(ctx, step); err != nil {
			return err
		}

		t := time.Now()
		kernel.Step(s.part, s.params, s.cfg.KernelWorkers)
		s.metrics.RecordKernelDuration(rank, time.Since(t).Seconds())

		s.part.Swap()
		done := step + 1
		s.step.Store(int64(done))

		if done%every == 0 {
			s.metrics.RecordTimestep(rank, done)
			s.logger.Debug("timestep complete", "rank", rank, "step", done)

			if err := s.hooks.OnTimestep(ctx, rank, done); err != nil {
				s.logger.Warn("OnTimestep hook failed", "rank", rank, "step", done, "error", err)
			}
		}
	}

	s.metrics.RecordTimestep(s.ep.Rank(), s.Step())

	return nil
}

func (s *Solver) exchange(ctx context.Context, step int) error {
	if s.ep.Size() == 1 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExchangeTimeout)
	defer cancel()

	t := time.Now()
	err := exchange.Halo(ctx, s.ep, s.part, step)
	s.metrics.RecordHaloExchange(s.ep.Rank(), time.Since(t).Seconds(), err == nil)

	return err
}

func (s *Solver) collect(ctx context.Context) (*Grid, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatherTimeout)
	defer cancel()

	t := time.Now()
	g, err := collect.Collect(ctx, s.ep, s.part)
	s.metrics.RecordGather(s.ep.Rank(), time.Since(t).Seconds(), err == nil)

	return g, err
}

// fail aborts the run for every worker and reports err.
func (s *Solver) fail(ctx context.Context, err error) error {
	rank := s.ep.Rank()

	// A worker woken by someone else's abort must not re-broadcast.
	if !errors.Is(err, ErrRunAborted) {
		s.ep.Abort(err)
	}

	s.metrics.RecordRunResult(rank, resultFailure)
	s.logger.Error("worker failed", "rank", rank, "step", s.Step(), "error", err)

	if hookErr := s.hooks.OnError(ctx, err); hookErr != nil {
		s.logger.Warn("OnError hook failed", "rank", rank, "error", hookErr)
	}

	return fmt.Errorf("rank %d: %w", rank, err)
}

func (s *Solver) startProgress(ctx context.Context) *progress.Publisher {
	if s.progressKV == nil {
		return nil
	}

	rank := s.ep.Rank()
	pub := progress.New(s.progressKV, s.cfg.SubjectPrefix, s.cfg.ProgressInterval, rank, s.cfg.Timesteps)
	pub.SetSource(s.Step)
	pub.SetMetrics(s.metrics)
	pub.SetLogger(s.logger)

	if err := pub.Start(ctx); err != nil {
		s.metrics.RecordProgressPublish(rank, false)
		s.logger.Warn("progress publication disabled", "rank", rank, "error", err)

		return nil
	}

	return pub
}
