// Command heatslab runs a two-dimensional heat diffusion simulation and writes the
// final temperature field as text.
//
// Modes:
//
//	heatslab -mode local -workers 4              all ranks as goroutines in this process
//	heatslab -mode embedded -workers 4           all ranks over an in-process NATS server
//	heatslab -mode nats -rank 2 -size 4 -nats-url nats://host:4222
//	                                             one rank per process over a shared NATS server
//	heatslab -mode nats -rank -1 -size 4         as above, claiming a free rank from a KV bucket
//
// Only rank 0 writes the output file, and only after a successful run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/heatslab/heatslab"
	"github.com/heatslab/heatslab/internal/heatmap"
	"github.com/heatslab/heatslab/internal/logging"
	"github.com/heatslab/heatslab/internal/metrics"
	"github.com/heatslab/heatslab/internal/plan"
)

type options struct {
	configPath     string
	mode           string
	workers        int
	rank           int
	size           int
	natsURL        string
	metricsAddr    string
	outputPath     string
	logLevel       string
	progress       bool
	startupTimeout time.Duration
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to a .yaml or .hcl configuration file (defaults if empty)")
	flag.StringVar(&o.mode, "mode", "local", "Run mode: local, embedded or nats")
	flag.IntVar(&o.workers, "workers", 4, "Worker count for local and embedded modes")
	flag.IntVar(&o.rank, "rank", 0, "This process's rank in nats mode (-1 claims the lowest free rank)")
	flag.IntVar(&o.size, "size", 1, "Total worker count in nats mode")
	flag.StringVar(&o.natsURL, "nats-url", nats.DefaultURL, "NATS server URL in nats mode")
	flag.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flag.StringVar(&o.outputPath, "out", "", "Output file (overrides the configured outputPath)")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&o.progress, "progress", false, "Publish per-rank progress to a JetStream KV bucket (embedded and nats modes)")
	flag.DurationVar(&o.startupTimeout, "startup-timeout", time.Minute, "How long to wait for every rank to join in nats mode")
	flag.Parse()

	return o
}

func main() {
	opts := parseFlags()

	logger, err := logging.NewText(os.Stderr, opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(opts, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options, logger *logging.SlogLogger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	solverOpts := []heatslab.Option{heatslab.WithLogger(logger)}
	if opts.metricsAddr != "" {
		srv := newMetricsServer(opts.metricsAddr, logger)
		srv.Start()
		defer srv.Shutdown()

		solverOpts = append(solverOpts, heatslab.WithMetrics(metrics.NewPrometheus(nil, "")))
	}

	start := time.Now()

	var res *heatslab.Result
	switch opts.mode {
	case "local":
		res, err = heatslab.RunLocal(ctx, cfg, opts.workers, solverOpts...)
	case "embedded":
		res, err = runEmbedded(ctx, cfg, opts, logger, solverOpts)
	case "nats":
		res, err = runRank(ctx, cfg, opts, logger, solverOpts)
	default:
		err = fmt.Errorf("%w: unknown mode %q", heatslab.ErrInvalidConfig, opts.mode)
	}
	if err != nil {
		return err
	}

	if res.Grid == nil {
		logger.Info("rank finished", "rank", res.Range.Rank, "steps", res.Steps)
		return nil
	}

	logger.Info("Time taken", "seconds", time.Since(start).Seconds())

	sum, err := heatmap.WriteFile(cfg.OutputPath, res.Grid)
	if err != nil {
		return err
	}
	if err := verifyHeatmap(cfg.OutputPath, sum); err != nil {
		return err
	}
	logger.Info("heatmap written", "path", cfg.OutputPath, "xxh3", fmt.Sprintf("%016x", sum))

	return nil
}

// verifyHeatmap rereads the output file and checks it against the checksum computed
// while writing it.
func verifyHeatmap(path string, want uint64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to reread heatmap: %w", err)
	}
	if got := heatmap.Checksum(data); got != want {
		return fmt.Errorf("heatmap %s checksum mismatch: wrote %016x, read %016x", path, want, got)
	}

	return nil
}

func loadConfig(opts options) (*heatslab.Config, error) {
	var cfg *heatslab.Config
	if opts.configPath != "" {
		loaded, err := heatslab.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := heatslab.DefaultConfig()
		cfg = &def
	}

	if opts.outputPath != "" {
		cfg.OutputPath = opts.outputPath
	}
	switch opts.mode {
	case "nats":
		if err := plan.Check(cfg.GridSize, opts.size); err != nil {
			return nil, fmt.Errorf("-size: %w", err)
		}
	case "local", "embedded":
		if err := plan.Check(cfg.GridSize, opts.workers); err != nil {
			return nil, fmt.Errorf("-workers: %w", err)
		}
	}

	return cfg, nil
}
