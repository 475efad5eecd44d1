package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/heatslab/heatslab"
	"github.com/heatslab/heatslab/internal/kvutil"
	"github.com/heatslab/heatslab/internal/logging"
	"github.com/heatslab/heatslab/internal/rankclaim"
	"github.com/heatslab/heatslab/transport"
)

// rankLeaseTTL bounds how long a crashed process keeps its claimed rank.
const rankLeaseTTL = 30 * time.Second

// runRank runs this process's single rank against an external NATS server. A
// negative rank claims the lowest free one from "<subjectPrefix>-ranks".
func runRank(ctx context.Context, cfg *heatslab.Config, opts options, logger *logging.SlogLogger, solverOpts []heatslab.Option) (*heatslab.Result, error) {
	nc, err := nats.Connect(opts.natsURL, nats.Name("heatslab"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	rank := opts.rank
	if rank < 0 {
		claimer, err := claimRank(ctx, nc, cfg.SubjectPrefix, opts.size, logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := claimer.Release(releaseCtx); err != nil {
				logger.Warn("failed to release rank", "error", err)
			}
		}()
		rank = claimer.Rank()
	}

	return runOnConn(ctx, nc, cfg, rank, opts.size, opts, logger.With("rank", rank), solverOpts)
}

func claimRank(ctx context.Context, nc *nats.Conn, prefix string, size int, logger *logging.SlogLogger) (*rankclaim.Claimer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	kv, err := kvutil.EnsureBucket(ctx, js, kvutil.RankClaimConfig(prefix+"-ranks", rankLeaseTTL), 3)
	if err != nil {
		return nil, fmt.Errorf("failed to open rank bucket: %w", err)
	}

	claimer := rankclaim.NewClaimer(kv, prefix, size, rankLeaseTTL, logger)
	if _, err := claimer.Claim(ctx); err != nil {
		return nil, err
	}
	if err := claimer.StartRenewal(ctx); err != nil {
		return nil, err
	}

	return claimer, nil
}

// runEmbedded starts an in-process NATS server and runs every rank against it, each
// with its own client connection.
func runEmbedded(ctx context.Context, cfg *heatslab.Config, opts options, logger *logging.SlogLogger, solverOpts []heatslab.Option) (*heatslab.Result, error) {
	ns, shutdown, err := startEmbeddedNATS()
	if err != nil {
		return nil, err
	}
	defer shutdown()

	logger.Info("embedded NATS server started", "url", ns.ClientURL(), "workers", opts.workers)

	results := make([]*heatslab.Result, opts.workers)
	errs := make([]error, opts.workers)

	var g errgroup.Group
	for rank := range opts.workers {
		g.Go(func() error {
			nc, err := nats.Connect(ns.ClientURL(), nats.Name(fmt.Sprintf("heatslab-rank-%d", rank)))
			if err != nil {
				errs[rank] = err
				return err
			}
			defer nc.Close()

			results[rank], errs[rank] = runOnConn(ctx, nc, cfg, rank, opts.workers, opts, logger.With("rank", rank), solverOpts)

			return errs[rank]
		})
	}

	if err := g.Wait(); err != nil {
		for _, e := range errs {
			if e != nil && !errors.Is(e, heatslab.ErrRunAborted) {
				return nil, e
			}
		}

		return nil, err
	}

	return results[0], nil
}

func runOnConn(
	ctx context.Context,
	nc *nats.Conn,
	cfg *heatslab.Config,
	rank, size int,
	opts options,
	logger *logging.SlogLogger,
	solverOpts []heatslab.Option,
) (*heatslab.Result, error) {
	c := *cfg
	solverOpts = append(solverOpts[:len(solverOpts):len(solverOpts)], heatslab.WithLogger(logger))

	if opts.progress {
		kv, err := progressBucket(ctx, nc, &c)
		if err != nil {
			return nil, err
		}
		solverOpts = append(solverOpts, heatslab.WithProgress(kv))
	}

	dialCtx, cancel := context.WithTimeout(ctx, opts.startupTimeout)
	defer cancel()

	logger.Info("waiting for workers", "size", size, "prefix", c.SubjectPrefix)

	ep, err := transport.DialNATS(dialCtx, nc, transport.NATSConfig{
		Prefix: c.SubjectPrefix,
		Rank:   rank,
		Size:   size,
	})
	if err != nil {
		return nil, fmt.Errorf("rank %d failed to join: %w", rank, err)
	}
	defer ep.Close()

	solver, err := heatslab.NewSolver(&c, ep, solverOpts...)
	if err != nil {
		ep.Abort(err)
		return nil, err
	}

	return solver.Run(ctx)
}

func progressBucket(ctx context.Context, nc *nats.Conn, cfg *heatslab.Config) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	kv, err := kvutil.EnsureBucket(ctx, js, kvutil.ProgressConfig(cfg.ProgressBucket, cfg.ProgressInterval), 3)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress bucket: %w", err)
	}

	return kv, nil
}

func startEmbeddedNATS() (*server.Server, func(), error) {
	storeDir, err := os.MkdirTemp("", "heatslab-nats-*")
	if err != nil {
		return nil, nil, err
	}

	ns, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		JetStream: true,
		StoreDir:  storeDir,
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		_ = os.RemoveAll(storeDir)
		return nil, nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}

	shutdown := func() {
		ns.Shutdown()
		ns.WaitForShutdown()
		_ = os.RemoveAll(storeDir)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		shutdown()
		return nil, nil, errors.New("embedded NATS server not ready")
	}

	return ns, shutdown, nil
}
