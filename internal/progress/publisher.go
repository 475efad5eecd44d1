package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/heatslab/heatslab/types"
)

// Common errors for progress operations.
var (
	ErrNotStarted     = errors.New("publisher not started")
	ErrAlreadyStarted = errors.New("publisher already started")
	ErrNoSource       = errors.New("step source not set")
)

// Report is the value stored under a worker's progress key.
type Report struct {
	Rank      int       `json:"rank"`
	Step      int       `json:"step"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the worker has completed every timestep.
func (r Report) Done() bool {
	return r.Step >= r.Total
}

// Publisher periodically writes one worker's progress to a KV bucket.
type Publisher struct {
	kv       jetstream.KeyValue
	prefix   string
	interval time.Duration
	rank     int
	total    int
	source   func() int
	metrics  types.MetricsCollector
	logger   types.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	ticker  *time.Ticker
}

// New creates a new progress publisher for one worker.
//
// Parameters:
//   - kv: JetStream KV bucket for progress storage
//   - prefix: Key prefix (e.g., "heatslab")
//   - interval: Publication interval
//   - rank: Worker rank owning the key
//   - total: Timestep count of the run
//
// Returns:
//   - *Publisher: New progress publisher instance
//
// Example:
//
//	pub := progress.New(kv, "heatslab", 2*time.Second, rank, cfg.Timesteps)
//	pub.SetSource(solver.Step)
//	if err := pub.Start(ctx); err != nil {
//	    return err
//	}
//	defer pub.Stop()
func New(kv jetstream.KeyValue, prefix string, interval time.Duration, rank, total int) *Publisher {
	return &Publisher{
		kv:       kv,
		prefix:   prefix,
		interval: interval,
		rank:     rank,
		total:    total,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// SetSource sets the function that reports the worker's last completed timestep.
//
// Must be called before Start(). The function is called from the publisher's
// goroutine and must be safe for concurrent use.
func (p *Publisher) SetSource(source func() int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.source = source
}

// SetMetrics sets the metrics collector for publication events.
func (p *Publisher) SetMetrics(metrics types.MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics = metrics
}

// SetLogger sets the logger used for failed publications.
func (p *Publisher) SetLogger(logger types.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = logger
}

// Start publishes the current progress immediately, then every interval until Stop.
//
// Parameters:
//   - ctx: Context bounding the initial publication
//
// Returns:
//   - error: ErrAlreadyStarted if running, ErrNoSource if no source is set,
//     or the initial put error
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if p.source == nil {
		return ErrNoSource
	}

	if err := p.publish(ctx); err != nil {
		return fmt.Errorf("failed to publish initial progress: %w", err)
	}

	p.started = true
	p.ticker = time.NewTicker(p.interval)

	go p.publishLoop()

	return nil
}

// Stop ends publication and deletes the worker's key.
//
// Blocks until the publisher goroutine exits.
//
// Returns:
//   - error: ErrNotStarted if not running, or the delete error
func (p *Publisher) Stop() error {
	p.mu.Lock()

	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false

	p.mu.Unlock()

	<-p.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.kv.Delete(ctx, Key(p.prefix, p.rank)); err != nil {
		return fmt.Errorf("stopped but failed to delete progress: %w", err)
	}

	return nil
}

// IsStarted returns whether the publisher is currently running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}

func (p *Publisher) publishLoop() {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := p.publish(ctx)
			cancel()

			p.record(err)
		}
	}
}

// publish writes the current report. Callers hold p.mu or own the loop goroutine.
func (p *Publisher) publish(ctx context.Context) error {
	report := Report{
		Rank:      p.rank,
		Step:      p.source(),
		Total:     p.total,
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	if _, err := p.kv.Put(ctx, Key(p.prefix, p.rank), data); err != nil {
		return fmt.Errorf("failed to publish progress for rank %d: %w", p.rank, err)
	}

	return nil
}

func (p *Publisher) record(err error) {
	p.mu.Lock()
	metrics := p.metrics
	logger := p.logger
	p.mu.Unlock()

	if metrics != nil {
		metrics.RecordProgressPublish(p.rank, err == nil)
	}
	if err != nil && logger != nil {
		logger.Warn("progress publication failed", "rank", p.rank, "error", err)
	}
}

// Key returns the KV key holding rank's progress.
func Key(prefix string, rank int) string {
	return fmt.Sprintf("%s.rank-%d", prefix, rank)
}

// Snapshot reads every progress report stored under prefix, ordered by rank.
//
// Parameters:
//   - ctx: Context for the KV reads
//   - kv: Progress bucket
//   - prefix: Key prefix used by the publishers
//
// Returns:
//   - []Report: Reports of currently running workers (empty if none)
//   - error: KV read or decode error
func Snapshot(ctx context.Context, kv jetstream.KeyValue, prefix string) ([]Report, error) {
	keys, err := kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list progress keys: %w", err)
	}

	reports := make([]Report, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix+".rank-") {
			continue
		}

		entry, err := kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}

			return nil, fmt.Errorf("failed to read progress %s: %w", key, err)
		}

		var r Report
		if err := json.Unmarshal(entry.Value(), &r); err != nil {
			return nil, fmt.Errorf("failed to decode progress %s: %w", key, err)
		}
		reports = append(reports, r)
	}

	slices.SortFunc(reports, func(a, b Report) int { return a.Rank - b.Rank })

	return reports, nil
}
