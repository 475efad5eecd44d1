package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heatslab/heatslab/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Every series carries a "rank" label. Collectors are created and registered lazily
// on the first recording call.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	kernelDuration    *prometheus.HistogramVec
	timestep          *prometheus.GaugeVec
	runResults        *prometheus.CounterVec
	haloDuration      *prometheus.HistogramVec
	haloResults       *prometheus.CounterVec
	gatherDuration    *prometheus.HistogramVec
	gatherResults     *prometheus.CounterVec
	progressPublishes *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "heatslab" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	solver, err := heatslab.NewSolver(cfg, ep, heatslab.WithMetrics(metrics.NewPrometheus(reg, "")))
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "heatslab"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.kernelDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "kernel_duration_seconds",
			Help:      "Duration of one stencil application on a worker's slab.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs .. ~2.6s
		}, []string{"rank"})

		p.timestep = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "timestep",
			Help:      "Last completed timestep per worker.",
		}, []string{"rank"})

		p.runResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "runs_total",
			Help:      "Total worker runs by result (success,failure).",
		}, []string{"rank", "result"})

		p.haloDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "exchange",
			Name:      "halo_duration_seconds",
			Help:      "Time from issuing a timestep's halo transfers to the last completed wait.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"rank"})

		p.haloResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "exchange",
			Name:      "halo_exchanges_total",
			Help:      "Total halo exchanges by result (success,failure).",
		}, []string{"rank", "result"})

		p.gatherDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "exchange",
			Name:      "gather_duration_seconds",
			Help:      "Duration of the final collection on each worker.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"rank"})

		p.gatherResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "exchange",
			Name:      "gathers_total",
			Help:      "Total final collections by result (success,failure).",
		}, []string{"rank", "result"})

		p.progressPublishes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "progress",
			Name:      "publishes_total",
			Help:      "Total progress publications to the KV bucket by result.",
		}, []string{"rank", "result"})

		p.reg.MustRegister(
			p.kernelDuration, p.timestep, p.runResults,
			p.haloDuration, p.haloResults,
			p.gatherDuration, p.gatherResults,
			p.progressPublishes,
		)
	})
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}

// RecordKernelDuration observes one kernel application.
func (p *PrometheusCollector) RecordKernelDuration(rank int, seconds float64) {
	p.ensureRegistered()
	p.kernelDuration.WithLabelValues(strconv.Itoa(rank)).Observe(seconds)
}

// RecordTimestep sets the worker's timestep gauge.
func (p *PrometheusCollector) RecordTimestep(rank int, step int) {
	p.ensureRegistered()
	p.timestep.WithLabelValues(strconv.Itoa(rank)).Set(float64(step))
}

// RecordRunResult counts a finished worker run.
func (p *PrometheusCollector) RecordRunResult(rank int, result string) {
	p.ensureRegistered()
	p.runResults.WithLabelValues(strconv.Itoa(rank), result).Inc()
}

// RecordHaloExchange observes one timestep's exchange and counts its result.
func (p *PrometheusCollector) RecordHaloExchange(rank int, seconds float64, success bool) {
	p.ensureRegistered()
	r := strconv.Itoa(rank)
	p.haloDuration.WithLabelValues(r).Observe(seconds)
	p.haloResults.WithLabelValues(r, result(success)).Inc()
}

// RecordGather observes the final collection and counts its result.
func (p *PrometheusCollector) RecordGather(rank int, seconds float64, success bool) {
	p.ensureRegistered()
	r := strconv.Itoa(rank)
	p.gatherDuration.WithLabelValues(r).Observe(seconds)
	p.gatherResults.WithLabelValues(r, result(success)).Inc()
}

// RecordProgressPublish counts a progress publication.
func (p *PrometheusCollector) RecordProgressPublish(rank int, success bool) {
	p.ensureRegistered()
	p.progressPublishes.WithLabelValues(strconv.Itoa(rank), result(success)).Inc()
}
