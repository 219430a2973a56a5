package monitoring

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/pavanmanishd/vmarena/process"
)

const namespace = "vmarena"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Arena metrics
	ArenaCommits        prometheus.Counter
	ArenaCommittedBytes prometheus.Counter

	// Thread metrics
	Runs          *prometheus.CounterVec
	Workers       prometheus.Gauge
	SpawnFailures prometheus.Counter
	JoinFailures  prometheus.Counter
	WorkerResults *prometheus.CounterVec

	// Process metrics
	ProcessResults  *prometheus.CounterVec
	ProcessDuration prometheus.Histogram
	CapturedBytes   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ArenaCommits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arena_commits_total",
			Help:      "Growth commits issued by arenas",
		}),
		ArenaCommittedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arena_committed_bytes_total",
			Help:      "Bytes committed by arena growth",
		}),

		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Bootstrap runs by spawn policy",
		}, []string{"policy"}),
		Workers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Worker threads the last run resolved to",
		}),
		SpawnFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_spawn_failures_total",
			Help:      "Worker threads that could not be started",
		}),
		JoinFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_join_failures_total",
			Help:      "Worker threads that could not be joined",
		}),
		WorkerResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_results_total",
			Help:      "Finished workers by result",
		}, []string{"result"}),

		ProcessResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_results_total",
			Help:      "Child processes by result",
		}, []string{"result"}),
		ProcessDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Wall time from spawn to exit",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		CapturedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_captured_bytes_total",
			Help:      "Bytes captured from child output streams",
		}, []string{"stream"}),

		gatherer: reg,
	}
}

// OnCommit matches vmarena.Creation.OnCommit.
func (m *Metrics) OnCommit(bytes uint64) {
	m.ArenaCommits.Inc()
	m.ArenaCommittedBytes.Add(float64(bytes))
}

func (m *Metrics) WorkersResolved(policy string, n int) {
	m.Runs.WithLabelValues(policy).Inc()
	m.Workers.Set(float64(n))
}

func (m *Metrics) SpawnFailed() { m.SpawnFailures.Inc() }

func (m *Metrics) JoinFailed() { m.JoinFailures.Inc() }

func (m *Metrics) WorkerFinished(r process.Result) {
	m.WorkerResults.WithLabelValues(r.String()).Inc()
}

// ObserveProcess records a finished child.
func (m *Metrics) ObserveProcess(res process.WaitResult, elapsed time.Duration) {
	m.ProcessResults.WithLabelValues(res.Result.String()).Inc()
	m.ProcessDuration.Observe(elapsed.Seconds())
	for _, s := range []process.Stream{process.Stdout, process.Stderr} {
		m.CapturedBytes.WithLabelValues(s.String()).Add(float64(len(res.Streams[s])))
	}
}

// WriteText writes every registered metric family in text exposition
// format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
