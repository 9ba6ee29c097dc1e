package reflection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for reflection runs.
type Metrics struct {
	RunsTotal                 *prometheus.CounterVec
	CandidatesTotal           *prometheus.CounterVec
	EntriesAppendedTotal      *prometheus.CounterVec
	DuplicatesSuppressedTotal prometheus.Counter
	SkippedTotal              prometheus.Counter
	AppendFailuresTotal       prometheus.Counter
	SecretsRedactedTotal      prometheus.Counter
	RunDuration               prometheus.Histogram
}

// NewMetrics creates the run metrics and registers them with reg. Each
// registry can hold one set; use a fresh registry per Session in tests.
//
// Metrics:
//   - sessionlearn_runs_total{result} - runs by outcome ("completed", "aborted")
//   - sessionlearn_candidates_total{category} - candidates extracted
//   - sessionlearn_entries_appended_total{confidence} - entries written
//   - sessionlearn_duplicates_suppressed_total - candidates dropped as duplicates
//   - sessionlearn_candidates_skipped_total - candidates that failed validation
//   - sessionlearn_append_failures_total - entries that failed to persist
//   - sessionlearn_secrets_redacted_total - secrets removed before persisting
//   - sessionlearn_run_duration_seconds - run latency
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionlearn_runs_total",
				Help: "Total number of reflection runs",
			},
			[]string{"result"},
		),
		CandidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionlearn_candidates_total",
				Help: "Total number of candidate learnings extracted",
			},
			[]string{"category"},
		),
		EntriesAppendedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionlearn_entries_appended_total",
				Help: "Total number of learning entries appended to the memory store",
			},
			[]string{"confidence"},
		),
		DuplicatesSuppressedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionlearn_duplicates_suppressed_total",
			Help: "Total number of candidates suppressed as duplicates",
		}),
		SkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionlearn_candidates_skipped_total",
			Help: "Total number of candidates skipped by validation",
		}),
		AppendFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionlearn_append_failures_total",
			Help: "Total number of entries that failed to append",
		}),
		SecretsRedactedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionlearn_secrets_redacted_total",
			Help: "Total number of secrets redacted from entries",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sessionlearn_run_duration_seconds",
			Help:    "Duration of reflection runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// WriteTextfile writes every metric gathered by g to path in the node
// exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
