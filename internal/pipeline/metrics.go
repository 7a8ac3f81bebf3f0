package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Document outcomes recorded by Metrics.
const (
	OutcomeProcessed = "processed"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Metrics counts pipeline activity. A nil *Metrics records nothing.
type Metrics struct {
	documents      *prometheus.CounterVec
	tokens         prometheus.Counter
	desyncs        prometheus.Counter
	taggerDuration prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "medreport",
				Subsystem: "pipeline",
				Name:      "documents_total",
				Help:      "The total number of documents handled, by outcome.",
			},
			[]string{"outcome"},
		),
		tokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "medreport",
				Subsystem: "pipeline",
				Name:      "tokens_featurised_total",
				Help:      "The total number of tokens turned into feature records.",
			},
		),
		desyncs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "medreport",
				Subsystem: "pipeline",
				Name:      "label_desyncs_total",
				Help:      "The total number of labeled records not found in the tokenization.",
			},
		),
		taggerDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "medreport",
				Subsystem: "pipeline",
				Name:      "tagger_duration_seconds",
				Help:      "Time spent labelling one document.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "medreport",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "The total number of result cache lookups, by result.",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.documents, m.tokens, m.desyncs, m.taggerDuration, m.cacheLookups)
	}
	return m
}

func (m *Metrics) document(outcome string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) featurised(tokens int) {
	if m == nil {
		return
	}
	m.tokens.Add(float64(tokens))
}

func (m *Metrics) desynced(n int) {
	if m == nil || n == 0 {
		return
	}
	m.desyncs.Add(float64(n))
}

func (m *Metrics) tagged(seconds float64) {
	if m == nil {
		return
	}
	m.taggerDuration.Observe(seconds)
}

func (m *Metrics) cache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
