// Package metrics provides Prometheus metrics for the word index and completion queries.
//
// Metrics live on a private registry so several indexes can coexist in one
// process (and in tests). All methods are safe to call on a nil *Metrics.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Query outcomes used as the "result" label.
const (
	ResultHit       = "hit"
	ResultEmpty     = "empty"
	ResultCancelled = "cancelled"
)

// Metrics holds all Prometheus metrics for wordlist
type Metrics struct {
	registry *prometheus.Registry

	// Index metrics
	DocumentsTracked prometheus.Gauge
	TokensIndexed    prometheus.Gauge
	DocumentsSkipped prometheus.Counter
	ReindexTotal     prometheus.Counter

	// Query metrics
	QueriesTotal        *prometheus.CounterVec
	QueryDuration       prometheus.Histogram
	SuggestionsReturned prometheus.Counter

	StartTime time.Time
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		StartTime: time.Now(),
	}

	m.DocumentsTracked = factory.NewGauge(prometheus.GaugeOpts{
		Name: "wordlist_documents_tracked",
		Help: "Number of open documents in the word index",
	})
	m.TokensIndexed = factory.NewGauge(prometheus.GaugeOpts{
		Name: "wordlist_tokens_indexed",
		Help: "Distinct tokens summed over every document trie",
	})
	m.DocumentsSkipped = factory.NewCounter(prometheus.CounterOpts{
		Name: "wordlist_documents_skipped_total",
		Help: "Documents whose text could not be tokenized",
	})
	m.ReindexTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "wordlist_reindex_total",
		Help: "Document tries rebuilt after an open or change",
	})

	m.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordlist_queries_total",
			Help: "Completion queries by result",
		},
		[]string{"result"},
	)
	m.QueryDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordlist_query_duration_seconds",
		Help:    "Duration of completion queries in seconds",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	})
	m.SuggestionsReturned = factory.NewCounter(prometheus.CounterOpts{
		Name: "wordlist_suggestions_returned_total",
		Help: "Suggestions handed back to the editor",
	})

	return m
}

// SetIndexSize records the current number of documents and tokens.
func (m *Metrics) SetIndexSize(documents, tokens int) {
	if m == nil {
		return
	}
	m.DocumentsTracked.Set(float64(documents))
	m.TokensIndexed.Set(float64(tokens))
}

// DocumentSkipped counts a document that failed tokenization.
func (m *Metrics) DocumentSkipped() {
	if m == nil {
		return
	}
	m.DocumentsSkipped.Inc()
}

// Reindexed counts a rebuilt document trie.
func (m *Metrics) Reindexed() {
	if m == nil {
		return
	}
	m.ReindexTotal.Inc()
}

// ObserveQuery records one completion query.
func (m *Metrics) ObserveQuery(result string, took time.Duration, suggestions int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(result).Inc()
	m.QueryDuration.Observe(took.Seconds())
	m.SuggestionsReturned.Add(float64(suggestions))
}

// Snapshot flattens the registry into name -> value pairs.
// Labelled series are keyed as name{label="value"}; histograms report _count and _sum.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	out := make(map[string]float64)
	if m == nil {
		return out, nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName() + labelSuffix(metric.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				out[name] = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[name] = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[name+"_count"] = float64(metric.GetHistogram().GetSampleCount())
				out[name+"_sum"] = metric.GetHistogram().GetSampleSum()
			}
		}
	}
	out["wordlist_uptime_seconds"] = time.Since(m.StartTime).Seconds()
	return out, nil
}

func labelSuffix(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
