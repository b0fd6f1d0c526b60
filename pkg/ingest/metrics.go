package ingest

import (
	"github.com/go-go-golems/inboxdb/pkg/persistence/chatdb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects import counters on a private registry. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	rows     *prometheus.CounterVec
	skipped  prometheus.Counter
	failures prometheus.Counter
	duration prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inboxdb",
			Name:      "records_total",
			Help:      "Export records processed, by kind.",
		}, []string{"kind"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inboxdb",
			Name:      "rows_inserted_total",
			Help:      "Rows written by committed imports, by table.",
		}, []string{"table"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inboxdb",
			Name:      "records_skipped_total",
			Help:      "Records skipped because their type is unknown.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inboxdb",
			Name:      "import_failures_total",
			Help:      "Conversation imports that failed and were rolled back.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inboxdb",
			Name:      "import_duration_seconds",
			Help:      "Wall time of successful conversation imports.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	m.registry.MustRegister(m.records, m.rows, m.skipped, m.failures, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, m.registry), "ingest: write metrics")
}

func (m *Metrics) observeRecord(kind Kind) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind.String()).Inc()
	if kind == KindUnknown {
		m.skipped.Inc()
	}
}

func (m *Metrics) observeResult(res *Result) {
	if m == nil || res == nil {
		return
	}
	m.duration.Observe(res.Duration.Seconds())
	w := res.Written
	for table, n := range map[string]int64{
		chatdb.TableUser:         w.Users,
		chatdb.TableMessage:      w.Messages,
		chatdb.TableMessageIndex: w.IndexedTexts,
		chatdb.TableReaction:     w.Reactions,
		chatdb.TableAsset:        w.Assets,
		chatdb.TableEvent:        w.Events,
	} {
		m.rows.WithLabelValues(table).Add(float64(n))
	}
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
