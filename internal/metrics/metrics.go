// Package metrics exposes Prometheus counters for document parsing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/billscan/internal/cascade"
	"github.com/sells-group/billscan/internal/model"
)

// StrategyUnresolved labels a field no strategy resolved.
const StrategyUnresolved = "unresolved"

// Metrics records parse outcomes. A nil *Metrics is a valid no-op.
type Metrics struct {
	documents   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	attention   *prometheus.CounterVec
	ocrDuration *prometheus.HistogramVec
}

// New registers the billscan collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "billscan_documents_total",
			Help: "Documents parsed, by provider and document type.",
		}, []string{"provider", "document_type"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "billscan_field_resolutions_total",
			Help: "Field cascade outcomes, by winning strategy kind.",
		}, []string{"provider", "field", "strategy"}),
		attention: f.NewCounterVec(prometheus.CounterOpts{
			Name: "billscan_attention_total",
			Help: "Records flagged for manual review.",
		}, []string{"provider"}),
		ocrDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billscan_ocr_duration_seconds",
			Help:    "Time spent extracting text from a PDF.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"extractor"}),
	}
}

// ObserveRecord counts one parsed document and each of its field outcomes.
func (m *Metrics) ObserveRecord(rec model.BillRecord, res cascade.Resolution) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(rec.Provider, string(rec.DocumentType)).Inc()
	if rec.RequiresAttention {
		m.attention.WithLabelValues(rec.Provider).Inc()
	}
	for _, name := range res.Order {
		r := res.Results[name]
		strategy := StrategyUnresolved
		if r.Resolved {
			strategy = string(r.Strategy)
		}
		m.resolutions.WithLabelValues(rec.Provider, name, strategy).Inc()
	}
}

// ObserveOCR records how long extractor took on one file.
func (m *Metrics) ObserveOCR(extractor string, d time.Duration) {
	if m == nil {
		return
	}
	m.ocrDuration.WithLabelValues(extractor).Observe(d.Seconds())
}
