package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Skip reasons for ItemsSkipped.
const (
	ReasonInvalid   = "invalid"
	ReasonMalformed = "malformed"
)

// Metrics holds the collectors for one run. Register them on a dedicated
// registry so tests can create as many as they need.
type Metrics struct {
	ItemsRead       prometheus.Counter
	ItemsSkipped    *prometheus.CounterVec
	EventsSent      prometheus.Counter
	EventsAlerted   prometheus.Counter
	EventsSaved     prometheus.Counter
	SaveFailures    prometheus.Counter
	Retries         *prometheus.CounterVec
	PendingEntries  prometheus.Gauge
	EventDurationMs prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "items_read_total",
			Help:      "Input lines read",
		}),
		ItemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "items_skipped_total",
			Help:      "Input lines skipped, by reason",
		}, []string{"reason"}),
		EventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "events_sent_total",
			Help:      "Correlated events published to the stream",
		}),
		EventsAlerted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "events_alert_total",
			Help:      "Correlated events flagged as alerts",
		}),
		EventsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "events_saved_total",
			Help:      "Events persisted by the consumer",
		}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "save_failures_total",
			Help:      "Events the consumer failed to decode or persist",
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventinserter",
			Name:      "retries_total",
			Help:      "Retries of cache and stream operations",
		}, []string{"operation"}),
		PendingEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventinserter",
			Name:      "cache_pending_entries",
			Help:      "Ids waiting for their second occurrence",
		}),
		EventDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventinserter",
			Name:      "event_duration_ms",
			Help:      "Elapsed time between the two occurrences of an id",
			Buckets:   []float64{1, 2, 4, 8, 16, 64, 256, 1024, 10000, 60000},
		}),
	}

	reg.MustRegister(
		m.ItemsRead,
		m.ItemsSkipped,
		m.EventsSent,
		m.EventsAlerted,
		m.EventsSaved,
		m.SaveFailures,
		m.Retries,
		m.PendingEntries,
		m.EventDurationMs,
	)
	return m
}

// ObserveRetry is suitable as a retry.Policy OnRetry hook.
func (m *Metrics) ObserveRetry(op string) {
	m.Retries.WithLabelValues(op).Inc()
}
