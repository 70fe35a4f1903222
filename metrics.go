package xchg

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the prometheus collectors of the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Calls         *prometheus.CounterVec
	Deals         prometheus.Counter
	Messages      *prometheus.CounterVec
	Evictions     *prometheus.CounterVec
	Continuations prometheus.Counter
	MsgsPerCall   prometheus.Histogram
	Instances     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricexchg",
			Name:      "calls_total",
			Help:      "Entry point calls by entry and result code.",
		}, []string{"entry", "code"}),
		Deals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricexchg",
			Name:      "deals_total",
			Help:      "Deals executed.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricexchg",
			Name:      "messages_total",
			Help:      "Outbound messages by kind.",
		}, []string{"kind"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pricexchg",
			Name:      "evictions_total",
			Help:      "Orders removed without being fully filled, by reason.",
		}, []string{"reason"}),
		Continuations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pricexchg",
			Name:      "continuations_total",
			Help:      "Self-directed continuations scheduled.",
		}),
		MsgsPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pricexchg",
			Name:      "messages_per_call",
			Help:      "Outbound messages emitted by one call.",
			Buckets:   prometheus.LinearBuckets(0, 5, 20),
		}),
		Instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pricexchg",
			Name:      "instances",
			Help:      "Live instances hosted by the exchange.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Calls, m.Deals, m.Messages, m.Evictions, m.Continuations, m.MsgsPerCall, m.Instances)
	}
	return m
}

func (m *Metrics) observeCall(entry string, code ErrorCode, st *processingState) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(entry, code.String()).Inc()
	m.Deals.Add(float64(st.deals))
	for _, msg := range st.out {
		m.Messages.WithLabelValues(string(msg.Kind)).Inc()
		if msg.Kind == KindProcessQueue || msg.Kind == KindCancelContinue {
			m.Continuations.Inc()
		}
	}
	for reason, n := range st.evicted {
		m.Evictions.WithLabelValues(reason.String()).Add(float64(n))
	}
	m.MsgsPerCall.Observe(float64(len(st.out)))
}

func (m *Metrics) instanceAdded() {
	if m != nil {
		m.Instances.Inc()
	}
}

func (m *Metrics) instanceRemoved() {
	if m != nil {
		m.Instances.Dec()
	}
}
