package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds relay counters
type Metrics struct {
	EventsMatched prometheus.Counter
	Deliveries    *prometheus.CounterVec
}

// NewMetrics creates relay counters and registers them on reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_events_matched_total",
			Help: "Inbound events that matched at least one subscription.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Delivery outcomes by final stage and state.",
		}, []string{"stage", "state"}),
	}

	if reg != nil {
		reg.MustRegister(m.EventsMatched, m.Deliveries)
	}

	return m
}

func (m *Metrics) recordOutcome(o Outcome) {
	m.Deliveries.WithLabelValues(string(o.Stage), string(o.State)).Inc()
}
