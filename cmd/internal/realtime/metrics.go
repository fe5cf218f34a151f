package realtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds realtime collectors. A nil *Metrics is a no-op.
type Metrics struct {
	rooms       prometheus.Gauge
	connections prometheus.Gauge
	broadcasts  prometheus.Counter
	deliveries  *prometheus.CounterVec
	evictions   prometheus.Counter
}

// NewMetrics registers realtime collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beer", Subsystem: "ws", Name: "rooms",
			Help: "Live event rooms.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beer", Subsystem: "ws", Name: "connections",
			Help: "Registered viewer connections across all rooms.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beer", Subsystem: "ws", Name: "broadcasts_total",
			Help: "Accepted refresh triggers.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beer", Subsystem: "ws", Name: "deliveries_total",
			Help: "Refresh deliveries by result.",
		}, []string{"result"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beer", Subsystem: "ws", Name: "room_evictions_total",
			Help: "Idle rooms retired by the janitor.",
		}),
	}

	for _, c := range []prometheus.Collector{m.rooms, m.connections, m.broadcasts, m.deliveries, m.evictions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) roomOpened() {
	if m != nil {
		m.rooms.Inc()
	}
}

func (m *Metrics) roomsEvicted(n int) {
	if m != nil && n > 0 {
		m.rooms.Sub(float64(n))
		m.evictions.Add(float64(n))
	}
}

func (m *Metrics) connAdded() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connRemoved() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) observeBroadcast(res BroadcastResult) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.deliveries.WithLabelValues("delivered").Add(float64(res.Delivered))
	m.deliveries.WithLabelValues("failed").Add(float64(res.Failed))
}
