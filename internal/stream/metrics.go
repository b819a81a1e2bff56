package stream

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes registry activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	mu sync.Mutex

	subscribers *prometheus.GaugeVec
	broadcasts  *prometheus.CounterVec
	dropped     *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

// NewMetrics creates the stream collectors. A nil registerer means the default one.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer: registerer,
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orders",
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of dashboard connections attached to a channel",
		}, []string{"channel"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Subsystem: "stream",
			Name:      "broadcasts_total",
			Help:      "Number of events broadcast to a channel with at least one subscriber",
		}, []string{"channel", "event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Subsystem: "stream",
			Name:      "frames_dropped_total",
			Help:      "Number of frames that could not be queued for a subscriber",
		}, []string{"channel"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	for _, c := range []prometheus.Collector{m.subscribers, m.broadcasts, m.dropped} {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

func (m *Metrics) setSubscribers(channel string, n int) {
	if m == nil {
		return
	}
	if n == 0 {
		m.subscribers.DeleteLabelValues(channel)
		return
	}
	m.subscribers.WithLabelValues(channel).Set(float64(n))
}

func (m *Metrics) recordBroadcast(channel, event string, dropped int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(channel, event).Inc()
	if dropped > 0 {
		m.dropped.WithLabelValues(channel).Add(float64(dropped))
	}
}
