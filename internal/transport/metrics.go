package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the transport. All collectors register against the
// supplied registerer, so tests can isolate themselves from the default
// registry.
type Metrics struct {
	// FramesReceived counts inbound frames by wire event name.
	FramesReceived *prometheus.CounterVec

	// FramesInvalid counts frames dropped by decode or schema validation.
	FramesInvalid prometheus.Counter

	// Reconnects counts reconnect attempts.
	Reconnects prometheus.Counter

	// ConnectFailures counts failed handshakes, initial and reconnect.
	ConnectFailures prometheus.Counter
}

// NewMetrics creates and registers the transport collectors. A nil
// registerer uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaydesk_frames_received_total",
			Help: "Inbound frames by event name.",
		}, []string{"event"}),
		FramesInvalid: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaydesk_frames_invalid_total",
			Help: "Frames dropped by decode or schema validation.",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaydesk_reconnect_attempts_total",
			Help: "Reconnect attempts after a dropped connection.",
		}),
		ConnectFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaydesk_connect_failures_total",
			Help: "Failed connection handshakes.",
		}),
	}
}
