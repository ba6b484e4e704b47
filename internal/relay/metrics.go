package relay

import "github.com/prometheus/client_golang/prometheus"

const metricNamespace = "campuspower"

// Result label values.
const (
	resultAccepted   = "accepted"
	resultDropped    = "dropped"
	resultOK         = "ok"
	resultStoreError = "store_error"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	telemetryTotal  *prometheus.CounterVec
	controlTotal    *prometheus.CounterVec
	publishFailures prometheus.Counter
	devicesCreated  prometheus.Counter
}

// NewMetrics creates the relay collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		telemetryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: "relay",
				Name:      "telemetry_messages_total",
				Help:      "Telemetry messages received, by result.",
			},
			[]string{"result"},
		),
		controlTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: "relay",
				Name:      "control_intents_total",
				Help:      "Control intents handled, by result.",
			},
			[]string{"result"},
		),
		publishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: "relay",
				Name:      "publish_failures_total",
				Help:      "Control messages the broker client failed to publish.",
			},
		),
		devicesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Subsystem: "relay",
				Name:      "devices_created_total",
				Help:      "Devices created on first sight.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.telemetryTotal, m.controlTotal, m.publishFailures, m.devicesCreated)
	}
	return m
}

func (m *Metrics) telemetry(result string) {
	if m != nil {
		m.telemetryTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) control(result string) {
	if m != nil {
		m.controlTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.publishFailures.Inc()
	}
}

func (m *Metrics) deviceCreated() {
	if m != nil {
		m.devicesCreated.Inc()
	}
}
