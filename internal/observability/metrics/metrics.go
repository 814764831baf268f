package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the voice intake flow.
type IntakeMetrics struct {
	turnsTotal         *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	bookingsTotal      *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total dialogue turns processed, by state and action",
		}, []string{"state", "action"}),
		extractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "dialogue",
			Name:      "extraction_failures_total",
			Help:      "Transcript turns where a field extractor produced no value",
		}, []string{"field"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Appointment bookings, by outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "telephony",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of Twilio webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.extractionFailures, m.bookingsTotal, m.webhookLatency)
	return m
}

func (m *IntakeMetrics) ObserveTurn(state, action string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state, action).Inc()
}

func (m *IntakeMetrics) ObserveExtractionFailure(field string) {
	if m == nil {
		return
	}
	m.extractionFailures.WithLabelValues(field).Inc()
}

func (m *IntakeMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) ObserveWebhookLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(route).Observe(seconds)
}
