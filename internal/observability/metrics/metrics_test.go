package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIntakeMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveTurn("GREETING", "continue")
	m.ObserveTurn("GREETING", "continue")
	m.ObserveExtractionFailure("phone")
	m.ObserveBooking("confirmed")
	m.ObserveWebhookLatency("handle_response", 0.05)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("GREETING", "continue")); got != 2 {
		t.Errorf("expected 2 turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.extractionFailures.WithLabelValues("phone")); got != 1 {
		t.Errorf("expected 1 extraction failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("confirmed")); got != 1 {
		t.Errorf("expected 1 booking, got %v", got)
	}

	count, err := testutil.GatherAndCount(reg,
		"intake_dialogue_turns_total",
		"intake_dialogue_extraction_failures_total",
		"intake_scheduling_bookings_total",
		"intake_telephony_webhook_latency_seconds",
	)
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 metric series, got %d", count)
	}
}

func TestIntakeMetricsNilReceiverIsSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveTurn("GREETING", "continue")
	m.ObserveExtractionFailure("email")
	m.ObserveBooking("error")
	m.ObserveWebhookLatency("webhook", 0.01)
}
