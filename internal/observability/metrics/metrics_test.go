package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

type failingProvider struct {
	calendar.Provider
}

func (failingProvider) ListSlots(context.Context, string, calendar.DateRange, int) ([]calendar.Slot, error) {
	return nil, errors.New("boom")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.TurnProcessed("continue")
	m.FlowStarted("scheduling")
	m.FlowEnded("scheduling", "booked")
	m.ProviderCall("list_slots", 0.1, nil)
	m.ProactivePush()
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TurnProcessed("continue")
	m.TurnProcessed("continue")
	m.FlowStarted("scheduling")

	if got := testutil.ToFloat64(m.turns.WithLabelValues("continue")); got != 2 {
		t.Errorf("turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.flowsStarted.WithLabelValues("scheduling")); got != 1 {
		t.Errorf("flows started = %v, want 1", got)
	}
}

func TestInstrumentedProviderCountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	p := InstrumentProvider(failingProvider{}, m)

	if _, err := p.ListSlots(context.Background(), "primary", calendar.DateRange{}, 30); err == nil {
		t.Fatal("expected error")
	}
	if got := testutil.ToFloat64(m.providerErrors.WithLabelValues("list_slots")); got != 1 {
		t.Errorf("provider errors = %v, want 1", got)
	}
}
