package metrics

import (
	"context"
	"time"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

// InstrumentedProvider wraps a calendar provider and records per-operation
// latency and error counts.
type InstrumentedProvider struct {
	next calendar.Provider
	m    *Metrics
}

var _ calendar.Provider = (*InstrumentedProvider)(nil)

// InstrumentProvider wraps next with call metrics.
func InstrumentProvider(next calendar.Provider, m *Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{next: next, m: m}
}

func (p *InstrumentedProvider) ListSlots(ctx context.Context, calendarID string, r calendar.DateRange, durationMinutes int) ([]calendar.Slot, error) {
	start := time.Now()
	slots, err := p.next.ListSlots(ctx, calendarID, r, durationMinutes)
	p.m.ProviderCall("list_slots", time.Since(start).Seconds(), err)
	return slots, err
}

func (p *InstrumentedProvider) CreateEvent(ctx context.Context, slot calendar.Slot, patient calendar.PatientInfo, details calendar.EventDetails) (*calendar.Appointment, error) {
	start := time.Now()
	appt, err := p.next.CreateEvent(ctx, slot, patient, details)
	p.m.ProviderCall("create_event", time.Since(start).Seconds(), err)
	return appt, err
}

func (p *InstrumentedProvider) CancelEvent(ctx context.Context, appointmentID string) error {
	start := time.Now()
	err := p.next.CancelEvent(ctx, appointmentID)
	p.m.ProviderCall("cancel_event", time.Since(start).Seconds(), err)
	return err
}

func (p *InstrumentedProvider) UpdateEvent(ctx context.Context, appointmentID string, newSlot calendar.Slot) (*calendar.Appointment, error) {
	start := time.Now()
	appt, err := p.next.UpdateEvent(ctx, appointmentID, newSlot)
	p.m.ProviderCall("update_event", time.Since(start).Seconds(), err)
	return appt, err
}

func (p *InstrumentedProvider) ListAppointments(ctx context.Context, patient calendar.PatientInfo) ([]calendar.Appointment, error) {
	start := time.Now()
	appts, err := p.next.ListAppointments(ctx, patient)
	p.m.ProviderCall("list_appointments", time.Since(start).Seconds(), err)
	return appts, err
}
