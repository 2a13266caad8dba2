// Package calendar defines the narrow contract the dialogue engine uses to
// list openings and manage appointment events, plus the Google Calendar
// implementation of it.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrSlotTaken indicates the provider rejected a booking because the slot
// was taken between presentation and confirmation.
var ErrSlotTaken = errors.New("calendar: slot no longer available")

// ErrNotFound indicates the referenced appointment no longer exists.
var ErrNotFound = errors.New("calendar: appointment not found")

// Slot is a bookable time window. Slots are immutable once presented to a
// user and are referenced by 1-based ordinal position for that presentation.
type Slot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	CalendarID string    `json:"calendar_id"`
	// Ref carries a provider-specific reference when one exists.
	Ref string `json:"ref,omitempty"`
}

// DateRange is an inclusive date interval in the clinic timezone.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PatientInfo is the identity attached to an appointment.
type PatientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// AppointmentStatus tracks the provider-side lifecycle of an event.
type AppointmentStatus string

const (
	StatusBooked      AppointmentStatus = "booked"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Appointment is the engine's view of a provider event: a reference plus the
// cached fields needed for display and confirmation.
type Appointment struct {
	ID      string            `json:"id"`
	Slot    Slot              `json:"slot"`
	Patient PatientInfo       `json:"patient"`
	Status  AppointmentStatus `json:"status"`
}

// EventDetails carries the display fields written onto a calendar event.
type EventDetails struct {
	Summary     string
	Description string
	Location    string
}

// Provider is the calendar collaborator contract. Implementations must treat
// every call as blocking I/O bounded by the supplied context.
type Provider interface {
	// ListSlots returns open slots of the given duration inside the range,
	// ordered by start time.
	ListSlots(ctx context.Context, calendarID string, r DateRange, durationMinutes int) ([]Slot, error)
	// CreateEvent books the slot for the patient. Returns ErrSlotTaken when
	// the slot was claimed since it was listed.
	CreateEvent(ctx context.Context, slot Slot, patient PatientInfo, details EventDetails) (*Appointment, error)
	// CancelEvent removes the event. Cancelling an unknown event returns ErrNotFound.
	CancelEvent(ctx context.Context, appointmentID string) error
	// UpdateEvent moves an existing event to a new slot.
	UpdateEvent(ctx context.Context, appointmentID string, newSlot Slot) (*Appointment, error)
	// ListAppointments returns upcoming appointments attached to the patient.
	ListAppointments(ctx context.Context, patient PatientInfo) ([]Appointment, error)
}
