package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

type recordingEmail struct {
	sent []EmailMessage
	err  error
}

func (r *recordingEmail) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func testAppointment() calendar.Appointment {
	start := time.Date(2026, 11, 15, 14, 0, 0, 0, time.UTC)
	return calendar.Appointment{
		ID:      "evt-1",
		Slot:    calendar.Slot{Start: start, End: start.Add(30 * time.Minute)},
		Patient: calendar.PatientInfo{Name: "Maria Silva", Email: "maria@example.com", Phone: "+5511999990000"},
		Status:  calendar.StatusBooked,
	}
}

func TestNilServiceIsSafe(t *testing.T) {
	var s *Service
	if err := s.BookingConfirmed(context.Background(), testAppointment(), "booked"); err != nil {
		t.Errorf("nil service: %v", err)
	}
	if NewService(nil, "ops@example.com", "", nil) != nil {
		t.Error("service without sender should be nil")
	}
	if NewService(&recordingEmail{}, "", "", nil) != nil {
		t.Error("service without ops address should be nil")
	}
}

func TestBookingConfirmedEmail(t *testing.T) {
	email := &recordingEmail{}
	s := NewService(email, "ops@medinow.example", "Clínica MediNow", nil)

	if err := s.BookingConfirmed(context.Background(), testAppointment(), "booked"); err != nil {
		t.Fatalf("BookingConfirmed: %v", err)
	}
	if len(email.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(email.sent))
	}

	msg := email.sent[0]
	if msg.To != "ops@medinow.example" {
		t.Errorf("to = %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "Maria Silva") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "15/11/2026") || !strings.Contains(msg.Body, "14:00") {
		t.Errorf("body missing slot: %q", msg.Body)
	}
}

func TestRescheduledEmailSubject(t *testing.T) {
	email := &recordingEmail{}
	s := NewService(email, "ops@medinow.example", "", nil)

	if err := s.BookingConfirmed(context.Background(), testAppointment(), "rescheduled"); err != nil {
		t.Fatalf("BookingConfirmed: %v", err)
	}
	if !strings.Contains(email.sent[0].Subject, "remarcada") {
		t.Errorf("subject = %q", email.sent[0].Subject)
	}
}
