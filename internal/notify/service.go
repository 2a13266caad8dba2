package notify

import (
	"context"
	"fmt"

	"github.com/medinow/scheduling-assistant/internal/calendar"
	"github.com/medinow/scheduling-assistant/pkg/logging"
)

// Service emails the clinic operations inbox about booking outcomes.
type Service struct {
	email      EmailSender
	opsEmail   string
	clinicName string
	logger     *logging.Logger
}

// NewService creates a notification service. Returns nil when no operations
// address is configured, so callers can register it unconditionally.
func NewService(email EmailSender, opsEmail, clinicName string, logger *logging.Logger) *Service {
	if email == nil || opsEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = "Clínica MediNow"
	}
	return &Service{email: email, opsEmail: opsEmail, clinicName: clinicName, logger: logger}
}

// BookingConfirmed notifies operations about a booked or rescheduled
// appointment. outcome is "booked" or "rescheduled".
func (s *Service) BookingConfirmed(ctx context.Context, appt calendar.Appointment, outcome string) error {
	if s == nil {
		return nil
	}

	action := "Nova consulta agendada"
	if outcome == "rescheduled" {
		action = "Consulta remarcada"
	}

	subject := fmt.Sprintf("%s - %s", action, appt.Patient.Name)
	body := fmt.Sprintf(`%s pelo assistente de WhatsApp.

Paciente: %s
Email: %s
Telefone: %s
Data: %s
Horário: %s
Evento: %s

— %s`,
		action,
		appt.Patient.Name,
		appt.Patient.Email,
		appt.Patient.Phone,
		appt.Slot.Start.Format("02/01/2006"),
		appt.Slot.Start.Format("15:04"),
		appt.ID,
		s.clinicName)

	if err := s.email.Send(ctx, EmailMessage{To: s.opsEmail, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}
	return nil
}
