// Package dialog implements the conversational scheduling engine: intent
// routing, the per-session context stack, the flow state machines and the
// glue that turns inbound WhatsApp text into calendar side effects and
// outbound replies.
package dialog

import (
	"errors"
	"strings"
	"time"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

// FlowKind identifies one multi-turn user goal.
type FlowKind string

const (
	FlowScheduling   FlowKind = "scheduling"
	FlowConsultation FlowKind = "consultation"
	FlowReschedule   FlowKind = "reschedule"
	FlowCancellation FlowKind = "cancellation"
	FlowProactive    FlowKind = "proactive_confirm"
)

// Step is a flow-specific state. Steps are shared across flows where the
// behavior is identical (patient info and confirmation collection work the
// same whether the frame books, reschedules or confirms a proactive offer).
type Step string

const (
	// Scheduling (also re-entered by reschedule and proactive frames).
	StepAwaitingDateRange    Step = "awaiting_date_range"
	StepAwaitingSlotChoice   Step = "awaiting_slot_choice"
	StepAwaitingPatientInfo  Step = "awaiting_patient_info"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepBooked               Step = "booked"
	StepAbandoned            Step = "abandoned"

	// Consultation / reschedule / cancellation.
	StepIdentifyingPatient         Step = "identifying_patient"
	StepAppointmentsPresented      Step = "appointments_presented"
	StepAwaitingCancelConfirmation Step = "awaiting_cancel_confirmation"
	StepCancelled                  Step = "cancelled"
	StepCompleted                  Step = "completed"

	// Proactive confirm.
	StepNotified Step = "notified"
	StepDeclined Step = "declined"
)

// terminalSteps are popped from the stack on the next turn.
var terminalSteps = map[Step]bool{
	StepBooked:    true,
	StepAbandoned: true,
	StepCancelled: true,
	StepCompleted: true,
	StepDeclined:  true,
}

// IsTerminal reports whether the step ends its flow.
func (s Step) IsTerminal() bool {
	return terminalSteps[s]
}

// Collected holds the fields a flow gathers across turns. Serialized with
// the frame so a suspended flow resumes exactly where it stopped.
type Collected struct {
	RangeStart          time.Time              `json:"range_start,omitempty"`
	RangeEnd            time.Time              `json:"range_end,omitempty"`
	CandidateSlots      []calendar.Slot        `json:"candidate_slots,omitempty"`
	ChosenSlot          *calendar.Slot         `json:"chosen_slot,omitempty"`
	Appointments        []calendar.Appointment `json:"appointments,omitempty"`
	TargetAppointmentID string                 `json:"target_appointment_id,omitempty"`
	NotifiedAt          time.Time              `json:"notified_at,omitempty"`
}

// HasRange reports whether a usable date range was collected.
func (c *Collected) HasRange() bool {
	return !c.RangeStart.IsZero() && !c.RangeEnd.IsZero()
}

// Frame is the saved state of one in-progress flow.
type Frame struct {
	Kind      FlowKind  `json:"kind"`
	Step      Step      `json:"step"`
	Collected Collected `json:"collected"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the partial patient identity remembered across flows and across
// idle-timeout resets. Fields are filled once and reused.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Complete reports whether the profile is sufficient to book.
func (p Profile) Complete() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Email) != ""
}

// MissingFields lists the display names of absent booking fields.
func (p Profile) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "nome completo")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	return missing
}

// Identified reports whether the profile can find existing appointments.
func (p Profile) Identified() bool {
	return p.Email != "" || p.Phone != ""
}

// Patient converts the profile into the calendar collaborator's identity type.
func (p Profile) Patient() calendar.PatientInfo {
	return calendar.PatientInfo{Name: p.Name, Email: p.Email, Phone: p.Phone}
}

// Session is the per-user conversation state: the context stack, the known
// profile and the activity timestamp driving idle expiry.
type Session struct {
	ID           string    `json:"id"`
	Stack        []Frame   `json:"stack,omitempty"` // index 0 = bottom, last = active
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	// Version backs optimistic concurrency on save.
	Version int64 `json:"version"`
}

// ErrInvalidSelection marks a slot/appointment choice that does not resolve
// against the presented list. The flow re-prompts with the list unchanged.
var ErrInvalidSelection = errors.New("dialog: selection does not match presented options")

// ErrSessionConflict marks a lost optimistic-concurrency race on save. The
// caller reloads and retries the turn.
var ErrSessionConflict = errors.New("dialog: session modified concurrently")
