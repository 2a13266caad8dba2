package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medinow/scheduling-assistant/internal/calendar"
	"github.com/medinow/scheduling-assistant/internal/extract"
	"github.com/medinow/scheduling-assistant/pkg/logging"
)

// BookingObserver is notified after a calendar side effect succeeds. Used for
// archiving and confirmation emails; observer failures never fail the turn.
type BookingObserver interface {
	AppointmentBooked(ctx context.Context, sessionID string, appt calendar.Appointment)
	AppointmentCancelled(ctx context.Context, sessionID string, appointmentID string)
	AppointmentRescheduled(ctx context.Context, sessionID string, appt calendar.Appointment)
}

// FlowConfig carries the tunables the flow machines need.
type FlowConfig struct {
	CalendarID          string
	SlotDurationMinutes int
	MaxSlotsPresented   int
	MinConfidence       float64
	ProviderTimeout     time.Duration
	ClinicName          string
	ClinicLocation      string
}

// flows advances the per-frame state machines. Every handler mutates the
// frame and session in place and returns the replies for this turn; the
// engine owns persistence.
type flows struct {
	provider  calendar.Provider
	extractor extract.Extractor
	msg       *Messages
	observer  BookingObserver
	logger    *logging.Logger
	cfg       FlowConfig
	now       func() time.Time
	loc       *time.Location
}

func newFlows(provider calendar.Provider, extractor extract.Extractor, msg *Messages, observer BookingObserver, logger *logging.Logger, cfg FlowConfig, loc *time.Location) *flows {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.MaxSlotsPresented <= 0 {
		cfg.MaxSlotsPresented = 6
	}
	if cfg.SlotDurationMinutes <= 0 {
		cfg.SlotDurationMinutes = 30
	}
	return &flows{
		provider:  provider,
		extractor: extractor,
		msg:       msg,
		observer:  observer,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		loc:       loc,
	}
}

// Start produces the opening reply for a freshly pushed (or promoted) frame.
// The trigger message itself often carries usable entities ("quero cancelar,
// meu email é ...") and seeds the first step when it does.
func (f *flows) Start(ctx context.Context, s *Session, frame *Frame, text string) []string {
	switch frame.Kind {
	case FlowScheduling:
		if frame.Step != initialStep(FlowScheduling) {
			// Promoted frame: repeat its pending question.
			return []string{f.msg.Prompt(frame, s.Profile)}
		}
		if text != "" {
			entities := f.extract(ctx, text, extract.FieldDateRange, extract.FieldDate)
			if entities.Has(extract.FieldDateRange, f.cfg.MinConfidence) || entities.Has(extract.FieldDate, f.cfg.MinConfidence) {
				return f.handleDateRange(ctx, s, frame, text)
			}
		}
		return []string{f.msg.AskDateRange()}
	case FlowConsultation, FlowReschedule, FlowCancellation:
		if frame.Step != StepIdentifyingPatient {
			return []string{f.msg.Prompt(frame, s.Profile)}
		}
		if text != "" {
			entities := f.extract(ctx, text, extract.FieldEmail, extract.FieldPhone)
			if entities.Has(extract.FieldEmail, f.cfg.MinConfidence) || entities.Has(extract.FieldPhone, f.cfg.MinConfidence) {
				return f.handleIdentify(ctx, s, frame, text)
			}
		}
		if s.Profile.Identified() {
			return f.presentAppointments(ctx, s, frame)
		}
		return []string{f.msg.AskIdentity()}
	case FlowProactive:
		return []string{f.msg.ProactiveNotify(), f.msg.SlotList(frame.Collected.CandidateSlots)}
	}
	return []string{f.msg.DefaultHelp()}
}

// Handle advances the active frame with one inbound message.
func (f *flows) Handle(ctx context.Context, s *Session, frame *Frame, text string) []string {
	switch frame.Step {
	case StepAwaitingDateRange:
		return f.handleDateRange(ctx, s, frame, text)
	case StepAwaitingSlotChoice:
		return f.handleSlotChoice(ctx, s, frame, text)
	case StepAwaitingPatientInfo:
		return f.handlePatientInfo(ctx, s, frame, text)
	case StepAwaitingConfirmation:
		return f.handleConfirmation(ctx, s, frame, text)
	case StepIdentifyingPatient:
		return f.handleIdentify(ctx, s, frame, text)
	case StepAppointmentsPresented:
		return f.handleAppointmentChoice(ctx, s, frame, text)
	case StepAwaitingCancelConfirmation:
		return f.handleCancelConfirmation(ctx, s, frame, text)
	case StepNotified:
		return f.handleProactiveReply(ctx, s, frame, text)
	}
	f.logger.Warn("dialog: no handler for step", "session_id", s.ID, "kind", frame.Kind, "step", frame.Step)
	return []string{f.msg.DefaultHelp()}
}

func (f *flows) handleDateRange(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldDateRange, extract.FieldDate, extract.FieldTime)

	var start, end time.Time
	switch {
	case entities.Has(extract.FieldDateRange, f.cfg.MinConfidence):
		v := entities[extract.FieldDateRange]
		start, end = v.Date, v.EndDate
	case entities.Has(extract.FieldDate, f.cfg.MinConfidence):
		v := entities[extract.FieldDate]
		start, end = v.Date, v.Date
	default:
		return []string{f.msg.ClarifyDate()}
	}

	today := f.today()
	if end.Before(today) {
		return []string{f.msg.PastDate()}
	}
	if start.Before(today) {
		start = today
	}

	slots, err := f.listSlots(ctx, start, end)
	if err != nil {
		f.logger.Error("dialog: listing slots failed", "session_id", s.ID, "error", err)
		return []string{f.msg.ProviderApology()}
	}
	if len(slots) == 0 {
		return []string{f.msg.NoSlots(start, end)}
	}

	frame.Collected.RangeStart = start
	frame.Collected.RangeEnd = end
	frame.Collected.CandidateSlots = slots
	frame.Step = StepAwaitingSlotChoice
	return []string{f.msg.SlotList(slots)}
}

func (f *flows) handleSlotChoice(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldSlotIndex, extract.FieldTime, extract.FieldDate, extract.FieldDateRange)

	slot, err := MatchSlot(entities, frame.Collected.CandidateSlots, f.cfg.MinConfidence)
	if err != nil {
		// A date that resolves but matches none of the candidates means the
		// patient changed their mind about when, not that the pick is bad.
		if entities.Has(extract.FieldDateRange, f.cfg.MinConfidence) || entities.Has(extract.FieldDate, f.cfg.MinConfidence) {
			frame.Collected.CandidateSlots = nil
			frame.Collected.ChosenSlot = nil
			frame.Step = StepAwaitingDateRange
			return f.handleDateRange(ctx, s, frame, text)
		}
		return []string{
			f.msg.InvalidSelection(len(frame.Collected.CandidateSlots)),
			f.msg.SlotList(frame.Collected.CandidateSlots),
		}
	}

	frame.Collected.ChosenSlot = slot
	return f.afterSlotChosen(s, frame)
}

// afterSlotChosen routes to patient info collection or straight to the
// confirmation summary when the profile is already complete.
func (f *flows) afterSlotChosen(s *Session, frame *Frame) []string {
	if !s.Profile.Complete() {
		frame.Step = StepAwaitingPatientInfo
		return []string{f.msg.AskPatientInfo(s.Profile.MissingFields())}
	}
	frame.Step = StepAwaitingConfirmation
	return []string{f.msg.ConfirmSummary(s.Profile, *frame.Collected.ChosenSlot)}
}

func (f *flows) handlePatientInfo(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldName, extract.FieldEmail, extract.FieldPhone)

	if v, ok := entities[extract.FieldName]; ok && v.Confidence >= f.cfg.MinConfidence && s.Profile.Name == "" {
		s.Profile.Name = v.Text
	}
	if v, ok := entities[extract.FieldEmail]; ok && v.Confidence >= f.cfg.MinConfidence && s.Profile.Email == "" {
		s.Profile.Email = v.Text
	}
	if v, ok := entities[extract.FieldPhone]; ok && v.Confidence >= f.cfg.MinConfidence && s.Profile.Phone == "" {
		s.Profile.Phone = v.Text
	}

	if !s.Profile.Complete() {
		return []string{f.msg.AskPatientInfo(s.Profile.MissingFields())}
	}
	frame.Step = StepAwaitingConfirmation
	return []string{f.msg.ConfirmSummary(s.Profile, *frame.Collected.ChosenSlot)}
}

func (f *flows) handleConfirmation(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldConfirmation)
	v, ok := entities[extract.FieldConfirmation]
	if !ok || v.Confidence < f.cfg.MinConfidence {
		return []string{f.msg.AskYesNo()}
	}
	if !v.Affirmed {
		frame.Step = StepAbandoned
		return []string{f.msg.BookingAborted()}
	}

	if frame.Collected.TargetAppointmentID != "" {
		return f.commitReschedule(ctx, s, frame)
	}
	return f.commitBooking(ctx, s, frame)
}

func (f *flows) commitBooking(ctx context.Context, s *Session, frame *Frame) []string {
	slot := frame.Collected.ChosenSlot
	details := calendar.EventDetails{
		Summary:     fmt.Sprintf("Consulta médica - %s", s.Profile.Name),
		Description: fmt.Sprintf("Consulta agendada via WhatsApp para %s.", s.Profile.Name),
		Location:    f.cfg.ClinicLocation,
	}

	cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	defer cancel()
	appt, err := f.provider.CreateEvent(cctx, *slot, s.Profile.Patient(), details)
	if errors.Is(err, calendar.ErrSlotTaken) {
		return f.refreshAfterConflict(ctx, s, frame)
	}
	if err != nil {
		f.logger.Error("dialog: booking failed", "session_id", s.ID, "error", err)
		return []string{f.msg.ProviderApology()}
	}

	frame.Step = StepBooked
	if f.observer != nil {
		f.observer.AppointmentBooked(ctx, s.ID, *appt)
	}
	return []string{f.msg.Booked(*slot)}
}

func (f *flows) commitReschedule(ctx context.Context, s *Session, frame *Frame) []string {
	slot := frame.Collected.ChosenSlot

	cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	defer cancel()
	appt, err := f.provider.UpdateEvent(cctx, frame.Collected.TargetAppointmentID, *slot)
	if errors.Is(err, calendar.ErrSlotTaken) {
		return f.refreshAfterConflict(ctx, s, frame)
	}
	if errors.Is(err, calendar.ErrNotFound) {
		frame.Step = StepAbandoned
		return []string{f.msg.NoAppointments()}
	}
	if err != nil {
		f.logger.Error("dialog: reschedule failed", "session_id", s.ID, "error", err)
		return []string{f.msg.ProviderApology()}
	}

	frame.Step = StepCompleted
	if f.observer != nil {
		f.observer.AppointmentRescheduled(ctx, s.ID, *appt)
	}
	return []string{f.msg.Rescheduled(*slot)}
}

// refreshAfterConflict re-lists the collected range and sends the user back
// to slot choice after the chosen slot was claimed by someone else.
func (f *flows) refreshAfterConflict(ctx context.Context, s *Session, frame *Frame) []string {
	frame.Collected.ChosenSlot = nil
	frame.Step = StepAwaitingSlotChoice

	slots, err := f.listSlots(ctx, frame.Collected.RangeStart, frame.Collected.RangeEnd)
	if err != nil || len(slots) == 0 {
		if err != nil {
			f.logger.Error("dialog: refresh after conflict failed", "session_id", s.ID, "error", err)
		}
		frame.Step = StepAwaitingDateRange
		frame.Collected.CandidateSlots = nil
		return []string{f.msg.SlotTaken(), f.msg.AskDateRange()}
	}

	frame.Collected.CandidateSlots = slots
	return []string{f.msg.SlotTaken(), f.msg.SlotList(slots)}
}

func (f *flows) handleIdentify(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldEmail, extract.FieldPhone, extract.FieldName)

	if v, ok := entities[extract.FieldEmail]; ok && v.Confidence >= f.cfg.MinConfidence {
		s.Profile.Email = v.Text
	}
	if v, ok := entities[extract.FieldPhone]; ok && v.Confidence >= f.cfg.MinConfidence {
		s.Profile.Phone = v.Text
	}
	if v, ok := entities[extract.FieldName]; ok && v.Confidence >= f.cfg.MinConfidence && s.Profile.Name == "" {
		s.Profile.Name = v.Text
	}

	if !s.Profile.Identified() {
		return []string{f.msg.AskIdentity()}
	}
	return f.presentAppointments(ctx, s, frame)
}

// presentAppointments loads the patient's upcoming appointments and advances
// the managing flow accordingly.
func (f *flows) presentAppointments(ctx context.Context, s *Session, frame *Frame) []string {
	cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	defer cancel()
	appts, err := f.provider.ListAppointments(cctx, s.Profile.Patient())
	if err != nil {
		f.logger.Error("dialog: listing appointments failed", "session_id", s.ID, "error", err)
		return []string{f.msg.ProviderApology()}
	}
	if len(appts) == 0 {
		frame.Step = StepCompleted
		return []string{f.msg.NoAppointments()}
	}

	frame.Collected.Appointments = appts

	if len(appts) == 1 {
		return f.afterAppointmentChosen(s, frame, &appts[0])
	}

	frame.Step = StepAppointmentsPresented
	switch frame.Kind {
	case FlowCancellation:
		return []string{f.msg.AppointmentList(appts), f.msg.AskAppointmentChoice("cancelar")}
	case FlowReschedule:
		return []string{f.msg.AppointmentList(appts), f.msg.AskAppointmentChoice("remarcar")}
	default:
		return []string{f.msg.AppointmentList(appts), f.msg.AskAppointmentChoice("ver em detalhes")}
	}
}

func (f *flows) handleAppointmentChoice(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldSlotIndex, extract.FieldDate)

	appt, err := MatchAppointment(entities, frame.Collected.Appointments, f.cfg.MinConfidence)
	if err != nil {
		return []string{
			f.msg.InvalidSelection(len(frame.Collected.Appointments)),
			f.msg.AppointmentList(frame.Collected.Appointments),
		}
	}
	return f.afterAppointmentChosen(s, frame, appt)
}

func (f *flows) afterAppointmentChosen(s *Session, frame *Frame, appt *calendar.Appointment) []string {
	// The matched event carries the identity the patient booked with; adopt
	// whatever the profile is still missing.
	if s.Profile.Name == "" {
		s.Profile.Name = appt.Patient.Name
	}
	if s.Profile.Email == "" {
		s.Profile.Email = appt.Patient.Email
	}
	if s.Profile.Phone == "" {
		s.Profile.Phone = appt.Patient.Phone
	}

	switch frame.Kind {
	case FlowConsultation:
		frame.Step = StepCompleted
		return []string{f.msg.AppointmentDetails(*appt)}
	case FlowCancellation:
		frame.Collected.TargetAppointmentID = appt.ID
		frame.Step = StepAwaitingCancelConfirmation
		return []string{f.msg.CancelConfirm(*appt)}
	case FlowReschedule:
		frame.Collected.TargetAppointmentID = appt.ID
		frame.Step = StepAwaitingDateRange
		return []string{f.msg.AskNewDate()}
	}
	frame.Step = StepCompleted
	return []string{f.msg.AppointmentDetails(*appt)}
}

func (f *flows) handleCancelConfirmation(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldConfirmation)
	v, ok := entities[extract.FieldConfirmation]
	if !ok || v.Confidence < f.cfg.MinConfidence {
		return []string{f.msg.AskYesNo()}
	}
	if !v.Affirmed {
		frame.Step = StepCompleted
		return []string{f.msg.Kept()}
	}

	cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	defer cancel()
	err := f.provider.CancelEvent(cctx, frame.Collected.TargetAppointmentID)
	if err != nil && !errors.Is(err, calendar.ErrNotFound) {
		f.logger.Error("dialog: cancellation failed", "session_id", s.ID, "error", err)
		return []string{f.msg.ProviderApology()}
	}

	frame.Step = StepCancelled
	if f.observer != nil {
		f.observer.AppointmentCancelled(ctx, s.ID, frame.Collected.TargetAppointmentID)
	}
	return []string{f.msg.Cancelled()}
}

// handleProactiveReply consumes the answer to a same-day availability
// notification. A slot pick rides the regular booking tail; a refusal ends
// the frame and leaves the session as it was.
func (f *flows) handleProactiveReply(ctx context.Context, s *Session, frame *Frame, text string) []string {
	entities := f.extract(ctx, text, extract.FieldConfirmation, extract.FieldSlotIndex, extract.FieldTime)

	if slot, err := MatchSlot(entities, frame.Collected.CandidateSlots, f.cfg.MinConfidence); err == nil {
		frame.Collected.ChosenSlot = slot
		return f.afterSlotChosen(s, frame)
	}

	if v, ok := entities[extract.FieldConfirmation]; ok && v.Confidence >= f.cfg.MinConfidence {
		if !v.Affirmed {
			frame.Step = StepDeclined
			return []string{f.msg.ProactiveDeclined()}
		}
		// Interested but no pick yet.
		return []string{f.msg.SlotList(frame.Collected.CandidateSlots)}
	}

	return []string{
		f.msg.InvalidSelection(len(frame.Collected.CandidateSlots)),
		f.msg.SlotList(frame.Collected.CandidateSlots),
	}
}

// listSlots queries the provider with the configured timeout, retrying once
// on failure, and caps the result at the presentation limit.
func (f *flows) listSlots(ctx context.Context, start, end time.Time) ([]calendar.Slot, error) {
	r := calendar.DateRange{Start: start, End: end}

	var slots []calendar.Slot
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
		slots, err = f.provider.ListSlots(cctx, f.cfg.CalendarID, r, f.cfg.SlotDurationMinutes)
		cancel()
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	if len(slots) > f.cfg.MaxSlotsPresented {
		slots = slots[:f.cfg.MaxSlotsPresented]
	}
	return slots, nil
}

func (f *flows) extract(ctx context.Context, text string, fields ...extract.Field) extract.Result {
	result, err := f.extractor.Extract(ctx, text, fields)
	if err != nil {
		f.logger.Warn("dialog: extraction failed", "error", err)
		return extract.Result{}
	}
	return result
}

func (f *flows) today() time.Time {
	now := f.now().In(f.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.loc)
}
