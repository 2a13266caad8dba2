package calendar

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/medinow/scheduling-assistant/pkg/logging"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleProvider implements Provider on top of the Google Calendar API.
// Open slots are computed from free/busy data inside the clinic's working
// hours; events carry the patient identity as attendee plus private
// extended properties so ListAppointments can find them again.
type GoogleProvider struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	workStart  clockTime
	workEnd    clockTime
	logger     *logging.Logger
	now        func() time.Time
}

var _ Provider = (*GoogleProvider)(nil)

// GoogleConfig configures a GoogleProvider.
type GoogleConfig struct {
	CalendarID      string
	CredentialsFile string
	Timezone        string
	WorkDayStart    string // "09:00"
	WorkDayEnd      string // "18:00"
}

// NewGoogleProvider builds the Google Calendar client. Extra options allow
// tests to point the service at a local HTTP server.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, logger *logging.Logger, opts ...option.ClientOption) (*GoogleProvider, error) {
	if logger == nil {
		logger = logging.Default()
	}

	clientOpts := []option.ClientOption{option.WithScopes(gcal.CalendarScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create google client: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: invalid timezone %q: %w", cfg.Timezone, err)
	}

	workStart, err := parseClock(cfg.WorkDayStart)
	if err != nil {
		return nil, err
	}
	workEnd, err := parseClock(cfg.WorkDayEnd)
	if err != nil {
		return nil, err
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleProvider{
		svc:        svc,
		calendarID: calendarID,
		loc:        loc,
		workStart:  workStart,
		workEnd:    workEnd,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// ListSlots queries free/busy for the range and derives open slots inside
// working hours.
func (p *GoogleProvider) ListSlots(ctx context.Context, calendarID string, r DateRange, durationMinutes int) ([]Slot, error) {
	if calendarID == "" {
		calendarID = p.calendarID
	}
	if durationMinutes <= 0 {
		durationMinutes = 30
	}

	windowStart := p.workStart.on(r.Start, p.loc)
	windowEnd := p.workEnd.on(r.End, p.loc)
	if !windowEnd.After(windowStart) {
		return nil, nil
	}

	fb, err := p.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: windowStart.Format(time.RFC3339),
		TimeMax: windowEnd.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy query failed: %w", err)
	}

	var busy []interval
	if cal, ok := fb.Calendars[calendarID]; ok {
		for _, b := range cal.Busy {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				continue
			}
			busy = append(busy, interval{start: start, end: end})
		}
	}

	slots := openSlots(r, busy, p.workStart, p.workEnd, time.Duration(durationMinutes)*time.Minute, p.loc, p.now())
	for i := range slots {
		slots[i].CalendarID = calendarID
	}
	p.logger.Debug("calendar slots listed", "calendar_id", calendarID, "open", len(slots), "busy", len(busy))
	return slots, nil
}

// CreateEvent re-checks the slot against free/busy, then inserts the event.
func (p *GoogleProvider) CreateEvent(ctx context.Context, slot Slot, patient PatientInfo, details EventDetails) (*Appointment, error) {
	taken, err := p.slotBusy(ctx, slot)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	ev := &gcal.Event{
		Summary:     details.Summary,
		Description: details.Description,
		Location:    details.Location,
		Start:       &gcal.EventDateTime{DateTime: slot.Start.Format(time.RFC3339), TimeZone: p.loc.String()},
		End:         &gcal.EventDateTime{DateTime: slot.End.Format(time.RFC3339), TimeZone: p.loc.String()},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: patientProperties(patient),
		},
	}
	if patient.Email != "" {
		ev.Attendees = []*gcal.EventAttendee{{Email: patient.Email, DisplayName: patient.Name}}
	}

	created, err := p.svc.Events.Insert(p.eventCalendar(slot), ev).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create event: %w", err)
	}

	p.logger.Info("calendar event created", "event_id", created.Id, "start", slot.Start)
	return &Appointment{
		ID:      created.Id,
		Slot:    slot,
		Patient: patient,
		Status:  StatusBooked,
	}, nil
}

// CancelEvent deletes the event, mapping gone/missing to ErrNotFound.
func (p *GoogleProvider) CancelEvent(ctx context.Context, appointmentID string) error {
	err := p.svc.Events.Delete(p.calendarID, appointmentID).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("calendar: failed to cancel event: %w", err)
	}
	p.logger.Info("calendar event cancelled", "event_id", appointmentID)
	return nil
}

// UpdateEvent moves an existing event to the new slot.
func (p *GoogleProvider) UpdateEvent(ctx context.Context, appointmentID string, newSlot Slot) (*Appointment, error) {
	taken, err := p.slotBusy(ctx, newSlot)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	patch := &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: newSlot.Start.Format(time.RFC3339), TimeZone: p.loc.String()},
		End:   &gcal.EventDateTime{DateTime: newSlot.End.Format(time.RFC3339), TimeZone: p.loc.String()},
	}
	updated, err := p.svc.Events.Patch(p.calendarID, appointmentID, patch).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("calendar: failed to update event: %w", err)
	}

	p.logger.Info("calendar event moved", "event_id", appointmentID, "start", newSlot.Start)
	return &Appointment{
		ID:      updated.Id,
		Slot:    newSlot,
		Patient: patientFromEvent(updated),
		Status:  StatusRescheduled,
	}, nil
}

// ListAppointments finds upcoming events tagged with the patient's email or phone.
func (p *GoogleProvider) ListAppointments(ctx context.Context, patient PatientInfo) ([]Appointment, error) {
	call := p.svc.Events.List(p.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(p.now().Format(time.RFC3339)).
		MaxResults(20)

	switch {
	case patient.Email != "":
		call = call.PrivateExtendedProperty("patient_email=" + strings.ToLower(patient.Email))
	case patient.Phone != "":
		call = call.PrivateExtendedProperty("patient_phone=" + patient.Phone)
	default:
		return nil, nil
	}

	events, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to list appointments: %w", err)
	}

	var appts []Appointment
	for _, ev := range events.Items {
		if ev.Start == nil || ev.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			continue
		}
		end := start
		if ev.End != nil && ev.End.DateTime != "" {
			if parsed, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
				end = parsed
			}
		}

		status := StatusBooked
		if ev.Status == "cancelled" {
			status = StatusCancelled
		}

		appts = append(appts, Appointment{
			ID: ev.Id,
			Slot: Slot{
				Start:      start.In(p.loc),
				End:        end.In(p.loc),
				CalendarID: p.calendarID,
			},
			Patient: patientFromEvent(ev),
			Status:  status,
		})
	}
	return appts, nil
}

func (p *GoogleProvider) eventCalendar(slot Slot) string {
	if slot.CalendarID != "" {
		return slot.CalendarID
	}
	return p.calendarID
}

func (p *GoogleProvider) slotBusy(ctx context.Context, slot Slot) (bool, error) {
	calendarID := p.eventCalendar(slot)
	fb, err := p.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: slot.Start.Format(time.RFC3339),
		TimeMax: slot.End.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("calendar: freebusy recheck failed: %w", err)
	}
	cal, ok := fb.Calendars[calendarID]
	if !ok {
		return false, nil
	}
	return len(cal.Busy) > 0, nil
}

func patientProperties(patient PatientInfo) map[string]string {
	props := make(map[string]string)
	if patient.Email != "" {
		props["patient_email"] = strings.ToLower(patient.Email)
	}
	if patient.Phone != "" {
		props["patient_phone"] = patient.Phone
	}
	if patient.Name != "" {
		props["patient_name"] = patient.Name
	}
	return props
}

func patientFromEvent(ev *gcal.Event) PatientInfo {
	var patient PatientInfo
	if ev.ExtendedProperties != nil && ev.ExtendedProperties.Private != nil {
		patient.Email = ev.ExtendedProperties.Private["patient_email"]
		patient.Phone = ev.ExtendedProperties.Private["patient_phone"]
		patient.Name = ev.ExtendedProperties.Private["patient_name"]
	}
	if patient.Email == "" {
		for _, att := range ev.Attendees {
			if att.Email != "" {
				patient.Email = att.Email
				if patient.Name == "" {
					patient.Name = att.DisplayName
				}
				break
			}
		}
	}
	return patient
}

func isNotFound(err error) bool {
	if gerr, ok := err.(*googleapi.Error); ok {
		return gerr.Code == 404 || gerr.Code == 410
	}
	return false
}

// clockTime is a wall-clock time of day used for working-hours bounds.
type clockTime struct {
	hour   int
	minute int
}

func parseClock(s string) (clockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return clockTime{}, fmt.Errorf("calendar: invalid clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return clockTime{}, fmt.Errorf("calendar: invalid clock time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return clockTime{}, fmt.Errorf("calendar: invalid clock time %q", s)
	}
	return clockTime{hour: hour, minute: minute}, nil
}

func (c clockTime) on(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.minute, 0, 0, loc)
}

type interval struct {
	start time.Time
	end   time.Time
}

// openSlots derives bookable slots for the inclusive date range: fixed-size
// windows inside working hours that do not overlap any busy interval and do
// not start in the past.
func openSlots(r DateRange, busy []interval, workStart, workEnd clockTime, duration time.Duration, loc *time.Location, now time.Time) []Slot {
	var slots []Slot

	for day := r.Start.In(loc); !dayAfter(day, r.End.In(loc)); day = day.AddDate(0, 0, 1) {
		start := workStart.on(day, loc)
		end := workEnd.on(day, loc)

		for cursor := start; !cursor.Add(duration).After(end); cursor = cursor.Add(duration) {
			if cursor.Before(now) {
				continue
			}
			if overlapsAny(cursor, cursor.Add(duration), busy) {
				continue
			}
			slots = append(slots, Slot{Start: cursor, End: cursor.Add(duration)})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

func dayAfter(day, last time.Time) bool {
	y1, m1, d1 := day.Date()
	y2, m2, d2 := last.Date()
	if y1 != y2 {
		return y1 > y2
	}
	if m1 != m2 {
		return m1 > m2
	}
	return d1 > d2
}

func overlapsAny(start, end time.Time, busy []interval) bool {
	for _, b := range busy {
		if start.Before(b.end) && b.start.Before(end) {
			return true
		}
	}
	return false
}
