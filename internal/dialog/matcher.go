package dialog

import (
	"github.com/medinow/scheduling-assistant/internal/calendar"
	"github.com/medinow/scheduling-assistant/internal/extract"
)

// MatchSlot reconciles the user's reply against the previously presented
// candidate list. Resolution order: explicit ordinal index first (the list
// says "digite o número"), then a literal time match, then a date match when
// the candidates span several days. Anything else is an invalid selection
// and the caller re-presents the same list.
func MatchSlot(entities extract.Result, slots []calendar.Slot, minConfidence float64) (*calendar.Slot, error) {
	if len(slots) == 0 {
		return nil, ErrInvalidSelection
	}

	if v, ok := entities[extract.FieldSlotIndex]; ok && v.Confidence >= minConfidence {
		if v.Index < 1 || v.Index > len(slots) {
			return nil, ErrInvalidSelection
		}
		return &slots[v.Index-1], nil
	}

	if v, ok := entities[extract.FieldTime]; ok && v.Confidence >= minConfidence {
		var matches []*calendar.Slot
		for i := range slots {
			if slots[i].Start.Hour() == v.Hour && slots[i].Start.Minute() == v.Minute {
				matches = append(matches, &slots[i])
			}
		}
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
			return nil, ErrInvalidSelection
		default:
			// Same clock time on several days: a date in the message decides.
			if d, ok := entities[extract.FieldDate]; ok && d.Confidence >= minConfidence {
				for _, m := range matches {
					if sameDay(m.Start, d.Date) {
						return m, nil
					}
				}
			}
			return nil, ErrInvalidSelection
		}
	}

	if v, ok := entities[extract.FieldDate]; ok && v.Confidence >= minConfidence {
		var matches []*calendar.Slot
		for i := range slots {
			if sameDay(slots[i].Start, v.Date) {
				matches = append(matches, &slots[i])
			}
		}
		// The user chose the day; with a single opening that day the time is
		// implied. Several openings need an explicit time or ordinal.
		if len(matches) == 1 {
			return matches[0], nil
		}
	}

	return nil, ErrInvalidSelection
}

// MatchAppointment resolves a numbered appointment choice.
func MatchAppointment(entities extract.Result, appts []calendar.Appointment, minConfidence float64) (*calendar.Appointment, error) {
	if len(appts) == 0 {
		return nil, ErrInvalidSelection
	}
	if v, ok := entities[extract.FieldSlotIndex]; ok && v.Confidence >= minConfidence {
		if v.Index < 1 || v.Index > len(appts) {
			return nil, ErrInvalidSelection
		}
		return &appts[v.Index-1], nil
	}
	if v, ok := entities[extract.FieldDate]; ok && v.Confidence >= minConfidence {
		var matches []*calendar.Appointment
		for i := range appts {
			if sameDay(appts[i].Slot.Start, v.Date) {
				matches = append(matches, &appts[i])
			}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
	}
	return nil, ErrInvalidSelection
}
