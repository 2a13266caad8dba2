package calendar

import (
	"testing"
	"time"
)

func mustLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{"09:00", 9, 0, false},
		{"18:30", 18, 30, false},
		{" 08:15 ", 8, 15, false},
		{"25:00", 0, 0, true},
		{"09:75", 0, 0, true},
		{"morning", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseClock(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got.hour != tt.hour || got.minute != tt.minute {
			t.Errorf("parseClock(%q) = %d:%d, want %d:%d", tt.in, got.hour, got.minute, tt.hour, tt.minute)
		}
	}
}

func TestOpenSlotsSkipsBusyIntervals(t *testing.T) {
	loc := mustLoc(t)
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, loc)

	busy := []interval{
		{
			start: time.Date(2026, 8, 28, 10, 0, 0, 0, loc),
			end:   time.Date(2026, 8, 28, 11, 0, 0, 0, loc),
		},
	}

	slots := openSlots(
		DateRange{Start: day, End: day},
		busy,
		clockTime{hour: 9}, clockTime{hour: 12},
		30*time.Minute, loc, now,
	)

	// 09:00-12:00 has six 30-minute windows; 10:00 and 10:30 are busy.
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4: %+v", len(slots), slots)
	}
	for _, s := range slots {
		if !s.Start.Before(busy[0].start) && s.Start.Before(busy[0].end) {
			t.Errorf("slot %v overlaps busy interval", s.Start)
		}
	}
	if got := slots[0].Start.Hour(); got != 9 {
		t.Errorf("first slot hour = %d, want 9", got)
	}
	if got := slots[len(slots)-1].Start; got.Hour() != 11 || got.Minute() != 30 {
		t.Errorf("last slot = %v, want 11:30", got)
	}
}

func TestOpenSlotsExcludesPast(t *testing.T) {
	loc := mustLoc(t)
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	// Midday: morning slots are already gone.
	now := time.Date(2026, 8, 28, 12, 10, 0, 0, loc)

	slots := openSlots(
		DateRange{Start: day, End: day},
		nil,
		clockTime{hour: 9}, clockTime{hour: 14},
		30*time.Minute, loc, now,
	)

	for _, s := range slots {
		if s.Start.Before(now) {
			t.Errorf("slot %v starts in the past", s.Start)
		}
	}
	if len(slots) != 3 {
		// 12:30, 13:00, 13:30 remain.
		t.Errorf("got %d slots, want 3", len(slots))
	}
}

func TestOpenSlotsMultiDayOrdered(t *testing.T) {
	loc := mustLoc(t)
	start := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	end := time.Date(2026, 8, 29, 0, 0, 0, 0, loc)
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, loc)

	slots := openSlots(
		DateRange{Start: start, End: end},
		nil,
		clockTime{hour: 9}, clockTime{hour: 10},
		30*time.Minute, loc, now,
	)

	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start.Before(slots[i-1].Start) {
			t.Errorf("slots out of order at %d", i)
		}
	}
	if slots[2].Start.Day() != 29 {
		t.Errorf("third slot should fall on the second day, got %v", slots[2].Start)
	}
}

func TestOverlapsAny(t *testing.T) {
	loc := mustLoc(t)
	at := func(h, m int) time.Time { return time.Date(2026, 8, 28, h, m, 0, 0, loc) }

	busy := []interval{{start: at(10, 0), end: at(10, 30)}}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"before", at(9, 0), at(9, 30), false},
		{"adjacent before", at(9, 30), at(10, 0), false},
		{"exact", at(10, 0), at(10, 30), true},
		{"partial", at(10, 15), at(10, 45), true},
		{"adjacent after", at(10, 30), at(11, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlapsAny(tt.start, tt.end, busy); got != tt.want {
				t.Errorf("overlapsAny = %v, want %v", got, tt.want)
			}
		})
	}
}
