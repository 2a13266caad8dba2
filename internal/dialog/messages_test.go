package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

func TestSlotListNumbering(t *testing.T) {
	m := NewMessages("", "", 6)
	slots := threeSlots()

	got := m.SlotList(slots)
	require.Contains(t, got, "1. 10/09/2026 às 09:00")
	require.Contains(t, got, "2. 10/09/2026 às 10:00")
	require.Contains(t, got, "3. 11/09/2026 às 14:00")
	assert.Contains(t, got, "Digite o número do horário desejado.")
}

func TestConfirmSummaryFields(t *testing.T) {
	m := NewMessages("Clínica MediNow", "Av. Paulista, 1000", 6)
	p := Profile{Name: "Maria Silva", Email: "maria@example.com"}

	got := m.ConfirmSummary(p, slotAt(15, 14, 30))
	assert.Contains(t, got, "Maria Silva")
	assert.Contains(t, got, "maria@example.com")
	assert.Contains(t, got, "15/09/2026")
	assert.Contains(t, got, "14:30")
	assert.Contains(t, got, "Av. Paulista, 1000")
	assert.Contains(t, got, "'SIM'")
}

func TestNoSlotsSingleDayVersusRange(t *testing.T) {
	m := NewMessages("", "", 6)
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, matcherLoc)

	single := m.NoSlots(day, day)
	assert.Contains(t, single, "para 10/09/2026")

	ranged := m.NoSlots(day, day.AddDate(0, 0, 2))
	assert.Contains(t, ranged, "entre 10/09/2026 e 12/09/2026")
}

func TestFAQAnswerKeywords(t *testing.T) {
	m := NewMessages("Clínica MediNow", "", 6)

	cases := map[string]bool{
		"qual o endereço de vocês?":       true,
		"vocês aceitam convênio?":         true,
		"qual o horário de funcionamento": true,
		"quanto custa a consulta?":        true,
		"quero agendar":                   false,
	}
	for text, want := range cases {
		_, ok := m.FAQAnswer(text)
		assert.Equal(t, want, ok, "FAQAnswer(%q)", text)
	}
}

func TestPromptIsDeterministicPerStep(t *testing.T) {
	m := NewMessages("", "", 6)
	frame := &Frame{
		Kind: FlowScheduling,
		Step: StepAwaitingSlotChoice,
		Collected: Collected{CandidateSlots: []calendar.Slot{
			slotAt(10, 9, 0),
		}},
	}

	first := m.Prompt(frame, Profile{})
	second := m.Prompt(frame, Profile{})
	require.Equal(t, first, second)
	assert.Contains(t, first, "1. ")

	frame.Kind = FlowReschedule
	frame.Step = StepAwaitingDateRange
	assert.Contains(t, m.Prompt(frame, Profile{}), "remarcar")
}

func TestPromptAsksOnlyMissingPatientFields(t *testing.T) {
	m := NewMessages("", "", 6)
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingPatientInfo}

	got := m.Prompt(frame, Profile{Email: "ana@example.com"})
	assert.Contains(t, got, "nome completo")
	assert.NotContains(t, got, "email")

	got = m.Prompt(frame, Profile{Name: "Ana Souza"})
	assert.Contains(t, got, "email")
	assert.NotContains(t, got, "nome completo")

	// Nothing known yet: both fields are requested.
	got = m.Prompt(frame, Profile{})
	assert.Contains(t, got, "nome completo")
	assert.Contains(t, got, "email")
}
