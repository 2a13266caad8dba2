package dialog

import (
	"testing"
	"time"

	"github.com/medinow/scheduling-assistant/internal/extract"
)

func newTestRouter() *Router {
	msg := NewMessages("Clínica MediNow", "Clínica MediNow - Av. Paulista, 1000", 6)
	return NewRouter(msg, extract.NewPatternExtractor(matcherLoc), 0.6)
}

func TestRouteGreetingWithoutFrame(t *testing.T) {
	r := newTestRouter()

	got := r.Route("Oi, bom dia!", nil)
	if got.Kind != IntentDigress {
		t.Fatalf("kind = %s, want digress", got.Kind)
	}
	if got.Reply == "" {
		t.Error("greeting must carry a reply")
	}
}

func TestRouteFlowTriggers(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		text string
		want FlowKind
	}{
		{"quero agendar uma consulta", FlowScheduling},
		{"gostaria de marcar um horário", FlowScheduling},
		{"quais são minhas consultas?", FlowConsultation},
		{"preciso remarcar minha consulta", FlowReschedule},
		{"quero cancelar minha consulta", FlowCancellation},
		{"quero desmarcar", FlowCancellation},
	}
	for _, tc := range cases {
		got := r.Route(tc.text, nil)
		if got.Kind != IntentStartFlow || got.Flow != tc.want {
			t.Errorf("Route(%q) = %s/%s, want start_flow/%s", tc.text, got.Kind, got.Flow, tc.want)
		}
	}
}

func TestRouteSameKindTriggerContinues(t *testing.T) {
	r := newTestRouter()
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingDateRange}

	if got := r.Route("quero agendar", frame); got.Kind != IntentContinue {
		t.Errorf("kind = %s, want continue", got.Kind)
	}
}

func TestRouteConfirmationStepOwnsNo(t *testing.T) {
	r := newTestRouter()
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingConfirmation}

	// "não" at the confirmation step answers the question; it must not be
	// read as a cancellation trigger or a session end.
	got := r.Route("não", frame)
	if got.Kind != IntentContinue {
		t.Fatalf("kind = %s, want continue", got.Kind)
	}

	got = r.Route("sim", frame)
	if got.Kind != IntentContinue {
		t.Fatalf("kind = %s, want continue", got.Kind)
	}
}

func TestRouteConfirmationStepYieldsToOtherFlowTrigger(t *testing.T) {
	r := newTestRouter()
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingConfirmation}

	// "quero remarcar" starts with an affirmative word but is an explicit
	// switch to another flow, not consent to the pending booking.
	got := r.Route("quero remarcar para outro dia", frame)
	if got.Kind != IntentStartFlow || got.Flow != FlowReschedule {
		t.Fatalf("got %s/%s, want start_flow/reschedule", got.Kind, got.Flow)
	}

	// A plain affirmative still belongs to the confirmation step.
	if got := r.Route("sim, quero", frame); got.Kind != IntentContinue {
		t.Errorf("kind = %s, want continue", got.Kind)
	}
}

func TestRouteCancelTriggerOutsideConfirmation(t *testing.T) {
	r := newTestRouter()
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingSlotChoice}

	got := r.Route("na verdade quero cancelar uma consulta", frame)
	if got.Kind != IntentStartFlow || got.Flow != FlowCancellation {
		t.Errorf("got %s/%s, want start_flow/cancellation", got.Kind, got.Flow)
	}
}

func TestRouteExpectedFieldAnswerContinues(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		text string
		step Step
	}{
		{"amanhã", StepAwaitingDateRange},
		{"30/10", StepAwaitingDateRange},
		{"2", StepAwaitingSlotChoice},
		{"às 14h30", StepAwaitingSlotChoice},
		{"meu nome é Maria Silva, maria@example.com", StepAwaitingPatientInfo},
		{"maria@example.com", StepIdentifyingPatient},
	}
	for _, tc := range cases {
		frame := &Frame{Kind: FlowScheduling, Step: tc.step}
		if got := r.Route(tc.text, frame); got.Kind != IntentContinue {
			t.Errorf("Route(%q, %s) = %s, want continue", tc.text, tc.step, got.Kind)
		}
	}
}

func TestRouteResumeWordsContinue(t *testing.T) {
	r := newTestRouter()
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingSlotChoice}

	if got := r.Route("quero continuar o agendamento", frame); got.Kind != IntentContinue {
		t.Errorf("kind = %s, want continue", got.Kind)
	}
}

func TestRouteEndPhrases(t *testing.T) {
	r := newTestRouter()

	if got := r.Route("tchau, até logo", nil); got.Kind != IntentEnd {
		t.Errorf("kind = %s, want end", got.Kind)
	}
	if got := r.Route("não quero, obrigado", nil); got.Kind != IntentEnd {
		t.Errorf("disinterest at top level: kind = %s, want end", got.Kind)
	}

	// Mid-flow disinterest without an explicit farewell stays in the flow;
	// the step validation re-prompts.
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingDateRange}
	if got := r.Route("não quero esse", frame); got.Kind == IntentEnd {
		t.Error("mid-flow disinterest must not end the session")
	}
}

func TestRouteFAQDigression(t *testing.T) {
	r := newTestRouter()
	frame := &Frame{Kind: FlowScheduling, Step: StepAwaitingSlotChoice, CreatedAt: time.Now()}

	got := r.Route("qual é o endereço da clínica?", frame)
	if got.Kind != IntentDigress {
		t.Fatalf("kind = %s, want digress", got.Kind)
	}
	if got.Reply == "" {
		t.Error("FAQ digression must carry an answer")
	}
}

func TestRouteUnknownTextDigresses(t *testing.T) {
	r := newTestRouter()

	got := r.Route("xyzzy plugh", nil)
	if got.Kind != IntentDigress || got.Reply == "" {
		t.Errorf("got %s, want digress with help reply", got.Kind)
	}
}
