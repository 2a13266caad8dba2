package dialog

import (
	"testing"
	"time"
)

func TestPushCreatesFrameWithInitialStep(t *testing.T) {
	s := &Session{ID: "whatsapp:+5511999990000"}
	now := time.Now()

	frame := s.Push(FlowScheduling, now)
	if frame == nil {
		t.Fatal("Push returned nil")
	}
	if frame.Kind != FlowScheduling || frame.Step != StepAwaitingDateRange {
		t.Errorf("frame = %s/%s", frame.Kind, frame.Step)
	}
	if len(s.Stack) != 1 {
		t.Errorf("stack depth = %d, want 1", len(s.Stack))
	}
}

func TestPushSameKindPromotesExistingFrame(t *testing.T) {
	s := &Session{ID: "x"}
	now := time.Now()

	first := s.Push(FlowScheduling, now)
	first.Step = StepAwaitingSlotChoice
	first.Collected.TargetAppointmentID = "evt-1"

	s.Push(FlowCancellation, now)
	if s.Top().Kind != FlowCancellation {
		t.Fatalf("top = %s, want cancellation", s.Top().Kind)
	}

	// Asking to schedule again must promote the suspended frame, progress intact.
	frame := s.Push(FlowScheduling, now)
	if frame.Step != StepAwaitingSlotChoice {
		t.Errorf("promoted frame step = %s, want %s", frame.Step, StepAwaitingSlotChoice)
	}
	if frame.Collected.TargetAppointmentID != "evt-1" {
		t.Error("promoted frame lost collected fields")
	}
	if len(s.Stack) != 2 {
		t.Errorf("stack depth = %d, want 2", len(s.Stack))
	}
	if s.Stack[0].Kind != FlowCancellation {
		t.Errorf("bottom = %s, want cancellation", s.Stack[0].Kind)
	}
}

func TestPushThirdKindDropsOldest(t *testing.T) {
	s := &Session{ID: "x"}
	now := time.Now()

	s.Push(FlowScheduling, now)
	s.Push(FlowCancellation, now)
	s.Push(FlowConsultation, now)

	if len(s.Stack) != 2 {
		t.Fatalf("stack depth = %d, want 2", len(s.Stack))
	}
	if s.Stack[0].Kind != FlowCancellation || s.Stack[1].Kind != FlowConsultation {
		t.Errorf("stack = [%s, %s], want [cancellation, consultation]", s.Stack[0].Kind, s.Stack[1].Kind)
	}
}

func TestPopTerminalExposesSuspendedFrameUnchanged(t *testing.T) {
	s := &Session{ID: "x"}
	now := time.Now()

	suspended := s.Push(FlowScheduling, now)
	suspended.Step = StepAwaitingSlotChoice
	suspended.Collected.RangeStart = now

	top := s.Push(FlowCancellation, now)
	top.Step = StepCancelled

	popped := s.PopTerminal()
	if len(popped) != 1 || popped[0] != FlowCancellation {
		t.Fatalf("popped = %v", popped)
	}

	resumed := s.Top()
	if resumed == nil || resumed.Kind != FlowScheduling {
		t.Fatal("suspended frame not exposed")
	}
	if resumed.Step != StepAwaitingSlotChoice {
		t.Errorf("resumed step = %s, want awaiting_slot_choice", resumed.Step)
	}
	if resumed.Collected.RangeStart.IsZero() {
		t.Error("resumed frame lost collected fields")
	}
}

func TestPopTerminalLeavesActiveFrame(t *testing.T) {
	s := &Session{ID: "x"}
	s.Push(FlowScheduling, time.Now())

	if popped := s.PopTerminal(); popped != nil {
		t.Errorf("popped non-terminal frame: %v", popped)
	}
	if s.Top() == nil {
		t.Error("active frame removed")
	}
}

func TestClearStackKeepsProfile(t *testing.T) {
	s := &Session{ID: "x", Profile: Profile{Name: "Maria", Email: "maria@example.com"}}
	s.Push(FlowScheduling, time.Now())

	s.ClearStack()
	if s.Top() != nil {
		t.Error("stack should be empty")
	}
	if !s.Profile.Complete() {
		t.Error("profile must survive a stack reset")
	}
}

func TestProfileMissingFields(t *testing.T) {
	p := Profile{Email: "x@y.com"}
	missing := p.MissingFields()
	if len(missing) != 1 || missing[0] != "nome completo" {
		t.Errorf("missing = %v", missing)
	}
	if p.Complete() {
		t.Error("profile without name must not be complete")
	}
}
