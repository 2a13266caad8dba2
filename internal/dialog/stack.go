package dialog

import "time"

// maxStackDepth bounds the context stack: one active flow plus one suspended
// digression. A third flow displaces the oldest suspended frame.
const maxStackDepth = 2

// Top returns the active frame, or nil when the session is idle.
func (s *Session) Top() *Frame {
	if len(s.Stack) == 0 {
		return nil
	}
	return &s.Stack[len(s.Stack)-1]
}

// Push makes a frame of the given kind active. An existing frame of the same
// kind is promoted with its collected fields intact rather than duplicated;
// at depth the oldest suspended frame is discarded.
func (s *Session) Push(kind FlowKind, now time.Time) *Frame {
	for i := range s.Stack {
		if s.Stack[i].Kind == kind {
			frame := s.Stack[i]
			s.Stack = append(s.Stack[:i], s.Stack[i+1:]...)
			s.Stack = append(s.Stack, frame)
			return s.Top()
		}
	}

	if len(s.Stack) >= maxStackDepth {
		// Oldest digression loses.
		s.Stack = s.Stack[1:]
	}
	s.Stack = append(s.Stack, Frame{
		Kind:      kind,
		Step:      initialStep(kind),
		CreatedAt: now,
	})
	return s.Top()
}

// PopTerminal removes finished frames from the top of the stack, exposing any
// suspended frame unchanged. Returns the kinds popped, newest first.
func (s *Session) PopTerminal() []FlowKind {
	var popped []FlowKind
	for {
		top := s.Top()
		if top == nil || !top.Step.IsTerminal() {
			return popped
		}
		popped = append(popped, top.Kind)
		s.Stack = s.Stack[:len(s.Stack)-1]
	}
}

// ClearStack drops every frame. The profile is deliberately untouched so a
// returning user is not asked for identity again.
func (s *Session) ClearStack() {
	s.Stack = nil
}

func initialStep(kind FlowKind) Step {
	switch kind {
	case FlowScheduling:
		return StepAwaitingDateRange
	case FlowConsultation, FlowReschedule, FlowCancellation:
		return StepIdentifyingPatient
	case FlowProactive:
		return StepNotified
	default:
		return StepAwaitingDateRange
	}
}
