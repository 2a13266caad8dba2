package dialog

import (
	"context"
	"strings"

	"github.com/medinow/scheduling-assistant/internal/extract"
)

// IntentKind classifies one inbound turn relative to the active frame.
type IntentKind string

const (
	IntentContinue  IntentKind = "continue"
	IntentStartFlow IntentKind = "start_flow"
	IntentDigress   IntentKind = "digress"
	IntentEnd       IntentKind = "end"
)

// Intent is the router's decision for a turn.
type Intent struct {
	Kind  IntentKind
	Flow  FlowKind // set when Kind == IntentStartFlow
	Reply string   // set when Kind == IntentDigress
}

// Flow trigger phrases. Reschedule and cancellation come before scheduling:
// "remarcar" and "desmarcar" both contain "marcar".
var flowTriggers = []struct {
	kind    FlowKind
	phrases []string
}{
	{FlowReschedule, []string{"remarcar", "reagendar", "mudar a consulta", "alterar a consulta", "mudar o horário", "mudar o horario"}},
	{FlowCancellation, []string{"cancelar", "desmarcar"}},
	{FlowConsultation, []string{"minhas consultas", "meus agendamentos", "minha consulta", "ver consulta", "quais consultas", "consultar agendamento", "quando é minha", "quando e minha"}},
	{FlowScheduling, []string{"agendar", "marcar", "agendamento", "nova consulta", "quero uma consulta", "preciso de uma consulta"}},
}

var greetingWords = []string{"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "e aí", "e ai"}

var resumeWords = []string{"continuar", "voltar", "continua", "retomar"}

// endPhrases close the session wherever they appear.
var endPhrases = []string{"tchau", "até logo", "ate logo", "até mais", "ate mais", "adeus", "encerrar", "era só isso", "era so isso"}

// disinterestPhrases close the session only at top level, where there is no
// active frame whose expected field could claim them.
var disinterestPhrases = []string{"não quero", "nao quero", "não, obrigado", "nao, obrigado", "não obrigado", "nao obrigado", "deixa pra lá", "deixa pra la"}

// Router classifies inbound turns. It consults only the deterministic
// pattern layer: routing must stay cheap and predictable, the LLM fallback
// belongs to the flow input extraction.
type Router struct {
	msg           *Messages
	patterns      *extract.PatternExtractor
	minConfidence float64
}

// NewRouter builds the intent router.
func NewRouter(msg *Messages, patterns *extract.PatternExtractor, minConfidence float64) *Router {
	if msg == nil {
		panic("dialog: messages cannot be nil")
	}
	if patterns == nil {
		panic("dialog: pattern extractor cannot be nil")
	}
	return &Router{msg: msg, patterns: patterns, minConfidence: minConfidence}
}

// Route decides how the turn relates to the active frame. Ambiguity defaults
// to Continue so the active flow's own validation re-prompts instead of a
// nearly-finished booking being dropped.
func (r *Router) Route(text string, top *Frame) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	// A frame waiting on yes/no owns confirmation words: "não" at the
	// confirmation step is an answer, not a cancellation trigger. But an
	// affirmative-looking message carrying a trigger of a different flow
	// ("quero remarcar") is a switch request, not consent, and falls
	// through to the trigger scan.
	if top != nil && expectsConfirmation(top.Step) {
		if result, _ := r.patterns.Extract(context.Background(), text, []extract.Field{extract.FieldConfirmation}); result.Has(extract.FieldConfirmation, r.minConfidence) {
			kind, triggered := matchTrigger(lower)
			if !result[extract.FieldConfirmation].Affirmed || !triggered || kind == top.Kind {
				return Intent{Kind: IntentContinue}
			}
		}
	}

	if kind, ok := matchTrigger(lower); ok {
		if top != nil && top.Kind == kind {
			return Intent{Kind: IntentContinue}
		}
		return Intent{Kind: IntentStartFlow, Flow: kind}
	}

	// "Oi, quero agendar" is a trigger, not a greeting, so this comes after
	// the trigger scan.
	if top == nil && r.isGreeting(lower) {
		return Intent{Kind: IntentDigress, Reply: r.msg.Greeting()}
	}

	if top != nil {
		if containsAny(lower, resumeWords) {
			return Intent{Kind: IntentContinue}
		}
		if r.answersExpectedField(text, top.Step) {
			return Intent{Kind: IntentContinue}
		}
	}

	if containsAny(lower, endPhrases) {
		return Intent{Kind: IntentEnd}
	}
	if top == nil && containsAny(lower, disinterestPhrases) {
		return Intent{Kind: IntentEnd}
	}

	if answer, ok := r.msg.FAQAnswer(text); ok {
		return Intent{Kind: IntentDigress, Reply: answer}
	}
	if top == nil {
		return Intent{Kind: IntentDigress, Reply: r.msg.DefaultHelp()}
	}
	return Intent{Kind: IntentDigress, Reply: r.msg.DefaultHelp()}
}

// matchTrigger finds the first flow whose trigger phrase appears in the text.
func matchTrigger(lower string) (FlowKind, bool) {
	for _, trigger := range flowTriggers {
		if containsAny(lower, trigger.phrases) {
			return trigger.kind, true
		}
	}
	return "", false
}

func (r *Router) isGreeting(lower string) bool {
	for _, w := range greetingWords {
		if lower == w || strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+",") || strings.HasPrefix(lower, w+"!") {
			return true
		}
	}
	return false
}

// answersExpectedField checks whether the text plausibly answers the step's
// expected field set using the deterministic layer only.
func (r *Router) answersExpectedField(text string, step Step) bool {
	fields := expectedFields(step)
	if len(fields) == 0 {
		return false
	}
	result, _ := r.patterns.Extract(context.Background(), text, fields)
	for _, f := range fields {
		if result.Has(f, r.minConfidence) {
			return true
		}
	}
	return false
}

// expectedFields maps each step to the structured fields it consumes.
func expectedFields(step Step) []extract.Field {
	switch step {
	case StepAwaitingDateRange:
		return []extract.Field{extract.FieldDateRange, extract.FieldDate}
	case StepAwaitingSlotChoice:
		return []extract.Field{extract.FieldSlotIndex, extract.FieldTime, extract.FieldDate, extract.FieldDateRange}
	case StepAwaitingPatientInfo, StepIdentifyingPatient:
		return []extract.Field{extract.FieldName, extract.FieldEmail, extract.FieldPhone}
	case StepAwaitingConfirmation, StepAwaitingCancelConfirmation:
		return []extract.Field{extract.FieldConfirmation}
	case StepAppointmentsPresented:
		return []extract.Field{extract.FieldSlotIndex, extract.FieldDate}
	case StepNotified:
		return []extract.Field{extract.FieldConfirmation, extract.FieldSlotIndex, extract.FieldTime}
	default:
		return nil
	}
}

func expectsConfirmation(step Step) bool {
	switch step {
	case StepAwaitingConfirmation, StepAwaitingCancelConfirmation, StepNotified:
		return true
	}
	return false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
