package dialog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medinow/scheduling-assistant/internal/calendar"
	"github.com/medinow/scheduling-assistant/internal/extract"
	"github.com/medinow/scheduling-assistant/internal/observability/metrics"
	"github.com/medinow/scheduling-assistant/pkg/logging"
)

// EngineConfig carries the session lifecycle tunables.
type EngineConfig struct {
	// IdleTimeout clears the stack of a session silent for this long. The
	// profile survives so a returning patient is not re-identified.
	IdleTimeout time.Duration
	// ResponseWindow bounds how long a proactive notification stays answerable.
	ResponseWindow time.Duration
	Flow           FlowConfig
	Timezone       *time.Location
}

// Engine is the conversational core: it loads the session, routes the turn,
// advances the active flow and persists the result. One instance serves all
// sessions; turns for the same session are serialized.
type Engine struct {
	store       SessionStore
	flows       *flows
	router      *Router
	msg         *Messages
	transcripts *TranscriptStore
	metrics     *metrics.Metrics
	logger      *logging.Logger
	cfg         EngineConfig
	now         func() time.Time
	listeners   []BookingListener

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires the engine. transcripts and m may be nil.
func NewEngine(
	store SessionStore,
	provider calendar.Provider,
	extractor extract.Extractor,
	msg *Messages,
	transcripts *TranscriptStore,
	m *metrics.Metrics,
	logger *logging.Logger,
	cfg EngineConfig,
) *Engine {
	if store == nil {
		panic("dialog: session store cannot be nil")
	}
	if provider == nil {
		panic("dialog: calendar provider cannot be nil")
	}
	if extractor == nil {
		panic("dialog: extractor cannot be nil")
	}
	if msg == nil {
		panic("dialog: messages cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.ResponseWindow <= 0 {
		cfg.ResponseWindow = 2 * time.Hour
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	e := &Engine{
		store:       store,
		msg:         msg,
		transcripts: transcripts,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
	}
	e.flows = newFlows(provider, extractor, msg, e, logger, cfg.Flow, cfg.Timezone)
	e.router = NewRouter(msg, extract.NewPatternExtractor(cfg.Timezone), cfg.Flow.MinConfidence)
	return e
}

// HandleMessage processes one inbound message and returns the ordered replies.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) ([]string, error) {
	if sessionID == "" {
		return nil, errors.New("dialog: session id required")
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	var replies []string
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		replies, err = e.handleTurn(ctx, sessionID, text)
		if !errors.Is(err, ErrSessionConflict) {
			break
		}
		e.logger.Warn("dialog: session conflict, retrying turn", "session_id", sessionID)
	}
	if err != nil {
		return nil, err
	}

	e.archive(ctx, sessionID, text, replies)
	return replies, nil
}

func (e *Engine) handleTurn(ctx context.Context, sessionID, text string) ([]string, error) {
	now := e.now()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &Session{ID: sessionID, CreatedAt: now}
	}

	e.beginTurn(session, now)

	intent := e.router.Route(text, session.Top())
	e.metrics.TurnProcessed(string(intent.Kind))

	var replies []string
	switch intent.Kind {
	case IntentContinue:
		top := session.Top()
		if top == nil {
			replies = []string{e.msg.DefaultHelp()}
			break
		}
		replies = e.flows.Handle(ctx, session, top, text)
		if top.Step.IsTerminal() {
			e.metrics.FlowEnded(string(top.Kind), string(top.Step))
		}

	case IntentStartFlow:
		promoted := e.hasFrame(session, intent.Flow)
		frame := session.Push(intent.Flow, now)
		if !promoted {
			e.metrics.FlowStarted(string(intent.Flow))
		}
		replies = e.flows.Start(ctx, session, frame, text)

	case IntentDigress:
		replies = []string{intent.Reply}
		if top := session.Top(); top != nil {
			// Answer, then put the interrupted flow back in front of the user.
			replies = append(replies, e.msg.Prompt(top, session.Profile))
		}

	case IntentEnd:
		for _, f := range session.Stack {
			e.metrics.FlowEnded(string(f.Kind), string(StepAbandoned))
		}
		session.ClearStack()
		replies = []string{e.msg.Farewell()}
	}

	session.LastActiveAt = now
	if err := e.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return replies, nil
}

// beginTurn applies the between-turn lifecycle rules: idle expiry, removal of
// frames that finished on the previous turn, and proactive window expiry.
func (e *Engine) beginTurn(session *Session, now time.Time) {
	if !session.LastActiveAt.IsZero() && now.Sub(session.LastActiveAt) > e.cfg.IdleTimeout {
		session.ClearStack()
	}

	session.PopTerminal()

	if top := session.Top(); top != nil && top.Kind == FlowProactive && top.Step == StepNotified {
		if !top.Collected.NotifiedAt.IsZero() && now.Sub(top.Collected.NotifiedAt) > e.cfg.ResponseWindow {
			session.Stack = session.Stack[:len(session.Stack)-1]
		}
	}
}

// PushProactive starts a proactive availability flow on a session and returns
// the notification messages to deliver.
func (e *Engine) PushProactive(ctx context.Context, sessionID string, slots []calendar.Slot) ([]string, error) {
	if sessionID == "" {
		return nil, errors.New("dialog: session id required")
	}
	if len(slots) == 0 {
		return nil, errors.New("dialog: proactive push needs at least one slot")
	}

	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := e.now()
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &Session{ID: sessionID, CreatedAt: now}
	}

	e.beginTurn(session, now)

	if limit := e.cfg.Flow.MaxSlotsPresented; limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}

	frame := session.Push(FlowProactive, now)
	frame.Step = StepNotified
	frame.Collected.CandidateSlots = slots
	frame.Collected.NotifiedAt = now

	e.metrics.FlowStarted(string(FlowProactive))
	e.metrics.ProactivePush()

	replies := e.flows.Start(ctx, session, frame, "")

	session.LastActiveAt = now
	if err := e.store.Save(ctx, session); err != nil {
		return nil, err
	}

	e.archive(ctx, sessionID, "", replies)
	return replies, nil
}

func (e *Engine) hasFrame(session *Session, kind FlowKind) bool {
	for i := range session.Stack {
		if session.Stack[i].Kind == kind {
			return true
		}
	}
	return false
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[sessionID] = lock
	}
	return lock
}

// archive records the turn in the transcript store. Failures are logged only;
// archiving never affects the reply.
func (e *Engine) archive(ctx context.Context, sessionID, inbound string, replies []string) {
	if e.transcripts == nil {
		return
	}
	convID, err := e.transcripts.EnsureConversation(ctx, sessionID)
	if err != nil {
		e.logger.Warn("dialog: transcript conversation failed", "session_id", sessionID, "error", err)
		return
	}
	if convID == uuid.Nil {
		return
	}
	if inbound != "" {
		if err := e.transcripts.AppendTurn(ctx, convID, "user", inbound); err != nil {
			e.logger.Warn("dialog: transcript append failed", "session_id", sessionID, "error", err)
		}
	}
	for _, reply := range replies {
		if err := e.transcripts.AppendTurn(ctx, convID, "assistant", reply); err != nil {
			e.logger.Warn("dialog: transcript append failed", "session_id", sessionID, "error", err)
		}
	}
}

// AppointmentBooked implements BookingObserver.
func (e *Engine) AppointmentBooked(ctx context.Context, sessionID string, appt calendar.Appointment) {
	if err := e.transcripts.RecordAppointment(ctx, sessionID, appt); err != nil {
		e.logger.Warn("dialog: appointment archive failed", "session_id", sessionID, "error", err)
	}
	e.notifyObservers(ctx, sessionID, appt, "booked")
}

// AppointmentCancelled implements BookingObserver.
func (e *Engine) AppointmentCancelled(ctx context.Context, sessionID string, appointmentID string) {
	if err := e.transcripts.UpdateAppointmentStatus(ctx, appointmentID, calendar.StatusCancelled); err != nil {
		e.logger.Warn("dialog: appointment archive failed", "session_id", sessionID, "error", err)
	}
}

// AppointmentRescheduled implements BookingObserver.
func (e *Engine) AppointmentRescheduled(ctx context.Context, sessionID string, appt calendar.Appointment) {
	if err := e.transcripts.RecordAppointment(ctx, sessionID, appt); err != nil {
		e.logger.Warn("dialog: appointment archive failed", "session_id", sessionID, "error", err)
	}
	e.notifyObservers(ctx, sessionID, appt, "rescheduled")
}

// BookingListener receives booking outcomes for out-of-band side effects
// such as the operations email.
type BookingListener interface {
	BookingConfirmed(ctx context.Context, appt calendar.Appointment, outcome string) error
}

// AddListener registers a booking listener. Not safe for use after the
// engine starts serving traffic.
func (e *Engine) AddListener(l BookingListener) {
	if l != nil {
		e.listeners = append(e.listeners, l)
	}
}

func (e *Engine) notifyObservers(ctx context.Context, sessionID string, appt calendar.Appointment, outcome string) {
	for _, l := range e.listeners {
		if err := l.BookingConfirmed(ctx, appt, outcome); err != nil {
			e.logger.Warn("dialog: booking listener failed", "session_id", sessionID, "error", err)
		}
	}
}

var _ BookingObserver = (*Engine)(nil)
