package notify

import (
	"context"
	"time"

	"github.com/medinow/scheduling-assistant/internal/calendar"
	"github.com/medinow/scheduling-assistant/internal/messaging"
	"github.com/medinow/scheduling-assistant/pkg/logging"
)

// ProactiveEngine starts an availability flow on a session and returns the
// notification messages to deliver.
type ProactiveEngine interface {
	PushProactive(ctx context.Context, sessionID string, slots []calendar.Slot) ([]string, error)
}

// RecipientSource lists sessions active since a given time.
type RecipientSource interface {
	RecentSessions(ctx context.Context, since time.Time) ([]string, error)
}

// ProactiveConfig tunes the availability job.
type ProactiveConfig struct {
	Interval            time.Duration
	CalendarID          string
	SlotDurationMinutes int
	// Lookback bounds which sessions count as recent enough to notify.
	Lookback time.Duration
	Timezone *time.Location
}

// Proactive periodically checks for same-day openings and offers them to
// recently active patients.
type Proactive struct {
	engine     ProactiveEngine
	provider   calendar.Provider
	sender     messaging.Sender
	recipients RecipientSource
	logger     *logging.Logger
	cfg        ProactiveConfig
	now        func() time.Time

	notified map[string]string // session -> day last notified
}

// NewProactive wires the availability job.
func NewProactive(engine ProactiveEngine, provider calendar.Provider, sender messaging.Sender, recipients RecipientSource, logger *logging.Logger, cfg ProactiveConfig) *Proactive {
	if engine == nil {
		panic("notify: proactive engine cannot be nil")
	}
	if provider == nil {
		panic("notify: calendar provider cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	if cfg.SlotDurationMinutes <= 0 {
		cfg.SlotDurationMinutes = 30
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	return &Proactive{
		engine:     engine,
		provider:   provider,
		sender:     sender,
		recipients: recipients,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		notified:   make(map[string]string),
	}
}

// Run executes the job on its interval until the context is cancelled.
func (p *Proactive) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.logger.Error("proactive tick failed", "error", err)
			}
		}
	}
}

// Tick runs one pass: list today's openings and notify recent sessions that
// have not heard about today yet.
func (p *Proactive) Tick(ctx context.Context) error {
	if p.recipients == nil {
		return nil
	}

	now := p.now().In(p.cfg.Timezone)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.cfg.Timezone)

	slots, err := p.provider.ListSlots(ctx, p.cfg.CalendarID, calendar.DateRange{Start: day, End: day}, p.cfg.SlotDurationMinutes)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		return nil
	}

	sessions, err := p.recipients.RecentSessions(ctx, now.Add(-p.cfg.Lookback))
	if err != nil {
		return err
	}

	dayKey := day.Format("2006-01-02")
	for _, sessionID := range sessions {
		if p.notified[sessionID] == dayKey {
			continue
		}

		replies, err := p.engine.PushProactive(ctx, sessionID, slots)
		if err != nil {
			p.logger.Warn("proactive push failed", "session_id", sessionID, "error", err)
			continue
		}
		p.notified[sessionID] = dayKey

		if p.sender == nil {
			continue
		}
		for _, reply := range replies {
			if err := p.sender.Send(ctx, sessionID, reply); err != nil {
				p.logger.Warn("proactive send failed", "session_id", sessionID, "error", err)
				break
			}
		}
	}
	return nil
}
