package dialog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

// TranscriptStore archives conversation turns and appointment outcomes to
// PostgreSQL for long-term history. Every method is nil-receiver safe so the
// assistant runs unchanged when no database is configured.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore creates the archive. Returns nil when db is nil.
func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

// EnsureConversation creates or touches the conversation row for a session.
// Returns the conversation UUID.
func (s *TranscriptStore) EnsureConversation(ctx context.Context, sessionID string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE session_id = $1`,
		sessionID,
	).Scan(&existingID)

	if err == nil {
		s.db.ExecContext(ctx,
			`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
			time.Now(), existingID,
		)
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("dialog: failed to check existing conversation: %w", err)
	}

	newID := uuid.New()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, session_id, channel, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, newID, sessionID, "whatsapp", now, now, now)
	if err != nil {
		// Another instance may have raced us on the unique session_id.
		if strings.Contains(err.Error(), "duplicate key") {
			if scanErr := s.db.QueryRowContext(ctx,
				`SELECT id FROM conversations WHERE session_id = $1`, sessionID,
			).Scan(&existingID); scanErr == nil {
				return existingID, nil
			}
		}
		return uuid.Nil, fmt.Errorf("dialog: failed to create conversation: %w", err)
	}
	return newID, nil
}

// AppendTurn records one message. Role is "user" or "assistant".
func (s *TranscriptStore) AppendTurn(ctx context.Context, conversationID uuid.UUID, role, content string) error {
	if s == nil || s.db == nil || conversationID == uuid.Nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), conversationID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("dialog: failed to append turn: %w", err)
	}
	return nil
}

// RecordAppointment archives a booked or rescheduled appointment.
func (s *TranscriptStore) RecordAppointment(ctx context.Context, sessionID string, appt calendar.Appointment) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, event_id, session_id, patient_name, patient_email, patient_phone, starts_at, ends_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO UPDATE SET
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, uuid.New(), appt.ID, sessionID,
		appt.Patient.Name, appt.Patient.Email, appt.Patient.Phone,
		appt.Slot.Start, appt.Slot.End, string(appt.Status), now, now)
	if err != nil {
		return fmt.Errorf("dialog: failed to record appointment: %w", err)
	}
	return nil
}

// RecentSessions lists sessions active since the given time, most recent
// first. Used to pick recipients for proactive availability notices.
func (s *TranscriptStore) RecentSessions(ctx context.Context, since time.Time) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id FROM conversations WHERE updated_at >= $1 ORDER BY updated_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("dialog: failed to list recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dialog: failed to scan session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialog: failed to read recent sessions: %w", err)
	}
	return sessions, nil
}

// UpdateAppointmentStatus flips the archived status of an event.
func (s *TranscriptStore) UpdateAppointmentStatus(ctx context.Context, eventID string, status calendar.AppointmentStatus) error {
	if s == nil || s.db == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2 WHERE event_id = $3
	`, string(status), time.Now(), eventID)
	if err != nil {
		return fmt.Errorf("dialog: failed to update appointment status: %w", err)
	}
	return nil
}
