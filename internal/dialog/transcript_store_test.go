package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/medinow/scheduling-assistant/internal/calendar"
)

func TestTranscriptStoreNilIsSafe(t *testing.T) {
	var store *TranscriptStore
	ctx := context.Background()

	if _, err := store.EnsureConversation(ctx, "x"); err != nil {
		t.Errorf("EnsureConversation on nil store: %v", err)
	}
	if err := store.AppendTurn(ctx, uuid.New(), "user", "oi"); err != nil {
		t.Errorf("AppendTurn on nil store: %v", err)
	}
	if err := store.RecordAppointment(ctx, "x", calendar.Appointment{}); err != nil {
		t.Errorf("RecordAppointment on nil store: %v", err)
	}
}

func TestEnsureConversationCreatesWhenMissing(t *testing.T) {
	db2, mock2, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	store2 := NewTranscriptStore(db2)

	mock2.ExpectQuery(`SELECT id FROM conversations WHERE session_id`).
		WithArgs("whatsapp:+5511999990000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock2.ExpectExec(`INSERT INTO conversations`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := store2.EnsureConversation(context.Background(), "whatsapp:+5511999990000")
	if err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	if id == uuid.Nil {
		t.Error("expected a fresh conversation id")
	}
	if err := mock2.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEnsureConversationTouchesExisting(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	existing := uuid.New()
	mock.ExpectQuery(`SELECT id FROM conversations WHERE session_id`).
		WithArgs("whatsapp:+5511999990000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing.String()))
	mock.ExpectExec(`UPDATE conversations SET updated_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := store.EnsureConversation(context.Background(), "whatsapp:+5511999990000")
	if err != nil {
		t.Fatalf("EnsureConversation: %v", err)
	}
	if id != existing {
		t.Errorf("id = %s, want %s", id, existing)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAppendTurn(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	convID := uuid.New()
	mock.ExpectExec(`INSERT INTO messages`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.AppendTurn(context.Background(), convID, "user", "quero agendar"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRecordAppointmentUpserts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	start := time.Date(2026, 11, 15, 14, 0, 0, 0, time.UTC)
	appt := calendar.Appointment{
		ID:      "evt-1",
		Slot:    calendar.Slot{Start: start, End: start.Add(30 * time.Minute)},
		Patient: calendar.PatientInfo{Name: "Maria Silva", Email: "maria@example.com"},
		Status:  calendar.StatusBooked,
	}

	mock.ExpectExec(`INSERT INTO appointments`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.RecordAppointment(context.Background(), "whatsapp:+5511999990000", appt); err != nil {
		t.Fatalf("RecordAppointment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewTranscriptStore(db)

	mock.ExpectExec(`UPDATE appointments SET status`).
		WithArgs("cancelled", sqlmock.AnyArg(), "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.UpdateAppointmentStatus(context.Background(), "evt-1", calendar.StatusCancelled); err != nil {
		t.Fatalf("UpdateAppointmentStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
