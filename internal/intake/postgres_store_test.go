package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStoreEnsureSessionCreates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}

	mock.ExpectQuery("SELECT (.+) FROM intake_calls").
		WithArgs("CA123").
		WillReturnError(errNoRows())

	mock.ExpectExec("INSERT INTO callers").
		WithArgs(pgxmock.AnyArg(), "Temporary", "temp_CA123@temp.com", "+15550001111", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("INSERT INTO intake_calls").
		WithArgs(pgxmock.AnyArg(), "CA123", pgxmock.AnyArg(), "", "in_progress", "GREETING", "", "", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess, err := store.EnsureSession(context.Background(), "CA123", "+15550001111")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if sess.CallSID != "CA123" || sess.State != StateGreeting {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreEnsureSessionReturnsExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}
	now := time.Now().UTC()
	id := uuid.New()
	callerID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM intake_calls").
		WithArgs("CA123").
		WillReturnRows(sessionRows().AddRow(
			id, "CA123", callerID, "Lemon Law", "in_progress", "CONSENT", "", "", false, now, now,
		))

	sess, err := store.EnsureSession(context.Background(), "CA123", "+15550001111")
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if sess.ID != id || sess.State != StateConsent || sess.PracticeArea != PracticeAreaLemonLaw {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStoreSaveSessionMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}
	sess := &CallSession{ID: uuid.New(), CallSID: "CA404", State: StateGreeting, Status: CallInProgress}

	mock.ExpectExec("UPDATE intake_calls").
		WithArgs(sess.ID, sess.CallerID, "", "in_progress", "GREETING", "", "", false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.SaveSession(context.Background(), sess); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPostgresStoreGetOrCreateCallerByEmailInsertWins(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}
	now := time.Now().UTC()
	id := uuid.New()

	mock.ExpectQuery("INSERT INTO callers").
		WithArgs(pgxmock.AnyArg(), "Ayesha Khan", "ayesha@gmail.com", "+923331234567", pgxmock.AnyArg()).
		WillReturnRows(callerRows().AddRow(id, "Ayesha Khan", "ayesha@gmail.com", "+923331234567", now, now))

	caller, created, err := store.GetOrCreateCallerByEmail(context.Background(), "ayesha@gmail.com", Caller{
		FullName: "Ayesha Khan",
		Phone:    "+923331234567",
	})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || caller.ID != id {
		t.Fatalf("expected created caller %s, got %+v created=%v", id, caller, created)
	}
}

func TestPostgresStoreGetOrCreateCallerByEmailConflictFallsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}
	now := time.Now().UTC()
	existing := uuid.New()

	mock.ExpectQuery("INSERT INTO callers").
		WithArgs(pgxmock.AnyArg(), "", "ayesha@gmail.com", "", pgxmock.AnyArg()).
		WillReturnError(errNoRows())

	mock.ExpectQuery("SELECT (.+) FROM callers").
		WithArgs("ayesha@gmail.com").
		WillReturnRows(callerRows().AddRow(existing, "Ayesha Khan", "ayesha@gmail.com", "+923331234567", now, now))

	caller, created, err := store.GetOrCreateCallerByEmail(context.Background(), "ayesha@gmail.com", Caller{})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created || caller.ID != existing {
		t.Fatalf("expected existing caller %s, got %+v created=%v", existing, caller, created)
	}
}

func TestPostgresStoreRecordAnswerIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}
	callID := uuid.New()

	mock.ExpectExec("INSERT INTO case_questions").
		WithArgs(pgxmock.AnyArg(), callID, "vehicle_details", "What is the vehicle year, make, and model?", "2022 Honda Civic", "Lemon Law", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := store.RecordAnswer(context.Background(), &Answer{
		CallID:       callID,
		QuestionKey:  "vehicle_details",
		QuestionText: "What is the vehicle year, make, and model?",
		AnswerText:   "2022 Honda Civic",
		PracticeArea: PracticeAreaLemonLaw,
	})
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert")
	}

	// Conflict path: zero rows affected means the key was already answered.
	mock.ExpectExec("INSERT INTO case_questions").
		WithArgs(pgxmock.AnyArg(), callID, "vehicle_details", "What is the vehicle year, make, and model?", "replayed", "Lemon Law", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err = store.RecordAnswer(context.Background(), &Answer{
		CallID:       callID,
		QuestionKey:  "vehicle_details",
		QuestionText: "What is the vehicle year, make, and model?",
		AnswerText:   "replayed",
		PracticeArea: PracticeAreaLemonLaw,
	})
	if err != nil {
		t.Fatalf("record answer replay: %v", err)
	}
	if inserted {
		t.Fatal("expected replay to be dropped")
	}
}

func TestPostgresStoreMarkConfirmationEmailSent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &PostgresStore{pool: mock}
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.MarkConfirmationEmailSent(context.Background(), id); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
}

func sessionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "call_sid", "caller_id", "practice_area", "call_status",
		"current_state", "current_field", "pending_email", "consent_to_book",
		"created_at", "updated_at",
	})
}

func callerRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "full_name", "email", "phone", "created_at", "updated_at"})
}

func errNoRows() error {
	return pgx.ErrNoRows
}
