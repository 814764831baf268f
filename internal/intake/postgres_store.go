package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the production Store backed by Postgres. Get-or-create
// paths lean on unique indexes (call SID, caller email, question key per
// call) so concurrent webhook deliveries converge instead of erroring.
type PostgresStore struct {
	pool DB
}

// NewPostgresStore creates a store over a pgx pool or compatible mock.
func NewPostgresStore(pool DB) *PostgresStore {
	if pool == nil {
		panic("intake: db required")
	}
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

const sessionColumns = `id, call_sid, caller_id, practice_area, call_status, current_state, current_field, pending_email, consent_to_book, created_at, updated_at`

func (s *PostgresStore) EnsureSession(ctx context.Context, callSID, fromNumber string) (*CallSession, error) {
	sess, err := s.GetSessionByCallSID(ctx, callSID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	caller := &Caller{
		FullName: "Temporary",
		Phone:    fromNumber,
		Email:    PlaceholderEmail(callSID),
	}
	if err := s.CreateCaller(ctx, caller); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess = &CallSession{
		ID:        uuid.New(),
		CallSID:   callSID,
		CallerID:  caller.ID,
		Status:    CallInProgress,
		State:     StateGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// ON CONFLICT DO NOTHING plus re-read: a racing delivery may have
	// inserted the row between our lookup and this insert.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO intake_calls (id, call_sid, caller_id, practice_area, call_status, current_state, current_field, pending_email, consent_to_book, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (call_sid) DO NOTHING`,
		sess.ID, sess.CallSID, sess.CallerID, string(sess.PracticeArea), string(sess.Status),
		string(sess.State), string(sess.CurrentField), sess.PendingEmail, sess.ConsentToBook,
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("intake: create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.GetSessionByCallSID(ctx, callSID)
	}
	return sess, nil
}

func (s *PostgresStore) GetSessionByCallSID(ctx context.Context, callSID string) (*CallSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM intake_calls
		WHERE call_sid = $1`, callSID)
	return scanSession(row)
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*CallSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM intake_calls
		WHERE id = $1`, id)
	return scanSession(row)
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]CallSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM intake_calls
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("intake: list sessions: %w", err)
	}
	defer rows.Close()

	var out []CallSession
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("intake: list sessions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, sess *CallSession) error {
	sess.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE intake_calls
		SET caller_id = $2, practice_area = $3, call_status = $4, current_state = $5,
		    current_field = $6, pending_email = $7, consent_to_book = $8, updated_at = $9
		WHERE id = $1`,
		sess.ID, sess.CallerID, string(sess.PracticeArea), string(sess.Status),
		string(sess.State), string(sess.CurrentField), sess.PendingEmail,
		sess.ConsentToBook, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("intake: save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) GetCaller(ctx context.Context, id uuid.UUID) (*Caller, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, full_name, email, phone, created_at, updated_at
		FROM callers
		WHERE id = $1`, id)
	return scanCaller(row)
}

func (s *PostgresStore) CreateCaller(ctx context.Context, c *Caller) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO callers (id, full_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.FullName, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("intake: create caller: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCaller(ctx context.Context, c *Caller) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE callers
		SET full_name = $2, email = $3, phone = $4, updated_at = $5
		WHERE id = $1`,
		c.ID, c.FullName, c.Email, c.Phone, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("intake: save caller: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCallerNotFound
	}
	return nil
}

func (s *PostgresStore) GetOrCreateCallerByEmail(ctx context.Context, email string, defaults Caller) (*Caller, bool, error) {
	now := time.Now().UTC()
	id := uuid.New()

	// Single round trip: insert wins or the unique email already exists.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO callers (id, full_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $5)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, full_name, email, phone, created_at, updated_at`,
		id, defaults.FullName, email, defaults.Phone, now,
	)
	caller, err := scanCaller(row)
	if err == nil {
		return caller, true, nil
	}
	if !errors.Is(err, ErrCallerNotFound) {
		return nil, false, err
	}

	row = s.pool.QueryRow(ctx, `
		SELECT id, full_name, email, phone, created_at, updated_at
		FROM callers
		WHERE email = lower($1)`, email)
	caller, err = scanCaller(row)
	if err != nil {
		return nil, false, err
	}
	return caller, false, nil
}

func (s *PostgresStore) ListAnswers(ctx context.Context, callID uuid.UUID) ([]Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, call_id, question_key, question_text, answer, practice_area, created_at
		FROM case_questions
		WHERE call_id = $1
		ORDER BY created_at ASC`, callID)
	if err != nil {
		return nil, fmt.Errorf("intake: list answers: %w", err)
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		var area string
		if err := rows.Scan(&a.ID, &a.CallID, &a.QuestionKey, &a.QuestionText, &a.AnswerText, &area, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("intake: scan answer: %w", err)
		}
		a.PracticeArea = PracticeArea(area)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("intake: list answers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetAnswer(ctx context.Context, callID uuid.UUID, questionKey string) (*Answer, error) {
	var a Answer
	var area string
	err := s.pool.QueryRow(ctx, `
		SELECT id, call_id, question_key, question_text, answer, practice_area, created_at
		FROM case_questions
		WHERE call_id = $1 AND question_key = $2`, callID, questionKey,
	).Scan(&a.ID, &a.CallID, &a.QuestionKey, &a.QuestionText, &a.AnswerText, &area, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnswerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: load answer: %w", err)
	}
	a.PracticeArea = PracticeArea(area)
	return &a, nil
}

func (s *PostgresStore) RecordAnswer(ctx context.Context, a *Answer) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO case_questions (id, call_id, question_key, question_text, answer, practice_area, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (call_id, question_key) DO NOTHING`,
		a.ID, a.CallID, a.QuestionKey, a.QuestionText, a.AnswerText, string(a.PracticeArea), a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("intake: record answer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.BookingStatus == "" {
		a.BookingStatus = BookingConfirmed
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointments (id, call_id, caller_id, practice_area, starts_at, calendar_event_id, booking_status, confirmation_email_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.CallID, a.CallerID, string(a.PracticeArea), a.StartsAt,
		a.CalendarEventID, a.BookingStatus, a.ConfirmationEmailSent, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("intake: create appointment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, call_id, caller_id, practice_area, starts_at, calendar_event_id, booking_status, confirmation_email_sent, created_at
		FROM appointments
		WHERE id = $1`, id)
	return scanAppointment(row)
}

func (s *PostgresStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, call_id, caller_id, practice_area, starts_at, calendar_event_id, booking_status, confirmation_email_sent, created_at
		FROM appointments
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("intake: list appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("intake: list appointments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetAppointmentCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments SET calendar_event_id = $2 WHERE id = $1`, id, eventID)
	if err != nil {
		return fmt.Errorf("intake: set calendar event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (s *PostgresStore) MarkConfirmationEmailSent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments SET confirmation_email_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("intake: mark confirmation sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (s *PostgresStore) CreateCalendarEventRecord(ctx context.Context, rec *CalendarEventRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_events (id, appointment_id, google_event_id, event_title, event_description, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.AppointmentID, rec.GoogleEventID, rec.Title, rec.Description,
		rec.StartTime, rec.EndTime, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("intake: create calendar event: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*CallSession, error) {
	var sess CallSession
	var area, status, state, field string
	err := row.Scan(&sess.ID, &sess.CallSID, &sess.CallerID, &area, &status, &state,
		&field, &sess.PendingEmail, &sess.ConsentToBook, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: scan session: %w", err)
	}
	sess.PracticeArea = PracticeArea(area)
	sess.Status = CallStatus(status)
	sess.State = State(state)
	sess.CurrentField = Field(field)
	return &sess, nil
}

func scanSessionRows(rows pgx.Rows) (*CallSession, error) {
	return scanSession(rows)
}

func scanCaller(row pgx.Row) (*Caller, error) {
	var c Caller
	err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCallerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: scan caller: %w", err)
	}
	return &c, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var area string
	err := row.Scan(&a.ID, &a.CallID, &a.CallerID, &area, &a.StartsAt,
		&a.CalendarEventID, &a.BookingStatus, &a.ConfirmationEmailSent, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("intake: scan appointment: %w", err)
	}
	a.PracticeArea = PracticeArea(area)
	return &a, nil
}

func scanAppointmentRows(rows pgx.Rows) (*Appointment, error) {
	return scanAppointment(rows)
}
